// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"tenantlog/internal/constants"
	"tenantlog/internal/tenant"
)

// Config holds the complete application configuration.
type Config struct {
	Endpoint           string `mapstructure:"endpoint"`
	Token              string `mapstructure:"token"`
	Namespace          string `mapstructure:"namespace"`
	Tenant             string `mapstructure:"tenant"`
	Backend            string `mapstructure:"backend"`
	KubeconfigPath     string `mapstructure:"kubeconfig"`
	TimeoutSeconds     int    `mapstructure:"timeout"`
	WaitTimeoutSeconds int    `mapstructure:"wait-timeout"`
	Output             string `mapstructure:"output"`
	Verbose            bool   `mapstructure:"verbose"`
	HistoryEnabled     bool   `mapstructure:"history"`
	HistoryDBPath      string `mapstructure:"history-db"`
}

// RequestTimeout returns the per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// WaitTimeout returns how long --wait polls before giving up.
func (c *Config) WaitTimeout() time.Duration {
	return time.Duration(c.WaitTimeoutSeconds) * time.Second
}

// TenantRef returns the configured tenant, or the named one in the
// configured namespace when name is not empty.
func (c *Config) TenantRef(name string) tenant.Ref {
	if name == "" {
		name = c.Tenant
	}
	return tenant.Ref{Namespace: c.Namespace, Name: name}
}

// SetDefaults registers Viper defaults.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("endpoint", constants.DefaultEndpoint)
	v.SetDefault("token", "")
	v.SetDefault("namespace", constants.DefaultNamespace)
	v.SetDefault("tenant", "")
	v.SetDefault("backend", constants.DefaultBackend)
	v.SetDefault("kubeconfig", "")
	v.SetDefault("timeout", int(constants.DefaultRequestTimeout/time.Second))
	v.SetDefault("wait-timeout", int(constants.DefaultWaitTimeout/time.Second))
	v.SetDefault("output", constants.DefaultOutputFormat)
	v.SetDefault("verbose", false)
	v.SetDefault("history", true)
	v.SetDefault("history-db", constants.DefaultHistoryDBPath)
}

// BindFlags registers Cobra flags on the given command.
func BindFlags(cmd *cobra.Command) {
	AddGlobalFlags(cmd.Flags())
}

// AddGlobalFlags declares every configuration flag on f. The root command
// passes its persistent flag set.
func AddGlobalFlags(f *pflag.FlagSet) {
	f.String("endpoint", "", "Console base URL")
	f.String("token", "", "Console session token")
	f.String("namespace", "", "Tenant namespace")
	f.String("tenant", "", "Tenant name")
	f.String("backend", "", "Settings backend (api or kubernetes)")
	f.String("kubeconfig", "", "Path to kubeconfig file")
	f.String("config", "", "Path to YAML config file")
	f.Int("timeout", 0, "Request timeout in seconds")
	f.Int("wait-timeout", 0, "Seconds to wait for a logging state change")
	f.String("output", "", "Output format (yaml or json)")
	f.Bool("verbose", false, "Enable verbose output")
	f.String("history-db", "", "Path to the operation history database")
	f.Bool("no-history", false, "Do not record operations")
}

// LoadConfig loads configuration from flags, environment variables, config file,
// and defaults using the Viper priority chain: flags > env > file > defaults.
func LoadConfig(cmd *cobra.Command) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	v.SetEnvPrefix("TENANTLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Flags only override when explicitly set.
	for _, name := range []string{"endpoint", "token", "namespace", "tenant", "backend", "kubeconfig", "output", "history-db"} {
		bindFlagIfSet(v, cmd, name)
	}
	for _, name := range []string{"timeout", "wait-timeout"} {
		if cmd.Flags().Changed(name) {
			val, _ := cmd.Flags().GetInt(name)
			v.Set(name, val)
		}
	}
	if cmd.Flags().Changed("verbose") {
		val, _ := cmd.Flags().GetBool("verbose")
		v.Set("verbose", val)
	}
	if cmd.Flags().Changed("no-history") {
		val, _ := cmd.Flags().GetBool("no-history")
		v.Set("history", !val)
	}

	cfg := &Config{}
	cfg.Endpoint = v.GetString("endpoint")
	cfg.Token = v.GetString("token")
	cfg.Namespace = v.GetString("namespace")
	cfg.Tenant = v.GetString("tenant")
	cfg.Backend = strings.ToLower(v.GetString("backend"))
	cfg.KubeconfigPath = v.GetString("kubeconfig")
	cfg.TimeoutSeconds = v.GetInt("timeout")
	cfg.WaitTimeoutSeconds = v.GetInt("wait-timeout")
	cfg.Output = strings.ToLower(v.GetString("output"))
	cfg.Verbose = v.GetBool("verbose")
	cfg.HistoryEnabled = v.GetBool("history")
	cfg.HistoryDBPath = v.GetString("history-db")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case constants.BackendAPI, constants.BackendKubernetes:
	default:
		return fmt.Errorf("unknown backend %q: must be %q or %q",
			c.Backend, constants.BackendAPI, constants.BackendKubernetes)
	}
	switch c.Output {
	case "yaml", "json":
	default:
		return fmt.Errorf("unknown output format %q: must be yaml or json", c.Output)
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", c.TimeoutSeconds)
	}
	return nil
}

// bindFlagIfSet sets a Viper key from a Cobra flag only when the flag was explicitly provided.
func bindFlagIfSet(v *viper.Viper, cmd *cobra.Command, name string) {
	if cmd.Flags().Changed(name) {
		val, _ := cmd.Flags().GetString(name)
		v.Set(name, val)
	}
}
