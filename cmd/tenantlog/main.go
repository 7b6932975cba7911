// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	sigyaml "sigs.k8s.io/yaml"

	"tenantlog/internal/auditlog"
	"tenantlog/internal/cluster"
	"tenantlog/internal/config"
	"tenantlog/internal/console"
	"tenantlog/internal/constants"
	"tenantlog/internal/history"
	"tenantlog/internal/logging"
	"tenantlog/internal/tenant"
	"tenantlog/internal/tenantcr"
	"tenantlog/internal/wait"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tenantlog",
		Short: "Configure tenant audit logging",
		Long: `Tenantlog reads and edits the audit-logging settings of storage tenants,
either through the operator console API or directly on the Tenant resource,
and switches audit logging on and off.`,
		SilenceUsage: true,
	}

	config.AddGlobalFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newGetCmd(), newSetCmd(), newEnableCmd(), newDisableCmd(), newHistoryCmd())
	return rootCmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [TENANT...]",
		Short: "Print audit log settings",
		Long: `Print the audit-log settings of one or more tenants in the configured
namespace. Without arguments the --tenant tenant is shown.`,
		RunE: getE,
	}
}

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Edit and submit audit log settings",
		Long: `Load the tenant's audit-log settings, apply the edits from a settings file
and flags, validate every field and submit the complete settings.
Memory requests are whole gigabytes.`,
		Args: cobra.NoArgs,
		RunE: setE,
	}

	f := cmd.Flags()
	f.StringP("filename", "f", "", "YAML file with settings to apply")
	f.Bool("dry-run", false, "Print the settings that would be submitted")
	for _, s := range fieldFlags {
		f.String(s.flag, "", s.usage)
	}
	for _, s := range listFlags {
		f.StringArray(s.flag, nil, s.usage+" as key=value (repeatable, replaces the list)")
	}
	return cmd
}

func newEnableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enable",
		Short: "Enable audit logging",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggleE(cmd, true)
		},
	}
	addToggleFlags(cmd)
	return cmd
}

func newDisableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disable",
		Short: "Disable audit logging",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggleE(cmd, false)
		},
	}
	addToggleFlags(cmd)
	return cmd
}

func addToggleFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolP("yes", "y", false, "Skip the confirmation prompt")
	f.Bool("wait", false, "Wait until the tenant reports the new state")
	f.Duration("poll-interval", constants.DefaultPollInterval, "Interval between state checks while waiting")
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent operations",
		Args:  cobra.NoArgs,
		RunE:  historyE,
	}
	cmd.Flags().Int("limit", 20, "Maximum number of entries")
	return cmd
}

// fieldFlag binds a set flag to a form field.
type fieldFlag struct {
	flag  string
	field auditlog.Field
	usage string
}

var fieldFlags = []fieldFlag{
	{"image", auditlog.FieldImage, "Log search image"},
	{"db-image", auditlog.FieldDBImage, "Log database image"},
	{"db-init-image", auditlog.FieldDBInitImage, "Log database init image"},
	{"disk-capacity", auditlog.FieldDiskCapacityGB, "Log database disk capacity in GB"},
	{"cpu-request", auditlog.FieldCPURequest, "Log search CPU request"},
	{"db-cpu-request", auditlog.FieldDBCPURequest, "Log database CPU request"},
	{"mem-request", auditlog.FieldMemRequest, "Log search memory request in GB"},
	{"db-mem-request", auditlog.FieldDBMemRequest, "Log database memory request in GB"},
	{"service-account", auditlog.FieldServiceAccountName, "Log search service account"},
	{"db-service-account", auditlog.FieldDBServiceAccountName, "Log database service account"},
}

// listFlag binds a set flag to a key-value list.
type listFlag struct {
	flag  string
	kind  auditlog.ListKind
	usage string
}

var listFlags = []listFlag{
	{"label", auditlog.ListLabels, "Log search pod label"},
	{"annotation", auditlog.ListAnnotations, "Log search pod annotation"},
	{"node-selector", auditlog.ListNodeSelector, "Log search node selector"},
	{"db-label", auditlog.ListDBLabels, "Log database pod label"},
	{"db-annotation", auditlog.ListDBAnnotations, "Log database pod annotation"},
	{"db-node-selector", auditlog.ListDBNodeSelector, "Log database node selector"},
}

// session bundles what every tenant command needs.
type session struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    auditlog.Store
	journal  history.Journal
	notifier auditlog.Notifier
}

func (s *session) Close() {
	_ = s.logger.Sync()
	if err := s.journal.Close(); err != nil {
		s.logger.Warn("closing history journal", zap.Error(err))
	}
}

func (s *session) controller(ref tenant.Ref) *auditlog.Controller {
	return auditlog.NewController(s.store, ref,
		auditlog.WithNotifier(s.notifier),
		auditlog.WithLogger(s.logger))
}

// newSession loads configuration, opens the history journal and builds the
// configured store.
func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.LoadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.Verbose)

	store, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	journal := openJournal(cfg, logger)
	return &session{
		cfg:      cfg,
		logger:   logger,
		store:    history.NewRecordingStore(store, journal, cfg.Backend, logger),
		journal:  journal,
		notifier: &lockedNotifier{n: auditlog.WriterNotifier{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}},
	}, nil
}

func newStore(cfg *config.Config, logger *zap.Logger) (auditlog.Store, error) {
	switch cfg.Backend {
	case constants.BackendKubernetes:
		c, err := cluster.Connect(cfg.KubeconfigPath)
		if err != nil {
			return nil, fmt.Errorf("connecting to cluster: %w", err)
		}
		return tenantcr.NewStore(c), nil
	default:
		client, err := console.NewClient(console.Config{
			Endpoint: cfg.Endpoint,
			Token:    cfg.Token,
			Timeout:  cfg.RequestTimeout(),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating console client: %w", err)
		}
		return client, nil
	}
}

// openJournal returns the SQLite journal, or a no-op journal when history
// is disabled or cannot be opened.
func openJournal(cfg *config.Config, logger *zap.Logger) history.Journal {
	if !cfg.HistoryEnabled {
		return history.NoOpJournal{}
	}
	j, err := history.NewSQLiteJournal(cfg.HistoryDBPath)
	if err != nil {
		logger.Warn("history disabled", zap.String("path", cfg.HistoryDBPath), zap.Error(err))
		return history.NoOpJournal{}
	}
	return j
}

// lockedNotifier serialises notifications from concurrent controllers.
type lockedNotifier struct {
	mu sync.Mutex
	n  auditlog.Notifier
}

func (l *lockedNotifier) Notify(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.n.Notify(message)
}

func (l *lockedNotifier) NotifyError(err *tenant.ErrorResponse) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.n.NotifyError(err)
}

// tenantView is the printed form of a tenant's settings.
type tenantView struct {
	Namespace string              `json:"namespace"`
	Tenant    string              `json:"tenant"`
	Enabled   bool                `json:"enabled"`
	Settings  *tenant.LogSettings `json:"settings,omitempty"`
}

func newTenantView(ref tenant.Ref, st auditlog.State) tenantView {
	v := tenantView{Namespace: ref.Namespace, Tenant: ref.Name, Enabled: st.Enabled}
	if st.Enabled {
		v.Settings = auditlog.BuildUpdate(&st)
	}
	return v
}

func requireTenant(ref tenant.Ref) error {
	if ref.Name == "" {
		return errors.New("no tenant given: pass --tenant or set TENANTLOG_TENANT")
	}
	return nil
}

// getE loads every requested tenant concurrently, one controller each.
func getE(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	names := args
	if len(names) == 0 {
		names = []string{s.cfg.Tenant}
	}
	refs := make([]tenant.Ref, len(names))
	for i, name := range names {
		refs[i] = s.cfg.TenantRef(name)
		if err := requireTenant(refs[i]); err != nil {
			return err
		}
	}

	views := make([]tenantView, len(refs))
	g, gctx := errgroup.WithContext(cmd.Context())
	for i, ref := range refs {
		g.Go(func() error {
			ctrl := s.controller(ref)
			if err := ctrl.Load(gctx); err != nil {
				return err
			}
			views[i] = newTenantView(ref, ctrl.State())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return printViews(cmd.OutOrStdout(), s.cfg.Output, views)
}

func printViews(out io.Writer, format string, views []tenantView) error {
	if format == "json" {
		var v interface{} = views
		if len(views) == 1 {
			v = views[0]
		}
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling settings: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	for i, v := range views {
		data, err := sigyaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling settings for %s/%s: %w", v.Namespace, v.Tenant, err)
		}
		if i > 0 {
			fmt.Fprintln(out, "---")
		}
		fmt.Fprint(out, string(data))
	}
	return nil
}

// setE runs the load, edit, validate and submit cycle for one tenant.
func setE(cmd *cobra.Command, args []string) error {
	patch, err := patchFromFlags(cmd)
	if err != nil {
		return err
	}
	if patch.empty() {
		return errors.New("nothing to change: pass a settings file or field flags")
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ref := s.cfg.TenantRef("")
	if err := requireTenant(ref); err != nil {
		return err
	}

	ctx := cmd.Context()
	ctrl := s.controller(ref)
	if err := ctrl.Load(ctx); err != nil {
		return err
	}
	if !ctrl.State().Enabled {
		return fmt.Errorf("%w for %s: run \"tenantlog enable\" first", auditlog.ErrLoggingDisabled, ref)
	}

	patch.apply(ctrl)
	if !ctrl.Valid() {
		printValidationErrors(cmd.ErrOrStderr(), ctrl.State())
	}

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun && ctrl.Valid() {
		st := ctrl.State()
		return printViews(cmd.OutOrStdout(), s.cfg.Output, []tenantView{{
			Namespace: ref.Namespace,
			Tenant:    ref.Name,
			Enabled:   st.Enabled,
			Settings:  auditlog.BuildUpdate(&st),
		}})
	}

	return ctrl.Submit(ctx)
}

// patchFromFlags merges the settings file with field and list flags. Flags
// win over the file.
func patchFromFlags(cmd *cobra.Command) (*settingsPatch, error) {
	patch := newSettingsPatch()
	if path, _ := cmd.Flags().GetString("filename"); path != "" {
		fromFile, err := loadPatchFile(path)
		if err != nil {
			return nil, err
		}
		patch.merge(fromFile)
	}
	for _, s := range fieldFlags {
		if cmd.Flags().Changed(s.flag) {
			v, _ := cmd.Flags().GetString(s.flag)
			patch.Fields[s.field] = v
		}
	}
	for _, s := range listFlags {
		if cmd.Flags().Changed(s.flag) {
			raw, _ := cmd.Flags().GetStringArray(s.flag)
			entries, err := parseKeyValues(raw)
			if err != nil {
				return nil, fmt.Errorf("--%s: %w", s.flag, err)
			}
			patch.Lists[s.kind] = entries
		}
	}
	return patch, nil
}

func printValidationErrors(out io.Writer, st auditlog.State) {
	for _, f := range auditlog.AllFields {
		if msg, ok := st.ValidationErrors[f]; ok {
			fmt.Fprintf(out, "%s: %s\n", f, msg)
		}
	}
	for _, k := range auditlog.AllLists {
		idx := make([]int, 0, len(st.ListErrors[k]))
		for i := range st.ListErrors[k] {
			idx = append(idx, i)
		}
		sort.Ints(idx)
		for _, i := range idx {
			fmt.Fprintf(out, "%s[%d]: %s\n", k, i, st.ListErrors[k][i])
		}
	}
}

// toggleE switches logging to the wanted state after confirmation.
func toggleE(cmd *cobra.Command, enable bool) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ref := s.cfg.TenantRef("")
	if err := requireTenant(ref); err != nil {
		return err
	}

	ctx := cmd.Context()
	ctrl := s.controller(ref)
	if err := ctrl.Load(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if ctrl.State().Enabled == enable {
		fmt.Fprintf(out, "Audit logging already %s for %s\n", stateWord(enable), ref)
		return nil
	}

	confirmation := ctrl.RequestToggle()
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		ok, err := confirm(cmd.InOrStdin(), out, confirmation)
		if err != nil {
			ctrl.CancelToggle()
			return err
		}
		if !ok {
			ctrl.CancelToggle()
			fmt.Fprintln(out, "Cancelled")
			return nil
		}
	}

	if err := ctrl.ConfirmToggle(ctx); err != nil {
		return err
	}

	if waitFlag, _ := cmd.Flags().GetBool("wait"); waitFlag {
		interval, _ := cmd.Flags().GetDuration("poll-interval")
		fmt.Fprintf(out, "Waiting for audit logging to be %s on %s (timeout: %s)...\n",
			stateWord(enable), ref, s.cfg.WaitTimeout())
		if err := wait.WaitForLoggingState(ctx, s.store, ref, enable, s.cfg.WaitTimeout(), interval, s.logger); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "Audit logging %s for %s\n", stateWord(enable), ref)
	return nil
}

// confirm shows the dialog text and reads the answer. Only the confirm
// label or "y"/"yes" accept.
func confirm(in io.Reader, out io.Writer, c auditlog.Confirmation) (bool, error) {
	fmt.Fprintln(out, c.Title)
	fmt.Fprintln(out, c.Content)
	fmt.Fprintf(out, "%s or %s? [y/N]: ", c.ConfirmText, c.CancelText)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	fmt.Fprintln(out)
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", strings.ToLower(c.ConfirmText):
		return true, nil
	}
	return false, nil
}

func stateWord(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func historyE(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !cfg.HistoryEnabled {
		return errors.New("history is disabled")
	}
	journal, err := history.NewSQLiteJournal(cfg.HistoryDBPath)
	if err != nil {
		return err
	}
	defer journal.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	entries, err := journal.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	printHistory(cmd.OutOrStdout(), entries)
	return nil
}

func printHistory(out io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No operations recorded")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tOPERATION\tBACKEND\tTENANT\tSTATUS\tERROR")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s/%s\t%s\t%s\n",
			e.StartedAt, e.Operation, e.Backend, e.Namespace, e.Tenant, e.Status, e.ErrorSummary)
	}
	_ = w.Flush()
}
