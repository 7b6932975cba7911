// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

var (
	builtBinaryPath string
	buildOnce       sync.Once
	buildErr        error
)

// BinaryPath returns the path to the tenantlog binary. It checks the
// TENANTLOG_BINARY environment variable first, then falls back to building
// the binary on first call. The build is performed only once per test run.
func BinaryPath() (string, error) {
	if p := os.Getenv("TENANTLOG_BINARY"); p != "" {
		return p, nil
	}
	buildOnce.Do(func() {
		builtBinaryPath, buildErr = buildBinary()
	})
	return builtBinaryPath, buildErr
}

// buildBinary compiles the tenantlog binary into a temp directory and returns
// its path. cgo stays enabled for the SQLite history driver.
func buildBinary() (string, error) {
	tmpDir, err := os.MkdirTemp("", "tenantlog-e2e-*")
	if err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}

	binaryName := "tenantlog"
	if runtime.GOOS == "windows" {
		binaryName = "tenantlog.exe"
	}
	outputPath := filepath.Join(tmpDir, binaryName)

	// Find the module root by walking up from this file's directory
	_, thisFile, _, _ := runtime.Caller(0)
	moduleRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))

	cmd := exec.Command("go", "build", "-o", outputPath, "./cmd/tenantlog")
	cmd.Dir = moduleRoot

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("building tenantlog binary: %w\nstderr: %s", err, stderr.String())
	}

	return outputPath, nil
}

// RunTenantlog executes the tenantlog binary with the given arguments and
// returns stdout, stderr, and the exit code. The binary is built on first
// call if not provided via TENANTLOG_BINARY.
func RunTenantlog(args ...string) (stdout string, stderr string, exitCode int, err error) {
	return RunTenantlogWithInput("", args...)
}

// RunTenantlogWithInput is RunTenantlog with stdin fed from input, for
// answering confirmation prompts.
func RunTenantlogWithInput(input string, args ...string) (stdout string, stderr string, exitCode int, err error) {
	binaryPath, err := BinaryPath()
	if err != nil {
		return "", "", -1, fmt.Errorf("getting binary path: %w", err)
	}

	cmd := exec.Command(binaryPath, args...)
	cmd.Stdin = strings.NewReader(input)
	cmd.Env = isolatedEnv()

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()

	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return stdout, stderr, exitErr.ExitCode(), nil
		}
		return stdout, stderr, -1, runErr
	}

	return stdout, stderr, 0, nil
}

// isolatedEnv drops TENANTLOG_ settings of the caller so that only flags
// passed by the test take effect.
func isolatedEnv() []string {
	env := make([]string, 0, len(os.Environ()))
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "TENANTLOG_") {
			continue
		}
		env = append(env, kv)
	}
	return env
}
