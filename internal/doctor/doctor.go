// Package doctor checks that the local environment can reach and use an
// onboarding backend.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/g960059/exile-onboard/internal/api"
	"github.com/g960059/exile-onboard/internal/config"
)

type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

type Check struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

type Result struct {
	OK       bool     `json:"ok"`
	Checks   []Check  `json:"checks"`
	Warnings []string `json:"warnings,omitempty"`
}

// HealthChecker is the part of the backend client doctor needs.
type HealthChecker interface {
	Health(ctx context.Context) (api.HealthResponse, error)
}

type Options struct {
	Config    config.Config
	ExportDir string
}

func Run(ctx context.Context, backend HealthChecker, opts Options) Result {
	out := Result{OK: true}
	add := func(c Check) {
		out.Checks = append(out.Checks, c)
		switch c.Status {
		case StatusWarn:
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %s", c.Name, c.Message))
		case StatusFail:
			out.OK = false
		}
	}

	add(checkConfig(opts.Config))
	add(checkBackend(ctx, backend, opts.Config.APIBase))
	add(checkLogFile(opts.Config.LogFile))
	if strings.TrimSpace(opts.ExportDir) != "" {
		add(checkExportDir(opts.ExportDir))
	}
	return out
}

func checkConfig(cfg config.Config) Check {
	if err := cfg.Validate(); err != nil {
		return Check{Name: "config", Status: StatusFail, Message: err.Error()}
	}
	if cfg.RequestTimeout == 0 {
		return Check{Name: "config", Status: StatusWarn, Message: "request timeout disabled"}
	}
	return Check{Name: "config", Status: StatusPass, Message: "valid"}
}

func checkBackend(ctx context.Context, backend HealthChecker, base string) Check {
	resp, err := backend.Health(ctx)
	if err != nil {
		return Check{Name: "backend", Status: StatusFail, Message: fmt.Sprintf("unreachable: %v", err), Path: base}
	}
	if resp.Status != "ok" {
		return Check{Name: "backend", Status: StatusWarn, Message: fmt.Sprintf("reported status %q", resp.Status), Path: base}
	}
	return Check{Name: "backend", Status: StatusPass, Message: "healthy", Path: base}
}

func checkLogFile(path string) Check {
	if strings.TrimSpace(path) == "" {
		return Check{Name: "log_file", Status: StatusPass, Message: "logging disabled"}
	}
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return Check{Name: "log_file", Status: StatusFail, Message: fmt.Sprintf("log directory unavailable: %v", err), Path: path}
	}
	if !info.IsDir() {
		return Check{Name: "log_file", Status: StatusFail, Message: "log directory is not a directory", Path: path}
	}
	return Check{Name: "log_file", Status: StatusPass, Message: "directory exists", Path: path}
}

func checkExportDir(dir string) Check {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return Check{Name: "export_dir", Status: StatusWarn, Message: "will be created on first export", Path: dir}
	}
	if err != nil {
		return Check{Name: "export_dir", Status: StatusFail, Message: fmt.Sprintf("stat error: %v", err), Path: dir}
	}
	if !info.IsDir() {
		return Check{Name: "export_dir", Status: StatusFail, Message: "not a directory", Path: dir}
	}
	return Check{Name: "export_dir", Status: StatusPass, Message: "exists", Path: dir}
}
