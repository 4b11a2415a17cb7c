package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/M3tu20222/tarim/internal/audit"
	"github.com/M3tu20222/tarim/internal/config"
	"github.com/M3tu20222/tarim/internal/glossary"
	"github.com/M3tu20222/tarim/internal/policy"
	"github.com/M3tu20222/tarim/internal/registry"
	"github.com/M3tu20222/tarim/internal/scanner"
	"github.com/M3tu20222/tarim/internal/server"
	"github.com/M3tu20222/tarim/internal/tools"
	"github.com/M3tu20222/tarim/internal/transport"
	"github.com/spf13/cobra"
)

func runServe(cmd *cobra.Command, args []string) error {
	level, err := parseLevel(logLevel)
	if err != nil {
		return err
	}
	// stdout carries the protocol; diagnostics go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	srv, err := cfg.Server(serverName)
	if err != nil {
		return err
	}

	reg, closeStore, err := buildRegistry(cfg, srv, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var auditOut io.Writer = os.Stderr
	if auditLog != "" {
		f, err := os.OpenFile(auditLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		defer f.Close()
		auditOut = f
	}
	auditor := audit.New(auditOut)

	s := server.New(reg, server.Options{
		Name:         serverName,
		Version:      srv.Version,
		Instructions: srv.Instructions,
		ConfigPath:   configPath,
		Policy:       policy.NewEngine(srv),
		Audit:        auditor,
		Logger:       logger.With("session", auditor.Session()),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("serving", "server", serverName, "tools", reg.Names())
	if err := s.Serve(ctx, transport.Stdio()); err != nil {
		return fmt.Errorf("serving %q: %w", serverName, err)
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := config.ValidateTools(cfg, tools.Names()); err != nil {
		return fmt.Errorf("validating %s: %w", configPath, err)
	}
	for name, srv := range cfg.Servers {
		if err := scannerOptions(srv).Validate(); err != nil {
			return fmt.Errorf("server %q: %w", name, err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d servers)\n", configPath, len(cfg.Servers))
	return nil
}

func runTools(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	srv, err := cfg.Server(serverName)
	if err != nil {
		return err
	}
	// Listing needs schemas only, so the glossary tools get a store that is
	// never opened.
	deps := tools.Deps{Scanner: scannerOptions(srv)}
	if tools.UsesGlossary(srv.Tools) {
		deps.Glossary = glossary.NewFileStore(cfg.GlossaryPath(srv), logger)
	}
	reg, err := tools.Build(srv.Tools, deps)
	if err != nil {
		return err
	}

	engine := policy.NewEngine(srv)
	out := cmd.OutOrStdout()
	for _, t := range reg.Tools() {
		hidden := ""
		if !engine.Visible(t.Name()) {
			hidden = " (hidden by policy)"
		}
		var schema any
		if err := json.Unmarshal(t.InputSchema(), &schema); err != nil {
			return err
		}
		pretty, err := json.MarshalIndent(schema, "  ", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s%s\n  %s\n  %s\n", t.Name(), hidden, t.Description(), pretty)
	}
	return nil
}

// loadConfig reads path, or returns the built-in profiles when path is empty.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	if path == "" {
		cfg = config.Default()
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		cfg.BaseDir = wd
	} else {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if err := config.ValidateTools(cfg, tools.Names()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildRegistry opens the profile's glossary when one of its tools needs it
// and builds the registry. The returned func closes the store.
func buildRegistry(cfg *config.Config, srv config.Server, logger *slog.Logger) (*registry.Registry, func(), error) {
	opts := scannerOptions(srv)
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	deps := tools.Deps{Scanner: opts}
	closeStore := func() {}
	if tools.UsesGlossary(srv.Tools) {
		store, err := glossary.Open(srv.GlossaryDriver(), cfg.GlossaryPath(srv), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("opening glossary: %w", err)
		}
		deps.Glossary = store
		closeStore = func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing glossary", "err", err)
			}
		}
	}
	reg, err := tools.Build(srv.Tools, deps)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return reg, closeStore, nil
}

func scannerOptions(srv config.Server) scanner.Options {
	return scanner.Options{
		Extensions:  srv.Scanner.Extensions,
		ExcludeDirs: srv.Scanner.ExcludeDirs,
		Ignore:      srv.Scanner.Ignore,
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
