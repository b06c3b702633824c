package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/nevindra/llmbatch"
	"github.com/nevindra/llmbatch/internal/config"
	"github.com/nevindra/llmbatch/observer"
	"github.com/nevindra/llmbatch/provider/resolve"
)

// env carries everything a command needs.
type env struct {
	cfg    config.Config
	model  llmbatch.Model
	logger *slog.Logger
	stdin  io.Reader
	stdout io.Writer
}

// newModel builds the model for cfg. Replaced in tests.
var newModel = func(ctx context.Context, cfg config.Config, logger *slog.Logger) (llmbatch.Model, func(context.Context) error, error) {
	rc := resolve.Config{
		Provider:    cfg.Provider.Name,
		Model:       cfg.Provider.Model,
		APIKey:      cfg.Provider.APIKey,
		BaseURL:     cfg.Provider.BaseURL,
		MaxTokens:   cfg.Provider.MaxTokens,
		Temperature: cfg.Provider.Temperature,
		Logger:      logger,
	}
	shutdown := func(context.Context) error { return nil }

	var inst *observer.Instruments
	if cfg.Observer.Enabled {
		var err error
		inst, shutdown, err = observer.Init(ctx, cfg.Observer.ServiceName, pricing(cfg.Observer.Pricing))
		if err != nil {
			return nil, nil, fmt.Errorf("observer: %w", err)
		}
		rc.HTTPClient = observer.HTTPClient()
	}

	m, err := resolve.Model(rc)
	if err != nil {
		_ = shutdown(ctx)
		return nil, nil, err
	}
	if inst != nil {
		m = observer.WrapModel(m, inst)
	}
	return m, shutdown, nil
}

func pricing(in map[string]config.ObserverPricing) map[string]observer.ModelPricing {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]observer.ModelPricing, len(in))
	for model, p := range in {
		out[model] = observer.ModelPricing{InputPerMillion: p.Input, OutputPerMillion: p.Output}
	}
	return out
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("llmbatch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", os.Getenv("LLMBATCH_CONFIG"), "config file (TOML, or YAML by extension)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command (submit, status, results, wait, cancel)")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	handler, ok := commands[cmd]
	if !ok {
		return fmt.Errorf("unknown command %q", cmd)
	}

	model, shutdown, err := newModel(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("observer shutdown failed", "error", err)
		}
	}()

	return handler(ctx, &env{cfg: cfg, model: model, logger: logger, stdin: stdin, stdout: stdout}, cmdArgs)
}

func newLogger(c config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return nil, fmt.Errorf("config: log.level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("config: log.format %q (want text or json)", c.Format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
