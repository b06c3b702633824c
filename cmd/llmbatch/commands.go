package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nevindra/llmbatch"
)

type command func(ctx context.Context, e *env, args []string) error

var commands = map[string]command{
	"submit":  submitCmd,
	"status":  statusCmd,
	"results": resultsCmd,
	"wait":    waitCmd,
	"cancel":  cancelCmd,
}

func submitCmd(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	schemaPath := fs.String("schema", "", "JSON Schema file every output must follow (required)")
	schemaName := fs.String("schema-name", "", "schema name sent to the provider")
	inputPath := fs.String("input", "-", "JSON lines request file, - for stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *schemaPath == "" {
		return errors.New("submit: -schema is required")
	}

	raw, err := os.ReadFile(*schemaPath)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	schema, err := llmbatch.ParseSchema(*schemaName, raw)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	in := e.stdin
	if *inputPath != "-" {
		f, err := os.Open(*inputPath)
		if err != nil {
			return fmt.Errorf("submit: %w", err)
		}
		defer f.Close()
		in = f
	}
	requests, err := readRequests(in)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	res, err := llmbatch.CreateObjectBatch(ctx, llmbatch.CreateObjectBatchParams{
		Model:    e.model,
		Requests: requests,
		Schema:   schema,
	})
	if err != nil {
		return err
	}
	e.logger.Info("batch submitted", "batch_id", res.BatchID, "requests", len(requests))
	return writeJSON(e.stdout, res)
}

// readRequests decodes JSON-lines requests, assigning a generated CustomID
// to any request without one.
func readRequests(r io.Reader) ([]llmbatch.BatchRequest, error) {
	var out []llmbatch.BatchRequest
	n := 0
	for line, err := range llmbatch.Records(r) {
		if err != nil {
			return nil, fmt.Errorf("read requests: %w", err)
		}
		n++
		var req llmbatch.BatchRequest
		if err := json.Unmarshal(line, &req); err != nil {
			return nil, fmt.Errorf("request %d: %w", n, err)
		}
		if req.CustomID == "" {
			req.CustomID = llmbatch.NewID()
		}
		out = append(out, req)
	}
	return out, nil
}

func batchID(name string, args []string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", fmt.Errorf("%s: expected exactly one batch id", name)
	}
	return args[0], nil
}

func statusCmd(ctx context.Context, e *env, args []string) error {
	id, err := batchID("status", args)
	if err != nil {
		return err
	}
	b, err := e.model.Status(ctx, id)
	if err != nil {
		return err
	}
	return writeJSON(e.stdout, b)
}

// resultsCmd prints one JSON line per response. Outputs are passed through
// undecoded; per-item failures appear in the error field.
func resultsCmd(ctx context.Context, e *env, args []string) error {
	id, err := batchID("results", args)
	if err != nil {
		return err
	}
	res, err := llmbatch.GetObjectBatch[json.RawMessage](ctx, llmbatch.GetObjectBatchParams{Model: e.model, BatchID: id})
	if err != nil {
		return err
	}
	if res.Batch.Status != llmbatch.StatusCompleted {
		return fmt.Errorf("results: batch %s is %s", id, res.Batch.Status)
	}
	return llmbatch.EncodeRecords(e.stdout, res.Results)
}

func waitCmd(ctx context.Context, e *env, args []string) error {
	id, err := batchID("wait", args)
	if err != nil {
		return err
	}
	b, err := waitTerminal(ctx, e, id)
	if err != nil {
		return err
	}
	return writeJSON(e.stdout, b)
}

// waitTerminal polls Status every Poll.Interval until the batch reaches a
// terminal status, ctx ends or Poll.Timeout (when positive) elapses.
func waitTerminal(ctx context.Context, e *env, id string) (llmbatch.Batch, error) {
	if e.cfg.Poll.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Poll.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(e.cfg.Poll.Interval)
	defer ticker.Stop()
	for {
		b, err := e.model.Status(ctx, id)
		if err != nil {
			return llmbatch.Batch{}, err
		}
		e.logger.Info("batch status",
			"batch_id", id,
			"status", b.Status,
			"completed", b.RequestCounts.Completed,
			"failed", b.RequestCounts.Failed,
			"total", b.RequestCounts.Total)
		if b.Status.Terminal() {
			return b, nil
		}

		select {
		case <-ctx.Done():
			return b, fmt.Errorf("wait for batch %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

func cancelCmd(ctx context.Context, e *env, args []string) error {
	id, err := batchID("cancel", args)
	if err != nil {
		return err
	}
	if err := llmbatch.CancelBatch(ctx, e.model, id); err != nil {
		return err
	}
	e.logger.Info("batch cancellation requested", "batch_id", id)
	return nil
}
