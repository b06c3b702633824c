// Command llmbatch submits and tracks structured-output batch jobs against
// OpenAI, Anthropic, Gemini and OpenAI-compatible batch APIs.
//
// Usage:
//
//	llmbatch [-config llmbatch.toml] submit -schema schema.json [-schema-name name] [-input requests.jsonl]
//	llmbatch [-config llmbatch.toml] status <batch-id>
//	llmbatch [-config llmbatch.toml] results <batch-id>
//	llmbatch [-config llmbatch.toml] wait <batch-id>
//	llmbatch [-config llmbatch.toml] cancel <batch-id>
//
// Requests are read as JSON lines ({"custom_id", "input", "system_prompt"});
// a request without custom_id gets a generated one. Output is JSON lines on
// stdout, logs go to stderr.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "llmbatch:", err)
		os.Exit(1)
	}
}
