// Copyright 2025 Pathas Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	manualbot "github.com/pathas/manualbot"
	"github.com/pathas/manualbot/ai"
	"github.com/pathas/manualbot/conversation"
	"github.com/pathas/manualbot/core"
	"github.com/pathas/manualbot/index"
	"github.com/pathas/manualbot/index/qdrant"
	"github.com/pathas/manualbot/ingestion"
	"github.com/pathas/manualbot/reindex"
)

func main() {
	app := &cli.App{
		Name:  "manualbot",
		Usage: "Conversational assistant for camera manuals",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "chat",
				Usage:  "Interactive conversation on stdin/stdout",
				Action: chatCommand,
				Flags: append(serviceFlags(),
					&cli.StringFlag{
						Name:  "user",
						Usage: "User identity for the session",
						Value: "local",
					},
				),
			},
			{
				Name:      "ingest",
				Usage:     "Ingest a manual into the index",
				Action:    ingestCommand,
				ArgsUsage: "FILE",
				Flags: append(serviceFlags(),
					&cli.StringFlag{
						Name:     "model",
						Aliases:  []string{"m"},
						Usage:    "Camera model the manual belongs to",
						Required: true,
					},
				),
			},
			{
				Name:      "ask",
				Usage:     "Ask a one-off question about a model",
				Action:    askCommand,
				ArgsUsage: "QUESTION",
				Flags: append(serviceFlags(),
					&cli.StringFlag{
						Name:     "model",
						Aliases:  []string{"m"},
						Usage:    "Camera model to ask about",
						Required: true,
					},
				),
			},
			{
				Name:   "reindex",
				Usage:  "Re-embed all indexed chunks with the configured embedding model",
				Action: reindexCommand,
				Flags: append(serviceFlags(),
					&cli.StringFlag{
						Name:  "model",
						Usage: "Restrict reindexing to one camera model",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// serviceFlags are the flags shared by every command that talks to the
// session store, the index and the AI services.
func serviceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "sessions",
			Aliases: []string{"s"},
			Usage:   "Path to the session database directory",
			Value:   defaultSessionPath(),
		},
		&cli.StringFlag{
			Name:  "index",
			Usage: "Qdrant URL (e.g. http://localhost:6334); empty uses an in-process index",
		},
		&cli.StringFlag{
			Name:  "collection",
			Usage: "Qdrant collection name",
			Value: "manual_chunks",
		},
		&cli.UintFlag{
			Name:  "vector-size",
			Usage: "Embedding vector dimension for collection creation",
			Value: 1024,
		},
		&cli.StringFlag{
			Name:  "ai-host",
			Usage: "OpenAI-compatible service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "bge-m3",
		},
		&cli.StringFlag{
			Name:  "completion-model",
			Usage: "Completion model name for answer synthesis",
			Value: "qwen2.5:3b",
		},
		&cli.BoolFlag{
			Name:  "no-synthesis",
			Usage: "Disable answer synthesis; reply with raw manual excerpts",
		},
	}
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".manualbot/sessions"
	}
	return filepath.Join(home, ".manualbot", "sessions")
}

// newAssistant builds an Assistant from the shared service flags.
func newAssistant(ctx context.Context, c *cli.Context) (*manualbot.Assistant, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("ai-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithCompletionModel(c.String("completion-model")),
	)

	opts := []manualbot.AssistantOption{
		manualbot.WithAIConfig(aiConfig),
	}
	if c.Bool("no-synthesis") {
		opts = append(opts, manualbot.WithoutSynthesis())
	}

	if indexURL := c.String("index"); indexURL != "" {
		gateway, err := qdrant.New(ctx, qdrant.Config{
			URL:            indexURL,
			CollectionName: c.String("collection"),
			VectorSize:     uint64(c.Uint("vector-size")),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to index: %w", err)
		}
		opts = append(opts, manualbot.WithGateway(gateway))
	} else {
		slog.Warn("no --index configured, using an in-process index that will not survive exit")
	}

	return manualbot.NewAssistant(c.String("sessions"), opts...)
}

func chatCommand(c *cli.Context) error {
	ctx := context.Background()

	assistant, err := newAssistant(ctx, c)
	if err != nil {
		return err
	}
	defer assistant.Close()

	dispatcher, err := assistant.NewDispatcher()
	if err != nil {
		return err
	}

	userID := c.String("user")
	fmt.Println("manualbot ready. Send /start to begin, Ctrl-D to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		event := conversation.Event{UserID: userID, Text: scanner.Text()}
		if name, ok := strings.CutPrefix(strings.TrimSpace(event.Text), "/"); ok {
			event.Text = name
			event.Command = true
		}

		reply, err := dispatcher.Dispatch(ctx, event)
		if err != nil {
			slog.Error("event dropped", "err", err)
			continue
		}
		if reply == nil {
			continue
		}

		fmt.Println(reply.Text)
		if len(reply.Options) > 0 {
			fmt.Printf("[%s]\n", strings.Join(reply.Options, " | "))
		}
	}
	return scanner.Err()
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one FILE argument")
	}
	path := c.Args().First()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read manual: %w", err)
	}

	ctx := context.Background()
	assistant, err := newAssistant(ctx, c)
	if err != nil {
		return err
	}
	defer assistant.Close()

	pipeline, err := assistant.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	count, err := pipeline.Ingest(ctx, c.String("model"), filepath.Base(path), data)
	if errors.Is(err, ingestion.ErrAlreadyIngested) {
		fmt.Printf("Already ingested: %s\n", filepath.Base(path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Stored %d chunks from %s\n", count, filepath.Base(path))
	return nil
}

func askCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one QUESTION argument")
	}
	question := c.Args().First()

	ctx := context.Background()
	assistant, err := newAssistant(ctx, c)
	if err != nil {
		return err
	}
	defer assistant.Close()

	pipeline, err := assistant.NewRetrievalPipeline()
	if err != nil {
		return err
	}

	answer, err := pipeline.Ask(ctx, c.String("model"), question)
	if err != nil {
		return err
	}

	fmt.Println(answer.Body)
	for _, citation := range answer.Citations {
		fmt.Printf("  [%s manual, page %d]\n", citation.Model, citation.Page)
	}
	return nil
}

func reindexCommand(c *cli.Context) error {
	ctx := context.Background()

	assistant, err := newAssistant(ctx, c)
	if err != nil {
		return err
	}
	defer assistant.Close()

	config := &reindex.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	reindexer, err := assistant.NewReindexer(config, os.Stderr)
	if err != nil {
		return err
	}

	filter := index.Filter{}
	if model := c.String("model"); model != "" {
		canonical, ok := core.MatchModel(model)
		if !ok {
			return fmt.Errorf("unknown model %q (supported: %s)", model, core.ModelList())
		}
		filter.Model = canonical
	}

	if err := reindexer.Run(ctx, filter); err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
