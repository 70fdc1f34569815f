// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/navd/ai"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "navd",
		Usage: "Append-only conversation history store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML embedding provider config",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "append",
				Usage:     "Append raw records to the log and print their locators",
				ArgsUsage: "TEXT...",
				Action:    appendCommand,
				Flags:     []cli.Flag{dirFlag()},
			},
			{
				Name:   "read",
				Usage:  "Read bytes from the log by offset and length",
				Action: readCommand,
				Flags: []cli.Flag{
					dirFlag(),
					&cli.Int64Flag{
						Name:     "offset",
						Aliases:  []string{"o"},
						Usage:    "Byte offset of the first byte to read",
						Required: true,
					},
					&cli.Int64Flag{
						Name:     "length",
						Aliases:  []string{"n"},
						Usage:    "Number of bytes to read",
						Required: true,
					},
				},
			},
			{
				Name:   "position",
				Usage:  "Print the current end of the log in bytes",
				Action: positionCommand,
				Flags:  []cli.Flag{dirFlag()},
			},
			{
				Name:      "add",
				Usage:     "Add conversation entries and embed them",
				ArgsUsage: "TEXT...",
				Action:    addCommand,
				Flags: []cli.Flag{
					dirFlag(),
					&cli.StringFlag{
						Name:    "speaker",
						Aliases: []string{"s"},
						Usage:   "Speaker for every entry (human, ai)",
						Value:   "human",
					},
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Read entries from a file, one per line",
					},
					&cli.StringSliceFlag{
						Name:    "metadata",
						Aliases: []string{"m"},
						Usage:   "Metadata key=value attached to every entry",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of entries to add per batch",
						Value: 100,
					},
				},
			},
			{
				Name:   "get",
				Usage:  "Print an entry by ID",
				Action: getCommand,
				Flags: []cli.Flag{
					dirFlag(),
					&cli.Uint64Flag{
						Name:     "id",
						Usage:    "Entry ID",
						Required: true,
					},
				},
			},
			{
				Name:   "recent",
				Usage:  "Print the most recent entries",
				Action: recentCommand,
				Flags: []cli.Flag{
					dirFlag(),
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of entries",
						Value:   10,
					},
				},
			},
			{
				Name:   "pending",
				Usage:  "Embed entries left pending by earlier runs",
				Action: pendingCommand,
				Flags:  []cli.Flag{dirFlag()},
			},
			{
				Name:   "reembed",
				Usage:  "Regenerate embeddings for every entry with the configured provider",
				Action: reembedCommand,
				Flags: []cli.Flag{
					dirFlag(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of entries to embed per request",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N entries",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed requests",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "normalize",
						Usage: "Scale vectors to unit length",
					},
					&cli.BoolFlag{
						Name:  "only-missing",
						Usage: "Only embed entries without a vector",
					},
				},
			},
			{
				Name:      "embed",
				Usage:     "Embed texts with the configured provider and print vector sizes",
				ArgsUsage: "TEXT...",
				Action:    embedCommand,
			},
		},
	}
}

func dirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "dir",
		Aliases:  []string{"d"},
		Usage:    "Data directory holding the log and index",
		Required: true,
		EnvVars:  []string{"NAVD_DIR"},
	}
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

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadConfig reads the embedding config named by --config, or the defaults.
func loadConfig(c *cli.Context) (*ai.Config, error) {
	path := c.String("config")
	if path == "" {
		cfg := ai.DefaultConfig()
		return cfg, cfg.Validate()
	}
	return ai.LoadConfigFile(path)
}
