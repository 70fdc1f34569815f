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
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/navd"
	"github.com/poiesic/navd/core"
	"github.com/poiesic/navd/logstore"
	"github.com/poiesic/navd/reembed"
	"github.com/urfave/cli/v2"
)

// closeWith closes closer and reports its error through err unless err
// already holds an earlier failure.
func closeWith(closer io.Closer, err *error) {
	if cerr := closer.Close(); *err == nil {
		*err = cerr
	}
}

// openStore opens the raw log in --dir, logging failures to the default logger.
func openStore(c *cli.Context, opts ...logstore.Option) (*logstore.Store, error) {
	opts = append([]logstore.Option{logstore.WithLogger(slog.Default())}, opts...)
	return logstore.Open(c.String("dir"), opts...)
}

func appendCommand(c *cli.Context) (err error) {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one record is required")
	}

	store, err := openStore(c, logstore.WithSyncOnAppend(true))
	if err != nil {
		return err
	}
	defer closeWith(store, &err)

	for _, text := range c.Args().Slice() {
		loc, err := store.Append(text)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%d %d\n", loc.Offset, loc.Length)
	}
	return nil
}

func readCommand(c *cli.Context) (err error) {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer closeWith(store, &err)

	text, err := store.Read(c.Int64("offset"), c.Int64("length"))
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, text)
	return nil
}

func positionCommand(c *cli.Context) (err error) {
	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer closeWith(store, &err)

	pos, err := store.Position()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, pos)
	return nil
}

// openMemory opens the data directory with the configured embedder.
func openMemory(c *cli.Context, opts ...navd.Option) (*navd.Memory, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	opts = append([]navd.Option{navd.WithAIConfig(cfg)}, opts...)
	return navd.Open(c.String("dir"), opts...)
}

func parseSpeaker(s string) (core.SpeakerType, error) {
	switch strings.ToLower(s) {
	case "human":
		return core.SpeakerTypeHuman, nil
	case "ai":
		return core.SpeakerTypeAI, nil
	default:
		return 0, fmt.Errorf("invalid speaker %q: must be human or ai", s)
	}
}

func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	metadata := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata %q: expected key=value", pair)
		}
		metadata[key] = value
	}
	return metadata, nil
}

// maxLineSize bounds a single record read by add --file.
const maxLineSize = 16 << 20

// linesFromFile returns an iterator over non-empty lines in a file.
func linesFromFile(filename string) (iter.Seq[string], func() error, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	seq := func(yield func(string) bool) {
		for scanner.Scan() {
			if scanner.Text() == "" {
				continue
			}
			if !yield(scanner.Text()) {
				return
			}
		}
	}
	done := func() error {
		defer f.Close()
		return scanner.Err()
	}
	return seq, done, nil
}

// linesFromSlice returns an iterator over a slice of strings.
func linesFromSlice(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !yield(line) {
				return
			}
		}
	}
}

// addBatched reads from a source iterator and adds entries in batches.
func addBatched(ctx context.Context, mem *navd.Memory, source iter.Seq[string], batchSize int, opts *navd.AddOptions, added func(*core.Entry)) error {
	batch := make([]string, 0, batchSize)
	flush := func() error {
		entries, err := mem.Add(ctx, batch, opts)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			added(entry)
		}
		batch = batch[:0]
		return nil
	}

	for line := range source {
		batch = append(batch, line)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if len(batch) > 0 {
		return flush()
	}
	return nil
}

func addCommand(c *cli.Context) (err error) {
	speaker, err := parseSpeaker(c.String("speaker"))
	if err != nil {
		return err
	}
	metadata, err := parseMetadata(c.StringSlice("metadata"))
	if err != nil {
		return err
	}
	batchSize := c.Int("batch-size")
	if batchSize < 1 {
		return fmt.Errorf("batch-size must be positive")
	}

	source := linesFromSlice(c.Args().Slice())
	finish := func() error { return nil }
	if path := c.String("file"); path != "" {
		source, finish, err = linesFromFile(path)
		if err != nil {
			return err
		}
	} else if c.NArg() == 0 {
		return fmt.Errorf("provide entries as arguments or with --file")
	}

	mem, err := openMemory(c)
	if err != nil {
		finish()
		return err
	}
	defer closeWith(mem, &err)

	opts := &navd.AddOptions{Speaker: speaker, Metadata: metadata}
	err = addBatched(c.Context, mem, source, batchSize, opts, func(entry *core.Entry) {
		fmt.Fprintf(c.App.Writer, "%d %d %d\n", entry.Id, entry.Offset, entry.Length)
	})
	if finishErr := finish(); err == nil {
		err = finishErr
	}
	if err != nil {
		return err
	}
	return mem.Flush()
}

func getCommand(c *cli.Context) (err error) {
	mem, err := openMemory(c, navd.WithResumePending(false))
	if err != nil {
		return err
	}
	defer closeWith(mem, &err)

	record, err := mem.Get(c.Context, core.ID(c.Uint64("id")))
	if err != nil {
		return err
	}
	printRecord(c, record)
	return nil
}

func recentCommand(c *cli.Context) (err error) {
	mem, err := openMemory(c, navd.WithResumePending(false))
	if err != nil {
		return err
	}
	defer closeWith(mem, &err)

	records, err := mem.Recent(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	for _, record := range records {
		printRecord(c, record)
	}
	return nil
}

func pendingCommand(c *cli.Context) (err error) {
	mem, err := openMemory(c)
	if err != nil {
		return err
	}
	defer closeWith(mem, &err)

	if err := mem.Flush(); err != nil {
		return err
	}
	remaining, err := mem.Pending(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%d pending\n", len(remaining))
	return nil
}

func reembedCommand(c *cli.Context) (err error) {
	mem, err := openMemory(c, navd.WithResumePending(false))
	if err != nil {
		return err
	}
	defer closeWith(mem, &err)

	cfg := reembed.DefaultConfig()
	cfg.BatchSize = c.Int("batch-size")
	cfg.ReportInterval = c.Int("report-interval")
	cfg.MaxRetries = c.Int("max-retries")
	cfg.RetryDelay = c.Duration("retry-delay")
	cfg.Normalize = c.Bool("normalize")
	cfg.OnlyMissing = c.Bool("only-missing")

	_, err = mem.Reembed(c.Context, nil, cfg, c.App.ErrWriter)
	return err
}

func embedCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one text is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	embedder, err := navd.NewEmbedder(cfg)
	if err != nil {
		return err
	}

	texts := c.Args().Slice()
	vectors, err := embedder.EmbedTexts(c.Context, texts)
	if err != nil {
		return err
	}
	for i, vector := range vectors {
		fmt.Fprintf(c.App.Writer, "%d\t%s\n", len(vector), texts[i])
	}
	return nil
}

func printRecord(c *cli.Context, record *navd.Record) {
	embedded := "-"
	if record.Embedded() {
		embedded = "e"
	}
	fmt.Fprintf(c.App.Writer, "%d\t%s\t%s\t%s\t%s\n",
		record.Id,
		record.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		record.Speaker,
		embedded,
		record.Text)
}
