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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kgeesawor/discord-intel/core"
	"github.com/kgeesawor/discord-intel/storage"
)

// Loader reads channel export files into a message store.
type Loader struct {
	store  storage.MessageStore
	clock  func() time.Time
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger.With("component", "loader")
		return nil
	}
}

// WithClock sets the clock used to stamp export_date.
// Default is time.Now.
func WithClock(clock func() time.Time) Option {
	return func(l *Loader) error {
		if clock == nil {
			return errors.New("clock cannot be nil")
		}
		l.clock = clock
		return nil
	}
}

// NewLoader creates a loader writing to store.
func NewLoader(store storage.MessageStore, opts ...Option) (*Loader, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	l := &Loader{
		store:  store,
		clock:  time.Now,
		logger: slog.Default().With("component", "loader"),
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// FileResult is the outcome of loading one export file.
type FileResult struct {
	Path     string
	Channel  string
	Inserted    int
	Skipped     int
	UnknownTime int   // Stored messages whose timestamp could not be parsed
	Err         error // Non-nil when the file was rejected and nothing was written
}

// Report summarizes a load run.
type Report struct {
	Files       int
	Loaded      int
	Skipped     int
	UnknownTime int
	FileErrors  int
	Results     []FileResult
}

func (r *Report) add(res FileResult) {
	r.Files++
	r.Loaded += res.Inserted
	r.Skipped += res.Skipped
	r.UnknownTime += res.UnknownTime
	if res.Err != nil {
		r.FileErrors++
	}
	r.Results = append(r.Results, res)
}

// LoadDir loads every *.json file directly inside dir in lexical order.
// A file that cannot be read or decoded is recorded in the report and the
// run continues with the next file.
func (l *Loader) LoadDir(ctx context.Context, dir string) (*Report, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrExportDirNotFound, dir)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	exportDate := l.clock().Format(core.ExportDateLayout)
	report := &Report{}

	l.logger.Info("loading exports", "dir", dir, "files", len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := l.loadFile(ctx, path, exportDate)
		report.add(res)
	}

	l.logger.Info("load complete",
		"files", report.Files,
		"loaded", report.Loaded,
		"skipped", report.Skipped,
		"file_errors", report.FileErrors)
	return report, nil
}

// LoadFile loads a single export file.
func (l *Loader) LoadFile(ctx context.Context, path string) FileResult {
	return l.loadFile(ctx, path, l.clock().Format(core.ExportDateLayout))
}

func (l *Loader) loadFile(ctx context.Context, path, exportDate string) FileResult {
	res := FileResult{Path: path}
	logger := l.logger.With("file", filepath.Base(path))

	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = err
		logger.Error("reading export file", "error", err)
		return res
	}

	doc, err := decodeExport(data)
	if err != nil {
		res.Err = err
		logger.Error("decoding export file", "error", err)
		return res
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	channel := doc.Channel.toChannel(stem, len(doc.Messages), exportDate)
	res.Channel = channel.Name

	err = l.store.WithTransaction(ctx, func(ctx context.Context) error {
		if channel.ID == "" {
			logger.Warn("export has no channel id, channel row not written")
		} else if err := l.store.UpsertChannel(ctx, channel); err != nil {
			return fmt.Errorf("storing channel: %w", err)
		}

		for i, raw := range doc.Messages {
			msg, err := decodeMessage(raw, channel, exportDate)
			if err != nil {
				res.Skipped++
				logger.Warn("skipping message", "index", i, "error", err)
				continue
			}
			if err := l.store.UpsertMessages(ctx, msg); err != nil {
				res.Skipped++
				logger.Warn("storing message failed", "id", msg.ID, "error", err)
				continue
			}
			res.Inserted++
			if !msg.HasKnownTime() {
				res.UnknownTime++
				logger.Debug("unparsed timestamp", "id", msg.ID, "timestamp", msg.Timestamp)
			}
		}
		return nil
	})
	if err != nil {
		res.Err = err
		res.Inserted = 0
		res.UnknownTime = 0
		logger.Error("loading export file", "error", err)
		return res
	}

	logger.Info("loaded channel", "channel", channel.Name, "inserted", res.Inserted, "skipped", res.Skipped, "unknown_time", res.UnknownTime)
	return res
}
