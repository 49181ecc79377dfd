package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kgeesawor/discord-intel/core"
	"github.com/kgeesawor/discord-intel/storage"
	"github.com/kgeesawor/discord-intel/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedClock = func() time.Time {
	return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
}

func setupLoader(t *testing.T) (*Loader, storage.MessageStore) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "discord.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	loader, err := NewLoader(store, WithClock(fixedClock))
	require.NoError(t, err)
	return loader, store
}

func writeExport(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const generalExport = `{
  "channel": {"id": "100", "name": "general", "category": "Community", "topic": "chat"},
  "messages": [
    {
      "id": "1",
      "author": {"id": "u1", "name": "alice"},
      "content": "hello everyone, welcome",
      "timestamp": "2024-01-15T10:30:00.123+00:00",
      "reference": {"messageId": "0"},
      "attachments": [{"url": "a"}, {"url": "b"}],
      "reactions": [{"count": 2}, {"count": 3}],
      "isPinned": true
    },
    {
      "id": "2",
      "author": {"id": "u2", "name": "bob"},
      "timestamp": "2024-01-15T10:31:00"
    },
    {
      "id": "3",
      "author": {"id": "u2", "name": "bob"},
      "content": null,
      "timestamp": "not a date"
    }
  ]
}`

func TestNewLoader(t *testing.T) {
	_, err := NewLoader(nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, store := setupLoader(t)
	_, err = NewLoader(store, WithClock(nil))
	assert.Error(t, err)

	l, err := NewLoader(store, WithLogger(nil))
	require.NoError(t, err)
	assert.NotNil(t, l.logger)
}

func TestLoadDir_StoresMessagesAndChannel(t *testing.T) {
	loader, store := setupLoader(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeExport(t, dir, "general.json", generalExport)

	report, err := loader.LoadDir(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Files)
	assert.Equal(t, 3, report.Loaded)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 0, report.FileErrors)
	assert.Equal(t, 1, report.UnknownTime)

	m, err := store.GetMessage(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "100", m.ChannelID)
	assert.Equal(t, "general", m.ChannelName)
	assert.Equal(t, "alice", m.AuthorName)
	assert.Equal(t, "hello everyone, welcome", m.Content.String)
	assert.Equal(t, "2024-01-15T10:30:00.123+00:00", m.Timestamp)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC).Unix(), m.TimestampEpoch)
	assert.Equal(t, "0", m.ReplyTo.String)
	assert.Equal(t, 2, m.AttachmentsCount)
	assert.Equal(t, 5, m.ReactionsCount)
	assert.True(t, m.IsPinned)
	assert.Equal(t, "2024-02-01 12:00:00", m.ExportDate)
	assert.Equal(t, core.SafetyStatusPending, m.SafetyStatus)

	// Absent content becomes an empty string; naive timestamps read as UTC.
	m, err = store.GetMessage(ctx, "2")
	require.NoError(t, err)
	assert.True(t, m.Content.Valid)
	assert.Equal(t, "", m.Content.String)
	assert.False(t, m.ReplyTo.Valid)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 31, 0, 0, time.UTC).Unix(), m.TimestampEpoch)

	// Explicit null content stays NULL; unparseable timestamps keep epoch 0.
	m, err = store.GetMessage(ctx, "3")
	require.NoError(t, err)
	assert.False(t, m.Content.Valid)
	assert.Equal(t, "not a date", m.Timestamp)
	assert.Equal(t, int64(0), m.TimestampEpoch)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats.Channels, 1)
	ch := stats.Channels[0]
	assert.Equal(t, "general", ch.Name)
	assert.Equal(t, "Community", ch.Category)
	assert.Equal(t, 3, ch.MessageCount)
	assert.Equal(t, "2024-02-01 12:00:00", ch.LastExport)
}

func TestLoadDir_ReloadPreservesClassification(t *testing.T) {
	loader, store := setupLoader(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeExport(t, dir, "general.json", generalExport)

	_, err := loader.LoadDir(ctx, dir)
	require.NoError(t, err)

	n, err := store.Classify(ctx, core.Classification{MessageID: "1", Status: core.SafetyStatusSafe})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	report, err := loader.LoadDir(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Loaded)

	m, err := store.GetMessage(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, core.SafetyStatusSafe, m.SafetyStatus)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Messages)
}

func TestLoadDir_SkipsMalformedMessages(t *testing.T) {
	loader, store := setupLoader(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeExport(t, dir, "mixed.json", `{
	  "channel": {"id": 200},
	  "messages": [
	    {"id": 11, "author": {"id": 7, "name": "carol"}, "content": "numeric ids are fine"},
	    {"author": {"name": "nobody"}, "content": "no id"},
	    {"id": "12", "content": {"text": "wrong type"}},
	    "not an object"
	  ]
	}`)

	report, err := loader.LoadDir(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Loaded)
	assert.Equal(t, 3, report.Skipped)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "mixed", report.Results[0].Channel)

	m, err := store.GetMessage(ctx, "11")
	require.NoError(t, err)
	assert.Equal(t, "200", m.ChannelID)
	assert.Equal(t, "mixed", m.ChannelName)
	assert.Equal(t, "7", m.AuthorID)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats.Channels, 1)
	assert.Equal(t, 4, stats.Channels[0].MessageCount)
}

func TestLoadDir_ContinuesPastBadFiles(t *testing.T) {
	loader, store := setupLoader(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeExport(t, dir, "a-broken.json", `{"channel": `)
	writeExport(t, dir, "b-general.json", generalExport)
	writeExport(t, dir, "notes.txt", `ignored`)

	report, err := loader.LoadDir(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Files)
	assert.Equal(t, 1, report.FileErrors)
	assert.Equal(t, 3, report.Loaded)

	require.Len(t, report.Results, 2)
	assert.Equal(t, "a-broken.json", filepath.Base(report.Results[0].Path))
	assert.ErrorIs(t, report.Results[0].Err, ErrInvalidExport)
	assert.NoError(t, report.Results[1].Err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Messages)
}

func TestLoadDir_EmptyMessagesList(t *testing.T) {
	loader, store := setupLoader(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeExport(t, dir, "quiet.json", `{"channel": {"id": "300", "name": "quiet"}}`)

	report, err := loader.LoadDir(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Loaded)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats.Channels, 1)
	assert.Equal(t, 0, stats.Channels[0].MessageCount)
}

func TestLoadDir_BadDirectory(t *testing.T) {
	loader, _ := setupLoader(t)
	ctx := context.Background()

	_, err := loader.LoadDir(ctx, filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrExportDirNotFound)

	file := writeExport(t, t.TempDir(), "x.json", `{}`)
	_, err = loader.LoadDir(ctx, file)
	assert.ErrorIs(t, err, ErrNotADirectory)
}

func TestLoadFile(t *testing.T) {
	loader, _ := setupLoader(t)
	path := writeExport(t, t.TempDir(), "general.json", generalExport)

	res := loader.LoadFile(context.Background(), path)
	require.NoError(t, res.Err)
	assert.Equal(t, "general", res.Channel)
	assert.Equal(t, 3, res.Inserted)

	res = loader.LoadFile(context.Background(), filepath.Join(t.TempDir(), "gone.json"))
	assert.Error(t, res.Err)
}
