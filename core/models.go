package core

import (
	"database/sql"
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a stable 64-bit key derived from a message identifier.
// Vector index backends that cannot key by string use it as the record key.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SafetyStatus is the classification assigned to a message by the external
// safety classifier. The set is open; only SafetyStatusSafe is ever indexed.
type SafetyStatus string

const (
	// SafetyStatusPending is the status of every message on first insert.
	SafetyStatusPending SafetyStatus = "pending"
	// SafetyStatusSafe marks a message as approved for indexing.
	SafetyStatusSafe SafetyStatus = "safe"
	// SafetyStatusUnsafe marks a message as rejected by the classifier.
	SafetyStatusUnsafe SafetyStatus = "unsafe"
)

// MinIndexableContentLength is the shortest content, in characters, that is
// embedded and indexed. Shorter fragments are treated as noise.
const MinIndexableContentLength = 10

// DefaultCollection is the vector collection written by the indexer and read by search.
const DefaultCollection = "discord_messages"

// Message is the canonical relational form of a single exported chat message.
// Fields up to ExportDate are owned by ingestion; the Safety* fields are owned
// by the external classifier and are never written during ingestion.
type Message struct {
	ID               string         `db:"id"`
	ChannelID        string         `db:"channel_id"`
	ChannelName      string         `db:"channel_name"`
	AuthorID         string         `db:"author_id"`
	AuthorName       string         `db:"author_name"`
	Content          sql.NullString `db:"content"`
	Timestamp        string         `db:"timestamp"`       // Verbatim timestamp from the export
	TimestampEpoch   int64          `db:"timestamp_epoch"` // 0 when the timestamp could not be parsed
	ReplyTo          sql.NullString `db:"reply_to"`
	AttachmentsCount int            `db:"attachments_count"`
	ReactionsCount   int            `db:"reactions_count"`
	IsPinned         bool           `db:"is_pinned"`
	ExportDate       string         `db:"export_date"`

	SafetyStatus SafetyStatus    `db:"safety_status"`
	SafetyScore  sql.NullFloat64 `db:"safety_score"`
	SafetyFlags  sql.NullString  `db:"safety_flags"`
}

// HasKnownTime reports whether the message timestamp was parsed.
// An epoch of 0 means "unknown", not 1970-01-01.
func (m *Message) HasKnownTime() bool {
	return m.TimestampEpoch != 0
}

// Channel is the canonical relational form of an exported channel.
type Channel struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Category     string `db:"category"`
	Topic        string `db:"topic"`
	MessageCount int    `db:"message_count"` // Messages in the most recent export batch
	LastExport   string `db:"last_export"`
}

// Classification is a safety decision written by the external classifier.
type Classification struct {
	MessageID string
	Status    SafetyStatus
	Score     *float64 // nil leaves the stored score unchanged
	Flags     *string  // nil leaves the stored flags unchanged
}

// IndexedRecord is the vector-index projection of a safe message.
type IndexedRecord struct {
	ID        string
	Channel   string
	Author    string
	Content   string
	Timestamp string
	Vector    []float32
}

// Key returns the 64-bit key of the record derived from its message ID.
func (r *IndexedRecord) Key() ID {
	return IDFromContent(r.ID)
}

// CollectionInfo describes a built vector collection.
type CollectionInfo struct {
	Name      string
	Model     string // Embedding model used to build the collection, empty if unknown
	Dimension int
	Count     int
	BuiltAt   time.Time
}

// SearchFilter restricts a vector search to exact metadata matches.
// Empty fields impose no restriction; set fields are ANDed.
type SearchFilter struct {
	Channel string
	Author  string
}

// Matches reports whether a record satisfies every set field of the filter.
func (f SearchFilter) Matches(record *IndexedRecord) bool {
	if f.Channel != "" && record.Channel != f.Channel {
		return false
	}
	if f.Author != "" && record.Author != f.Author {
		return false
	}
	return true
}

// SearchHit is a single search result. Lower Distance means more similar.
type SearchHit struct {
	Record   *IndexedRecord
	Distance float32
}
