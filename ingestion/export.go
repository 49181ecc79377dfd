package ingestion

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kgeesawor/discord-intel/core"
)

// exportFile is the top-level document of a channel export.
// Messages are kept raw so one bad entry does not reject the file.
type exportFile struct {
	Channel  exportChannel     `json:"channel"`
	Messages []json.RawMessage `json:"messages"`
}

type exportChannel struct {
	ID       flexString `json:"id"`
	Name     flexString `json:"name"`
	Category flexString `json:"category"`
	Topic    flexString `json:"topic"`
}

type exportMessage struct {
	ID          flexString      `json:"id"`
	Author      exportAuthor    `json:"author"`
	Content     json.RawMessage `json:"content"`
	Timestamp   flexString      `json:"timestamp"`
	Reference   exportReference `json:"reference"`
	Attachments []any           `json:"attachments"`
	Reactions   []exportCount   `json:"reactions"`
	IsPinned    bool            `json:"isPinned"`
}

type exportAuthor struct {
	ID   flexString `json:"id"`
	Name flexString `json:"name"`
}

type exportReference struct {
	MessageID flexString `json:"messageId"`
}

type exportCount struct {
	Count int `json:"count"`
}

// flexString accepts a JSON string, number or null. Snowflake ids appear
// as either strings or numbers depending on the exporter.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

// decodeExport parses an export document.
func decodeExport(data []byte) (*exportFile, error) {
	var doc exportFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidExport, err)
	}
	return &doc, nil
}

// toChannel builds the channel row. The name falls back to the file stem.
func (c exportChannel) toChannel(stem string, messageCount int, exportDate string) *core.Channel {
	name := string(c.Name)
	if name == "" {
		name = stem
	}
	return &core.Channel{
		ID:           string(c.ID),
		Name:         name,
		Category:     string(c.Category),
		Topic:        string(c.Topic),
		MessageCount: messageCount,
		LastExport:   exportDate,
	}
}

// decodeMessage converts one raw entry to a Message belonging to channel.
// An entry that is not an object, has mistyped fields or lacks an id is
// reported as ErrMalformedMessage.
func decodeMessage(raw json.RawMessage, channel *core.Channel, exportDate string) (*core.Message, error) {
	var m exportMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if strings.TrimSpace(string(m.ID)) == "" {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, core.ErrMissingMessageID)
	}

	content, err := decodeContent(m.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: message %s: %w", ErrMalformedMessage, m.ID, err)
	}

	ts, epoch := core.NormalizeTimestamp(string(m.Timestamp))

	reactions := 0
	for _, r := range m.Reactions {
		reactions += r.Count
	}

	var replyTo sql.NullString
	if ref := string(m.Reference.MessageID); ref != "" {
		replyTo = sql.NullString{String: ref, Valid: true}
	}

	return &core.Message{
		ID:               string(m.ID),
		ChannelID:        channel.ID,
		ChannelName:      channel.Name,
		AuthorID:         string(m.Author.ID),
		AuthorName:       string(m.Author.Name),
		Content:          content,
		Timestamp:        ts,
		TimestampEpoch:   epoch,
		ReplyTo:          replyTo,
		AttachmentsCount: len(m.Attachments),
		ReactionsCount:   reactions,
		IsPinned:         m.IsPinned,
		ExportDate:       exportDate,
	}, nil
}

// decodeContent maps an absent content field to "" and an explicit null to NULL.
func decodeContent(raw json.RawMessage) (sql.NullString, error) {
	if len(raw) == 0 {
		return sql.NullString{String: "", Valid: true}, nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return sql.NullString{}, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return sql.NullString{}, fmt.Errorf("content is not a string: %w", err)
	}
	return sql.NullString{String: s, Valid: true}, nil
}

