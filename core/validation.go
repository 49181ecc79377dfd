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


package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidateMessage validates a Message according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//
// NOT validated (export data is accepted as-is):
//   - Content (may be null or empty)
//   - Timestamp (unparseable timestamps get epoch 0)
//   - ReplyTo (may reference a message that is not stored)
func ValidateMessage(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}

	if strings.TrimSpace(msg.ID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrMissingMessageID)
	}

	return nil
}

// ValidateChannel validates a Channel according to domain rules.
func ValidateChannel(ch *Channel) error {
	if ch == nil {
		return fmt.Errorf("%w: channel is nil", ErrInvalidChannel)
	}

	if strings.TrimSpace(ch.ID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChannel, ErrMissingChannelID)
	}

	return nil
}

// ValidateSafetyStatus checks that a status can be stored.
// The status set is open: any non-blank value without surrounding
// whitespace is accepted.
func ValidateSafetyStatus(status SafetyStatus) error {
	s := string(status)
	if s == "" || strings.TrimSpace(s) != s {
		return fmt.Errorf("%w: %q", ErrInvalidSafetyStatus, s)
	}
	return nil
}

// ValidateIndexedRecord validates a record before it is written to a vector index.
func ValidateIndexedRecord(record *IndexedRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if record.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrMissingMessageID)
	}

	if len(record.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyVector)
	}

	return nil
}

// IsIndexable reports whether a message passes the safety gate: it is
// classified safe and its content has at least MinIndexableContentLength
// characters.
func IsIndexable(msg *Message) bool {
	if msg == nil || msg.SafetyStatus != SafetyStatusSafe || !msg.Content.Valid {
		return false
	}
	return utf8.RuneCountInString(msg.Content.String) >= MinIndexableContentLength
}
