package core

import (
	"database/sql"
	"errors"
	"testing"
)

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		msg     *Message
		wantErr error
	}{
		{
			name:    "valid message",
			msg:     &Message{ID: "1"},
			wantErr: nil,
		},
		{
			name:    "valid message with null content and unknown time",
			msg:     &Message{ID: "1", Timestamp: "garbage"},
			wantErr: nil,
		},
		{
			name:    "nil message",
			msg:     nil,
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "missing id",
			msg:     &Message{Content: sql.NullString{String: "hello", Valid: true}},
			wantErr: ErrMissingMessageID,
		},
		{
			name:    "blank id",
			msg:     &Message{ID: "   "},
			wantErr: ErrMissingMessageID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessage(tt.msg)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateMessage() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMessage() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidMessage) {
				t.Errorf("ValidateMessage() error should wrap ErrInvalidMessage, got %v", err)
			}
		})
	}
}

func TestValidateChannel(t *testing.T) {
	if err := ValidateChannel(&Channel{ID: "c1"}); err != nil {
		t.Errorf("ValidateChannel() error = %v, want nil", err)
	}
	if err := ValidateChannel(&Channel{Name: "general"}); !errors.Is(err, ErrMissingChannelID) {
		t.Errorf("ValidateChannel() error = %v, want %v", err, ErrMissingChannelID)
	}
	if err := ValidateChannel(nil); !errors.Is(err, ErrInvalidChannel) {
		t.Errorf("ValidateChannel() error = %v, want %v", err, ErrInvalidChannel)
	}
}

func TestValidateSafetyStatus(t *testing.T) {
	tests := []struct {
		status  SafetyStatus
		wantErr bool
	}{
		{SafetyStatusSafe, false},
		{SafetyStatusUnsafe, false},
		{SafetyStatusPending, false},
		{"needs_review", false},
		{"", true},
		{" safe", true},
		{"safe\n", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			err := ValidateSafetyStatus(tt.status)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSafetyStatus(%q) error = %v, wantErr %v", tt.status, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSafetyStatus) {
				t.Errorf("ValidateSafetyStatus(%q) error = %v, want %v", tt.status, err, ErrInvalidSafetyStatus)
			}
		})
	}
}

func TestValidateIndexedRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *IndexedRecord
		wantErr error
	}{
		{
			name:    "valid record",
			record:  &IndexedRecord{ID: "1", Content: "hello there", Vector: []float32{0.1}},
			wantErr: nil,
		},
		{
			name:    "nil record",
			record:  nil,
			wantErr: ErrInvalidRecord,
		},
		{
			name:    "missing id",
			record:  &IndexedRecord{Vector: []float32{0.1}},
			wantErr: ErrMissingMessageID,
		},
		{
			name:    "missing vector",
			record:  &IndexedRecord{ID: "1"},
			wantErr: ErrEmptyVector,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIndexedRecord(tt.record)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateIndexedRecord() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateIndexedRecord() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
