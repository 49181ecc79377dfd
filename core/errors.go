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

import "errors"

// Domain validation errors
var (
	// ErrInvalidMessage indicates a Message failed validation.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrMissingMessageID indicates a message has no identifier.
	ErrMissingMessageID = errors.New("message id cannot be empty")

	// ErrInvalidChannel indicates a Channel failed validation.
	ErrInvalidChannel = errors.New("invalid channel")

	// ErrMissingChannelID indicates a channel has no identifier.
	ErrMissingChannelID = errors.New("channel id cannot be empty")

	// ErrInvalidSafetyStatus indicates an empty or malformed safety status.
	ErrInvalidSafetyStatus = errors.New("invalid safety status")

	// ErrInvalidRecord indicates an IndexedRecord failed validation.
	ErrInvalidRecord = errors.New("invalid indexed record")

	// ErrEmptyVector indicates a record carries no embedding.
	ErrEmptyVector = errors.New("vector cannot be empty")
)
