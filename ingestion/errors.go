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

import "errors"

var (
	// ErrStoreRequired is returned when a message store is not provided.
	ErrStoreRequired = errors.New("message store required")

	// ErrExportDirNotFound is returned when the export directory does not exist.
	ErrExportDirNotFound = errors.New("export directory not found")

	// ErrNotADirectory is returned when the export path is not a directory.
	ErrNotADirectory = errors.New("export path is not a directory")

	// ErrInvalidExport is returned when an export file cannot be decoded.
	ErrInvalidExport = errors.New("invalid export file")

	// ErrMalformedMessage marks a message entry that cannot be stored.
	ErrMalformedMessage = errors.New("malformed message")
)
