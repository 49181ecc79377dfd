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
	"strings"
	"time"
)

// ExportDateLayout is the layout of the export_date column.
const ExportDateLayout = "2006-01-02 15:04:05"

// timestampLayouts are tried in order. Fractional seconds are accepted by
// time.Parse after the seconds field even when the layout omits them.
var timestampLayouts = []struct {
	layout string
	loc    *time.Location
}{
	{"2006-01-02T15:04:05Z0700", nil},
	{"2006-01-02T15:04:05Z07:00", nil},
	{"2006-01-02T15:04:05", time.UTC},
}

// NormalizeTimestamp parses an export timestamp.
//
// It returns the input string unchanged together with its Unix epoch in
// seconds. Inputs that match none of the accepted layouts yield epoch 0,
// which callers must treat as "unknown time". It never fails.
//
// Accepted forms, after "+00:00" is rewritten to "+0000":
//   - 2024-01-15T10:30:00.123456+0000
//   - 2024-01-15T10:30:00+0000 or 2024-01-15T10:30:00Z
//   - 2024-01-15T10:30:00-05:00
//   - 2024-01-15T10:30:00 (no offset, read as UTC)
func NormalizeTimestamp(s string) (string, int64) {
	candidate := strings.TrimSpace(strings.Replace(s, "+00:00", "+0000", 1))
	if candidate == "" {
		return s, 0
	}

	for _, l := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if l.loc != nil {
			t, err = time.ParseInLocation(l.layout, candidate, l.loc)
		} else {
			t, err = time.Parse(l.layout, candidate)
		}
		if err == nil {
			return s, t.Unix()
		}
	}

	return s, 0
}
