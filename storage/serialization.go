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


package storage

import (
	"fmt"
	"time"

	"github.com/kgeesawor/discord-intel/core"
	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// IndexedRecordMUS encodes an IndexedRecord as its five string fields in
// declaration order followed by a length-prefixed float32 vector.
var IndexedRecordMUS mus.Serializer[core.IndexedRecord] = indexedRecordMUS{}

// CollectionInfoMUS encodes a CollectionInfo. BuiltAt is stored as Unix
// microseconds in UTC.
var CollectionInfoMUS mus.Serializer[core.CollectionInfo] = collectionInfoMUS{}

// vectorMUS encodes a []float32 as a varint length followed by raw floats.
var vectorMUS = vectorSer{}

// MarshalIndexedRecord serializes an IndexedRecord to bytes.
func MarshalIndexedRecord(record *core.IndexedRecord) []byte {
	buf := make([]byte, IndexedRecordMUS.Size(*record))
	IndexedRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalIndexedRecord deserializes an IndexedRecord from bytes.
func UnmarshalIndexedRecord(data []byte) (*core.IndexedRecord, error) {
	record, _, err := IndexedRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}

// MarshalCollectionInfo serializes a CollectionInfo to bytes.
func MarshalCollectionInfo(info *core.CollectionInfo) []byte {
	buf := make([]byte, CollectionInfoMUS.Size(*info))
	CollectionInfoMUS.Marshal(*info, buf)
	return buf
}

// UnmarshalCollectionInfo deserializes a CollectionInfo from bytes.
func UnmarshalCollectionInfo(data []byte) (*core.CollectionInfo, error) {
	info, _, err := CollectionInfoMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &info, nil
}

type vectorSer struct{}

func (vectorSer) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func (vectorSer) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 || length > len(bs)-n {
		return nil, n, ErrTruncatedData
	}
	v = make([]float32, length)
	var n1 int
	for i := range v {
		v[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

func (vectorSer) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

func (s vectorSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type indexedRecordMUS struct{}

func (indexedRecordMUS) Marshal(v core.IndexedRecord, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Channel, bs[n:])
	n += ord.String.Marshal(v.Author, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += ord.String.Marshal(v.Timestamp, bs[n:])
	return n + vectorMUS.Marshal(v.Vector, bs[n:])
}

func (indexedRecordMUS) Unmarshal(bs []byte) (v core.IndexedRecord, n int, err error) {
	fields := []*string{&v.ID, &v.Channel, &v.Author, &v.Content, &v.Timestamp}
	var n1 int
	for _, f := range fields {
		*f, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return v, n, err
		}
	}
	v.Vector, n1, err = vectorMUS.Unmarshal(bs[n:])
	n += n1
	return v, n, err
}

func (indexedRecordMUS) Size(v core.IndexedRecord) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(v.Channel)
	size += ord.String.Size(v.Author)
	size += ord.String.Size(v.Content)
	size += ord.String.Size(v.Timestamp)
	return size + vectorMUS.Size(v.Vector)
}

func (s indexedRecordMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type collectionInfoMUS struct{}

func (collectionInfoMUS) Marshal(v core.CollectionInfo, bs []byte) (n int) {
	n = ord.String.Marshal(v.Name, bs)
	n += ord.String.Marshal(v.Model, bs[n:])
	n += varint.Int.Marshal(v.Dimension, bs[n:])
	n += varint.Int.Marshal(v.Count, bs[n:])
	return n + varint.Int64.Marshal(builtAtMicros(v.BuiltAt), bs[n:])
}

func (collectionInfoMUS) Unmarshal(bs []byte) (v core.CollectionInfo, n int, err error) {
	var n1 int
	if v.Name, n, err = ord.String.Unmarshal(bs); err != nil {
		return v, n, err
	}
	v.Model, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	v.Dimension, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	v.Count, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	micros, n1, err := varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return v, n, err
	}
	if micros != 0 {
		v.BuiltAt = time.UnixMicro(micros).UTC()
	}
	return v, n, nil
}

func (collectionInfoMUS) Size(v core.CollectionInfo) (size int) {
	size = ord.String.Size(v.Name)
	size += ord.String.Size(v.Model)
	size += varint.Int.Size(v.Dimension)
	size += varint.Int.Size(v.Count)
	return size + varint.Int64.Size(builtAtMicros(v.BuiltAt))
}

func (s collectionInfoMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

func builtAtMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}
