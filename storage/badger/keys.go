package badger

import (
	"encoding/binary"
	"fmt"
)

// Key prefixes for different data types
const (
	vectorRecordPrefix = "vecrec"
	vectorMetaPrefix   = "vecmeta"
)

// collectionSegment encodes a collection name with its length so that no
// collection's keys are a prefix of another's ("a" vs "a:b").
func collectionSegment(collection string) string {
	return fmt.Sprintf("%d:%s:", len(collection), collection)
}

// makeRecordPrefix generates the prefix shared by every record of a collection.
// Format: prefix:len:name:
func makeRecordPrefix(collection string) []byte {
	return []byte(vectorRecordPrefix + ":" + collectionSegment(collection))
}

// makeRecordKey generates a key for the record at position pos in a collection.
// Format: prefix:len:name:pos
// Positions are written BigEndian so iteration follows insertion order.
func makeRecordKey(collection string, pos uint64) []byte {
	prefix := makeRecordPrefix(collection)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], pos)
	return buf
}

// makeMetaKey generates the key holding a collection's CollectionInfo.
func makeMetaKey(collection string) []byte {
	return []byte(vectorMetaPrefix + ":" + collectionSegment(collection))
}
