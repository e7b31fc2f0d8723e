package badger

import (
	"encoding/binary"
)

// Key prefixes for different data types
const (
	recordPrefix         = "rec:"
	recordPositionPrefix = "recpos:"
	recordPositionSeq    = "recseq"
)

// makeRecordKey generates a key for a record by id.
func makeRecordKey(id string) []byte {
	buf := make([]byte, len(recordPrefix)+len(id))
	offset := copy(buf, recordPrefix)
	copy(buf[offset:], id)
	return buf
}

// makePositionKey generates a key for the insertion order index.
// Format: prefix:position
func makePositionKey(pos uint64) []byte {
	prefixBytes := []byte(recordPositionPrefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], pos)
	return buf
}
