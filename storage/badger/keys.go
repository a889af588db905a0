package badger

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Key prefixes for different data types
const (
	snapshotPrefix        = "taxsnap"
	snapshotCurrentPrefix = "taxcur"
	snapshotGenSeq        = "taxsnapseq"
	auditPrefix           = "audit"
)

// makeSnapshotKey generates the key of one snapshot generation.
// Format: taxsnap:key:generation
func makeSnapshotKey(key string, generation uint64) []byte {
	return []byte(fmt.Sprintf("%s:%s:%d", snapshotPrefix, key, generation))
}

// makeSnapshotCurrentKey generates the pointer key naming the live generation.
// Format: taxcur:key
func makeSnapshotCurrentKey(key string) []byte {
	return []byte(snapshotCurrentPrefix + ":" + key)
}

// makeAuditKey generates a key that sorts audit records by start time.
// Format: audit:unixmicro:runid, the timestamp zero padded.
func makeAuditKey(startedAt time.Time, runID string) []byte {
	return []byte(fmt.Sprintf("%s:%020d:%s", auditPrefix, startedAt.UnixMicro(), runID))
}

func encodeGeneration(generation uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, generation)
	return buf
}

func decodeGeneration(val []byte) (uint64, bool) {
	if len(val) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(val), true
}
