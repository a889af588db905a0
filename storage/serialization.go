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
	"encoding/json"
	"fmt"

	"github.com/poiesic/convergence/core"
)

// MarshalSnapshot serializes a Snapshot to bytes.
func MarshalSnapshot(snapshot *core.Snapshot) []byte {
	buf := make([]byte, core.SnapshotMUS.Size(*snapshot))
	core.SnapshotMUS.Marshal(*snapshot, buf)
	return buf
}

// UnmarshalSnapshot deserializes a Snapshot from bytes.
// Trailing bytes are treated as corruption.
func UnmarshalSnapshot(data []byte) (*core.Snapshot, error) {
	snapshot, n, err := core.SnapshotMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptSnapshot, len(data)-n)
	}
	return &snapshot, nil
}

// MarshalAudit serializes an AuditRecord as JSON so it can be read with
// ordinary tools.
func MarshalAudit(record *core.AuditRecord) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalAudit deserializes an AuditRecord from JSON.
func UnmarshalAudit(data []byte) (*core.AuditRecord, error) {
	var record core.AuditRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}
