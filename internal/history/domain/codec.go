package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Codec round-trips a Snapshot through an opaque payload.
type Codec interface {
	Encode(Snapshot) ([]byte, error)
	Decode([]byte) (Snapshot, error)
}

type JSONCodec struct{}

func (JSONCodec) Encode(s Snapshot) ([]byte, error) {
	if s.Items == nil {
		s.Items = []SnapshotItem{}
	}
	return json.Marshal(s)
}

func (JSONCodec) Decode(payload []byte) (Snapshot, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || string(trimmed) == PlaceholderPayload {
		return Snapshot{}, ErrSnapshotDecode
	}

	var s Snapshot
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrSnapshotDecode, err)
	}
	return s, nil
}
