// Package cdcevent decodes the change-event envelopes a Debezium connector
// writes to the broker, for use in test assertions.
package cdcevent

import (
	"encoding/json"
	"fmt"
)

// Operation codes carried in the envelope's "op" field.
const (
	OpCreate = "c" // row inserted
	OpUpdate = "u" // row updated
	OpDelete = "d" // row deleted
	OpRead   = "r" // row read during initial snapshot
)

// Source identifies where a change event originated.
type Source struct {
	Version   string `json:"version"`
	Connector string `json:"connector"`
	Name      string `json:"name"`
	TsMs      int64  `json:"ts_ms"`
	Snapshot  string `json:"snapshot,omitempty"`
	DB        string `json:"db"`
	Schema    string `json:"schema,omitempty"`
	Table     string `json:"table"`
	// Postgres position
	LSN int64 `json:"lsn,omitempty"`
	// MySQL position
	File string `json:"file,omitempty"`
	Pos  int64  `json:"pos,omitempty"`
}

// Payload is the inner change-event document: row images around the
// change, its origin, and the operation code.
type Payload struct {
	Before map[string]any `json:"before"`
	After  map[string]any `json:"after"`
	Source Source         `json:"source"`
	Op     string         `json:"op"`
	TsMs   int64          `json:"ts_ms"`
}

// Envelope is a full change event as serialized by the JSON converter.
// When the converter runs with schemas disabled the record value is the
// bare Payload; Parse handles both forms.
type Envelope struct {
	Schema  json.RawMessage `json:"schema,omitempty"`
	Payload Payload         `json:"payload"`
}

// Key is the record-key envelope, carrying the primary key columns of the
// changed row.
type Key struct {
	Schema  json.RawMessage `json:"schema,omitempty"`
	Payload map[string]any  `json:"payload"`
}

// Parse decodes a record value into an Envelope. Values produced with
// schemas disabled (a bare payload document) are detected and wrapped.
func Parse(value []byte) (*Envelope, error) {
	if len(value) == 0 {
		return nil, fmt.Errorf("empty record value")
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(value, &probe); err != nil {
		return nil, fmt.Errorf("record value is not a JSON object: %w", err)
	}

	var env Envelope
	if _, hasPayload := probe["payload"]; hasPayload {
		if err := json.Unmarshal(value, &env); err != nil {
			return nil, fmt.Errorf("failed to decode change-event envelope: %w", err)
		}
	} else {
		if err := json.Unmarshal(value, &env.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode change-event payload: %w", err)
		}
	}

	switch env.Payload.Op {
	case OpCreate, OpUpdate, OpDelete, OpRead:
	case "":
		return nil, fmt.Errorf("change event has no operation code")
	default:
		return nil, fmt.Errorf("unknown operation code %q", env.Payload.Op)
	}

	return &env, nil
}

// ParseKey decodes a record key into a Key. Tombstone records (nil value,
// nil-less key) still carry a key; a nil key is an error.
func ParseKey(key []byte) (*Key, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("empty record key")
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(key, &probe); err != nil {
		return nil, fmt.Errorf("record key is not a JSON object: %w", err)
	}

	var k Key
	if _, hasPayload := probe["payload"]; hasPayload {
		if err := json.Unmarshal(key, &k); err != nil {
			return nil, fmt.Errorf("failed to decode key envelope: %w", err)
		}
	} else {
		if err := json.Unmarshal(key, &k.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode key payload: %w", err)
		}
	}

	return &k, nil
}

// AfterString returns the named column from the after image as a string.
// The bool result is false when the column is absent or not a string.
func (p *Payload) AfterString(column string) (string, bool) {
	v, ok := p.After[column]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// AfterInt64 returns the named column from the after image as an int64.
// JSON numbers decode as float64; integral values convert losslessly.
func (p *Payload) AfterInt64(column string) (int64, bool) {
	v, ok := p.After[column]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

// BeforeString returns the named column from the before image as a string.
func (p *Payload) BeforeString(column string) (string, bool) {
	v, ok := p.Before[column]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// IsSnapshot reports whether the event was produced during the initial
// snapshot rather than streamed from the log.
func (p *Payload) IsSnapshot() bool {
	return p.Op == OpRead || (p.Source.Snapshot != "" && p.Source.Snapshot != "false")
}
