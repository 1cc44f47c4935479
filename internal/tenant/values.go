package tenant

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Cell payloads, login column labels, vault names and key blobs are
// stored as raw bytes. Values with more than one field are msgpack.

// ColumnInfo is the stored value of a spreadsheet column's display metadata.
type ColumnInfo struct {
	Hidden bool   `msgpack:"h"`
	Name   []byte `msgpack:"n"`
}

// Note is the stored value of a secure note.
type Note struct {
	Label []byte `msgpack:"l"`
	Body  []byte `msgpack:"b"`
}

// Owner is the stored value of an owner registry entry.
type Owner struct {
	RegisteredAt time.Time `msgpack:"t"`
}

// EncodeValue serializes a structured record value.
func EncodeValue(v any) ([]byte, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return b, nil
}

// DecodeValue deserializes a structured record value into v.
func DecodeValue(b []byte, v any) error {
	if err := msgpack.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
