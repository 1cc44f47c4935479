// Package tenant defines how owners, vaults and record coordinates are
// serialized into storage keys, and how structured record values are
// encoded.
package tenant

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// MaxIDLen is the longest owner or vault identifier accepted.
const MaxIDLen = 64

var (
	// ErrInvalidID is returned for empty, oversized or unparsable identifiers.
	ErrInvalidID = errors.New("tenant: invalid identifier")
	// ErrInvalidKey is returned when a stored key does not have the expected shape.
	ErrInvalidKey = errors.New("tenant: invalid storage key")
)

// ID is an opaque owner or vault identifier.
type ID []byte

// ParseID decodes the base58 text form of an identifier.
func ParseID(s string) (ID, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidID, s, err)
	}
	id := ID(b)
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return id, nil
}

// String returns the base58 text form.
func (id ID) String() string {
	return base58.Encode(id)
}

// Validate checks the identifier length.
func (id ID) Validate() error {
	if len(id) == 0 || len(id) > MaxIDLen {
		return fmt.Errorf("%w: length %d", ErrInvalidID, len(id))
	}
	return nil
}

// appendID writes the fixed storage format of an identifier: len:u8 || bytes.
func appendID(buf []byte, id ID) []byte {
	buf = append(buf, uint8(len(id)))
	return append(buf, id...)
}

// readID reads one identifier in storage format and returns the remainder.
func readID(b []byte) (ID, []byte, error) {
	if len(b) == 0 {
		return nil, nil, ErrInvalidKey
	}
	n := int(b[0])
	if n == 0 || n > MaxIDLen || len(b)-1 < n {
		return nil, nil, ErrInvalidKey
	}
	return ID(b[1 : 1+n]), b[1+n:], nil
}
