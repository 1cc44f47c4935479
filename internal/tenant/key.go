package tenant

import (
	"bytes"
	"fmt"
)

// Key identifies one (owner, vault) pair. Its byte form is the owner
// identifier followed by the vault identifier, each in len:u8 || bytes
// form, so the concatenation is unambiguous.
//
// A Key is immutable and comparable with ==.
type Key struct {
	enc string
}

// NewKey builds the tenant key for owner and vault.
func NewKey(owner, vault ID) (Key, error) {
	if err := owner.Validate(); err != nil {
		return Key{}, fmt.Errorf("owner: %w", err)
	}
	if err := vault.Validate(); err != nil {
		return Key{}, fmt.Errorf("vault: %w", err)
	}
	buf := make([]byte, 0, 2+len(owner)+len(vault))
	buf = appendID(buf, owner)
	buf = appendID(buf, vault)
	return Key{enc: string(buf)}, nil
}

// MustKey is NewKey for identifiers known to be valid.
func MustKey(owner, vault ID) Key {
	k, err := NewKey(owner, vault)
	if err != nil {
		panic(err)
	}
	return k
}

// ParseKey decodes a tenant key from its byte form. The whole of b must
// be consumed.
func ParseKey(b []byte) (Key, error) {
	_, rest, err := readID(b)
	if err != nil {
		return Key{}, err
	}
	_, rest, err = readID(rest)
	if err != nil {
		return Key{}, err
	}
	if len(rest) != 0 {
		return Key{}, ErrInvalidKey
	}
	return Key{enc: string(b)}, nil
}

// IsZero reports whether k was never constructed.
func (k Key) IsZero() bool { return k.enc == "" }

// Bytes returns a copy of the key's byte form.
func (k Key) Bytes() []byte { return []byte(k.enc) }

// Len is the length of the byte form.
func (k Key) Len() int { return len(k.enc) }

// Owner returns the owner identifier.
func (k Key) Owner() ID {
	id, _, _ := readID([]byte(k.enc))
	return id
}

// Vault returns the vault identifier.
func (k Key) Vault() ID {
	_, rest, _ := readID([]byte(k.enc))
	id, _, _ := readID(rest)
	return id
}

// Matches reports whether b is exactly this key's byte form.
func (k Key) Matches(b []byte) bool {
	return string(b) == k.enc
}

// OwnerPrefix returns the storage-format owner identifier, which is the
// leading part of every tenant key belonging to owner.
func OwnerPrefix(owner ID) []byte {
	return appendID(nil, owner)
}

// HasOwner reports whether the tenant key in b belongs to owner.
func HasOwner(b []byte, owner ID) bool {
	return bytes.HasPrefix(b, OwnerPrefix(owner))
}

func (k Key) String() string {
	return k.Owner().String() + "/" + k.Vault().String()
}
