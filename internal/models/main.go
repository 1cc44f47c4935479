// Package models defines the client-facing views assembled from stored
// vault records. Payload, label and name bytes are opaque ciphertext and
// travel as base64 in JSON.
package models

// Rows maps a row index to a cell payload.
type Rows map[uint8][]byte

// Spreadsheet maps a column index to its rows.
type Spreadsheet map[uint8]Rows

// ColumnInfo holds the display settings of one spreadsheet column.
type ColumnInfo struct {
	// Name is the column's display name.
	Name []byte `json:"name"`
	// Hidden hides the column in the spreadsheet view.
	Hidden bool `json:"hidden"`
}

// Columns maps a column index to its display settings.
type Columns map[uint8]ColumnInfo

// LoginColumn is one credential column: its label and its cells.
type LoginColumn struct {
	Label []byte `json:"label"`
	Rows  Rows   `json:"rows"`
}

// Logins maps a column index to a login column.
type Logins map[uint8]LoginColumn

// Note is one secure note.
type Note struct {
	Label []byte `json:"label"`
	Body  []byte `json:"note"`
}

// Notes maps a note index to its note.
type Notes map[uint8]Note

// VaultNames maps a vault identifier, in text form, to its name.
type VaultNames map[string][]byte

// Vault is the whole content of one vault.
type Vault struct {
	// Name is empty when the vault has no name entry.
	Name        []byte      `json:"name"`
	Spreadsheet Spreadsheet `json:"spreadsheet"`
	Columns     Columns     `json:"columns"`
	Logins      Logins      `json:"logins"`
	Notes       Notes       `json:"notes"`
}

// KeyRequest asks for an owner's vault encryption key.
type KeyRequest struct {
	// Input is the derivation input, at most 1024 bytes.
	Input []byte `json:"input"`
	// Scope is "instance", "owner" or "org".
	Scope string `json:"scope"`
	// ScopeID names the owner or organization for the "owner" and "org" scopes.
	ScopeID string `json:"scope_id,omitempty"`
	// TransportKey is the X25519 public key the derived key is sealed to.
	TransportKey []byte `json:"transport_public_key"`
}

// KeyResponse carries an encrypted key blob.
type KeyResponse struct {
	Key []byte `json:"key"`
}
