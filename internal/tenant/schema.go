package tenant

// Record keys place the coordinate before the tenant key, so a map is
// ordered by coordinate first and tenant second. Tenant-scoped reads are
// therefore full scans filtered by Key equality.

// CellKey addresses a spreadsheet or login cell: x, y, tenant.
type CellKey struct {
	X      uint8
	Y      uint8
	Tenant Key
}

// Bytes serializes the key.
func (k CellKey) Bytes() []byte {
	buf := make([]byte, 0, 2+k.Tenant.Len())
	buf = append(buf, k.X, k.Y)
	return append(buf, k.Tenant.enc...)
}

// ParseCellKey decodes a stored cell key.
func ParseCellKey(b []byte) (CellKey, error) {
	if len(b) < 2 {
		return CellKey{}, ErrInvalidKey
	}
	t, err := ParseKey(b[2:])
	if err != nil {
		return CellKey{}, err
	}
	return CellKey{X: b[0], Y: b[1], Tenant: t}, nil
}

// IndexKey addresses a per-column or per-index record: index, tenant.
// It is used for login column labels, spreadsheet column info and secure
// notes.
type IndexKey struct {
	Index  uint8
	Tenant Key
}

// Bytes serializes the key.
func (k IndexKey) Bytes() []byte {
	buf := make([]byte, 0, 1+k.Tenant.Len())
	buf = append(buf, k.Index)
	return append(buf, k.Tenant.enc...)
}

// ParseIndexKey decodes a stored index key.
func ParseIndexKey(b []byte) (IndexKey, error) {
	if len(b) < 1 {
		return IndexKey{}, ErrInvalidKey
	}
	t, err := ParseKey(b[1:])
	if err != nil {
		return IndexKey{}, err
	}
	return IndexKey{Index: b[0], Tenant: t}, nil
}

// VaultNameKey is the tenant key alone, so vault names are ordered by
// owner, then vault.
func VaultNameKey(t Key) []byte {
	return t.Bytes()
}

// ParseVaultNameKey decodes a stored vault-name key.
func ParseVaultNameKey(b []byte) (Key, error) {
	return ParseKey(b)
}

// OwnerKey addresses per-owner records such as derived key blobs.
func OwnerKey(owner ID) []byte {
	return OwnerPrefix(owner)
}

// ParseOwnerKey decodes a stored per-owner key.
func ParseOwnerKey(b []byte) (ID, error) {
	id, rest, err := readID(b)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, ErrInvalidKey
	}
	return id, nil
}
