package wire

// VaultName assigns a display name to one of the caller's vaults.
// An empty Name removes the vault's name entry.
type VaultName struct {
	VaultID []byte
	Name    []byte
}

// DecodeVaultNames parses a vault-name batch:
// repeat{plen:u8, nlen:u16, vault_id:plen, name:nlen}.
func DecodeVaultNames(buf []byte) ([]VaultName, error) {
	r := newReader("vault name", buf)
	var names []VaultName
	for r.more() {
		plen, err := r.u8()
		if err != nil {
			return nil, err
		}
		nlen, err := r.u16()
		if err != nil {
			return nil, err
		}
		id, err := r.bytes(int(plen))
		if err != nil {
			return nil, err
		}
		name, err := r.bytes(int(nlen))
		if err != nil {
			return nil, err
		}
		names = append(names, VaultName{VaultID: id, Name: name})
	}
	return names, nil
}
