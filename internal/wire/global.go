package wire

// GlobalBatch bundles every per-vault update kind into one buffer.
type GlobalBatch struct {
	Columns     []ColumnInfo
	Spreadsheet []Cell
	Notes       []Note
	Logins      LoginBatch
}

// DecodeGlobal parses a composite batch. Layout:
//
//	cols_len:u32   spreadsheet-column-metadata batch
//	sheet_len:u32  cell batch
//	notes_len:u32  secure-note batch
//	               login full sync (remainder of the buffer)
func DecodeGlobal(buf []byte) (GlobalBatch, error) {
	r := newReader("global", buf)
	var g GlobalBatch

	seg, err := lengthPrefixed(r)
	if err != nil {
		return GlobalBatch{}, err
	}
	if g.Columns, err = DecodeColumnInfos(seg); err != nil {
		return GlobalBatch{}, err
	}

	if seg, err = lengthPrefixed(r); err != nil {
		return GlobalBatch{}, err
	}
	if g.Spreadsheet, err = DecodeCells(seg); err != nil {
		return GlobalBatch{}, err
	}

	if seg, err = lengthPrefixed(r); err != nil {
		return GlobalBatch{}, err
	}
	if g.Notes, err = DecodeNotes(seg); err != nil {
		return GlobalBatch{}, err
	}

	if rest := r.rest(); len(rest) > 0 {
		if g.Logins, err = DecodeLogins(rest); err != nil {
			return GlobalBatch{}, err
		}
	}
	return g, nil
}

func lengthPrefixed(r *reader) ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	return r.segment(int(n))
}
