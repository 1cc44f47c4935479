package wire

// ColumnLabel is the metadata of one login column. An empty Label deletes
// the column together with every login cell stored under it.
type ColumnLabel struct {
	X     uint8
	Label []byte
}

// LoginBatch is a login full sync: column metadata followed by cells.
type LoginBatch struct {
	Columns []ColumnLabel
	Cells   []Cell
}

// DecodeColumnLabels parses a login-metadata batch: repeat{size:u16, x:u8, label:size}.
func DecodeColumnLabels(buf []byte) ([]ColumnLabel, error) {
	r := newReader("login metadata", buf)
	var cols []ColumnLabel
	for r.more() {
		size, err := r.u16()
		if err != nil {
			return nil, err
		}
		x, err := r.u8()
		if err != nil {
			return nil, err
		}
		label, err := r.bytes(int(size))
		if err != nil {
			return nil, err
		}
		cols = append(cols, ColumnLabel{X: x, Label: label})
	}
	return cols, nil
}

// DecodeLogins parses a login full sync:
// meta_len:u32, login-metadata batch (meta_len bytes), cell batch (remainder).
func DecodeLogins(buf []byte) (LoginBatch, error) {
	r := newReader("login", buf)
	n, err := r.u32()
	if err != nil {
		return LoginBatch{}, err
	}
	meta, err := r.segment(int(n))
	if err != nil {
		return LoginBatch{}, err
	}
	cols, err := DecodeColumnLabels(meta)
	if err != nil {
		return LoginBatch{}, err
	}
	cells, err := DecodeCells(r.rest())
	if err != nil {
		return LoginBatch{}, err
	}
	return LoginBatch{Columns: cols, Cells: cells}, nil
}
