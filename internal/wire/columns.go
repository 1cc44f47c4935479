package wire

// FlagHidden marks a spreadsheet column as hidden in the flags byte.
const FlagHidden uint8 = 0x01

// ColumnInfo is the display metadata of one spreadsheet column.
// An empty Name deletes the column's metadata.
type ColumnInfo struct {
	X      uint8
	Hidden bool
	Name   []byte
}

// DecodeColumnInfos parses a spreadsheet-column-metadata batch:
// repeat{size:u16, x:u8, flags:u8, name:size}.
func DecodeColumnInfos(buf []byte) ([]ColumnInfo, error) {
	r := newReader("column info", buf)
	var cols []ColumnInfo
	for r.more() {
		size, err := r.u16()
		if err != nil {
			return nil, err
		}
		x, err := r.u8()
		if err != nil {
			return nil, err
		}
		flags, err := r.u8()
		if err != nil {
			return nil, err
		}
		name, err := r.bytes(int(size))
		if err != nil {
			return nil, err
		}
		cols = append(cols, ColumnInfo{X: x, Hidden: flags&FlagHidden != 0, Name: name})
	}
	return cols, nil
}
