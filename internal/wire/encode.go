package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrTooLarge is returned by encoders when a field does not fit its length prefix.
var ErrTooLarge = errors.New("wire: field too large")

func checkLen(what string, n, limit int) error {
	if n > limit {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, what, n, limit)
	}
	return nil
}

// EncodeCells builds a cell batch.
func EncodeCells(cells []Cell) ([]byte, error) {
	var buf []byte
	for _, c := range cells {
		if err := checkLen("cell payload", len(c.Data), math.MaxUint16); err != nil {
			return nil, err
		}
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(c.Data)))
		buf = append(buf, c.X, c.Y)
		buf = append(buf, c.Data...)
	}
	return buf, nil
}

// EncodeCoords builds a coordinate-delete batch.
func EncodeCoords(coords []Coord) []byte {
	buf := make([]byte, 0, 2*len(coords))
	for _, c := range coords {
		buf = append(buf, c.X, c.Y)
	}
	return buf
}

// EncodeColumnLabels builds a login-metadata batch.
func EncodeColumnLabels(cols []ColumnLabel) ([]byte, error) {
	var buf []byte
	for _, c := range cols {
		if err := checkLen("column label", len(c.Label), math.MaxUint16); err != nil {
			return nil, err
		}
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(c.Label)))
		buf = append(buf, c.X)
		buf = append(buf, c.Label...)
	}
	return buf, nil
}

// EncodeLogins builds a login full sync.
func EncodeLogins(b LoginBatch) ([]byte, error) {
	meta, err := EncodeColumnLabels(b.Columns)
	if err != nil {
		return nil, err
	}
	cells, err := EncodeCells(b.Cells)
	if err != nil {
		return nil, err
	}
	buf := binary.BigEndian.AppendUint32(nil, uint32(len(meta)))
	buf = append(buf, meta...)
	return append(buf, cells...), nil
}

// EncodeVaultNames builds a vault-name batch.
func EncodeVaultNames(names []VaultName) ([]byte, error) {
	var buf []byte
	for _, n := range names {
		if err := checkLen("vault id", len(n.VaultID), math.MaxUint8); err != nil {
			return nil, err
		}
		if err := checkLen("vault name", len(n.Name), math.MaxUint16); err != nil {
			return nil, err
		}
		buf = append(buf, uint8(len(n.VaultID)))
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(n.Name)))
		buf = append(buf, n.VaultID...)
		buf = append(buf, n.Name...)
	}
	return buf, nil
}

// EncodeNotes builds a secure-note batch.
func EncodeNotes(notes []Note) ([]byte, error) {
	var buf []byte
	for _, n := range notes {
		if err := checkLen("note label", len(n.Label), math.MaxUint8); err != nil {
			return nil, err
		}
		if err := checkLen("note body", len(n.Body), math.MaxUint16); err != nil {
			return nil, err
		}
		buf = append(buf, uint8(len(n.Label)))
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(n.Body)))
		buf = append(buf, n.Index)
		buf = append(buf, n.Label...)
		buf = append(buf, n.Body...)
	}
	return buf, nil
}

// EncodeColumnInfos builds a spreadsheet-column-metadata batch.
func EncodeColumnInfos(cols []ColumnInfo) ([]byte, error) {
	var buf []byte
	for _, c := range cols {
		if err := checkLen("column name", len(c.Name), math.MaxUint16); err != nil {
			return nil, err
		}
		var flags uint8
		if c.Hidden {
			flags |= FlagHidden
		}
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(c.Name)))
		buf = append(buf, c.X, flags)
		buf = append(buf, c.Name...)
	}
	return buf, nil
}

// EncodeGlobal builds a composite batch. The login segment is omitted
// when it carries no columns and no cells.
func EncodeGlobal(g GlobalBatch) ([]byte, error) {
	cols, err := EncodeColumnInfos(g.Columns)
	if err != nil {
		return nil, err
	}
	sheet, err := EncodeCells(g.Spreadsheet)
	if err != nil {
		return nil, err
	}
	notes, err := EncodeNotes(g.Notes)
	if err != nil {
		return nil, err
	}
	var buf []byte
	for _, seg := range [][]byte{cols, sheet, notes} {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(seg)))
		buf = append(buf, seg...)
	}
	if len(g.Logins.Columns) == 0 && len(g.Logins.Cells) == 0 {
		return buf, nil
	}
	logins, err := EncodeLogins(g.Logins)
	if err != nil {
		return nil, err
	}
	return append(buf, logins...), nil
}
