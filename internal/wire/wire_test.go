package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func someSpreadsheetData() []byte {
	return []byte{
		0x00, 0x0F, 0x00, 0x02, 't', 'h', 'e', ' ', 'q', 'u', 'i', 'c', 'k', ' ', 'b', 'r', 'o', 'w', 'n',
		0x00, 0x00, 0x03, 0x04,
		0x00, 0x17, 0x0B, 0x05, 'f', 'o', 'x', ' ', 'j', 'u', 'm', 'p', 's', ' ', 'o', 'v', 'e', 'r', ' ', 't', 'h', 'e', ' ', 'l', 'a', 'z', 'y',
		0x00, 0x03, 0x04, 0x6B, 'd', 'o', 'g',
	}
}

func TestDecodeCells(t *testing.T) {
	cells, err := DecodeCells(someSpreadsheetData())
	require.NoError(t, err)
	require.Len(t, cells, 4)

	assert.Equal(t, Cell{X: 0, Y: 2, Data: []byte("the quick brown")}, cells[0])
	assert.Equal(t, uint8(3), cells[1].X)
	assert.Equal(t, uint8(4), cells[1].Y)
	assert.Empty(t, cells[1].Data)
	assert.Equal(t, Cell{X: 11, Y: 5, Data: []byte("fox jumps over the lazy")}, cells[2])
	assert.Equal(t, Cell{X: 4, Y: 107, Data: []byte("dog")}, cells[3])
}

func TestDecodeCells_Empty(t *testing.T) {
	cells, err := DecodeCells(nil)
	require.NoError(t, err)
	assert.Empty(t, cells)
}

func TestDecodeCells_DoesNotAliasInput(t *testing.T) {
	buf := []byte{0x00, 0x02, 0x00, 0x02, 'h', 'e'}
	cells, err := DecodeCells(buf)
	require.NoError(t, err)
	buf[4] = 'X'
	assert.Equal(t, []byte("he"), cells[0].Data)
}

func TestDecodeCells_Malformed(t *testing.T) {
	cases := []struct {
		name string
		buf  []byte
	}{
		{"truncated header", []byte{0x00, 0x02, 0x00}},
		{"single byte", []byte{0x00}},
		{"payload shorter than size", []byte{0x00, 0x05, 0x01, 0x01, 'a', 'b'}},
		{"valid then truncated", append(someSpreadsheetData(), 0x00, 0x01)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeCells(tc.buf)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestDecodeCoords(t *testing.T) {
	coords, err := DecodeCoords([]byte{3, 4, 0, 255})
	require.NoError(t, err)
	assert.Equal(t, []Coord{{X: 3, Y: 4}, {X: 0, Y: 255}}, coords)

	_, err = DecodeCoords([]byte{3, 4, 5})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeColumnLabels(t *testing.T) {
	buf := []byte{
		0x00, 0x0F, 0x00, 't', 'h', 'e', ' ', 'q', 'u', 'i', 'c', 'k', ' ', 'b', 'r', 'o', 'w', 'n',
		0x00, 0x00, 0x01,
		0x00, 0x03, 0x02, 'd', 'o', 'g',
	}
	cols, err := DecodeColumnLabels(buf)
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, ColumnLabel{X: 0, Label: []byte("the quick brown")}, cols[0])
	assert.Equal(t, uint8(1), cols[1].X)
	assert.Empty(t, cols[1].Label)
	assert.Equal(t, ColumnLabel{X: 2, Label: []byte("dog")}, cols[2])

	_, err = DecodeColumnLabels([]byte{0x00, 0x04, 0x01, 'a'})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeLogins(t *testing.T) {
	in := LoginBatch{
		Columns: []ColumnLabel{{X: 5, Label: []byte("site")}},
		Cells:   []Cell{{X: 5, Y: 1, Data: []byte("user")}, {X: 5, Y: 2}},
	}
	buf, err := EncodeLogins(in)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x07}, buf[:4])

	out, err := DecodeLogins(buf)
	require.NoError(t, err)
	require.Len(t, out.Columns, 1)
	assert.Equal(t, in.Columns[0], out.Columns[0])
	require.Len(t, out.Cells, 2)
	assert.Equal(t, in.Cells[0], out.Cells[0])
	assert.Empty(t, out.Cells[1].Data)
}

func TestDecodeLogins_MetadataLengthPastEnd(t *testing.T) {
	_, err := DecodeLogins([]byte{0x00, 0x00, 0x00, 0x09, 0x00, 0x01, 0x02, 'a'})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeVaultNames(t *testing.T) {
	buf := []byte{0x02, 0x00, 0x05, 0xAA, 0xBB, 'f', 'i', 'r', 's', 't', 0x01, 0x00, 0x00, 0xCC}
	names, err := DecodeVaultNames(buf)
	require.NoError(t, err)
	require.Len(t, names, 2)
	assert.Equal(t, []byte{0xAA, 0xBB}, names[0].VaultID)
	assert.Equal(t, []byte("first"), names[0].Name)
	assert.Equal(t, []byte{0xCC}, names[1].VaultID)
	assert.Empty(t, names[1].Name)

	_, err = DecodeVaultNames(buf[:len(buf)-1])
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeNotes(t *testing.T) {
	buf := []byte{
		0x05, 0x00, 0x0e, 0x00, 'l', 'a', 'b', 'e', 'l', 's', 'o', 'm', 'e', ' ', 'n', 'o', 't', 'e', ' ', 'd', 'a', 't', 'a',
		0x02, 0x00, 0x05, 0x01, 'l', 'a', 's', 'o', 'm', 'e', ' ',
	}
	notes, err := DecodeNotes(buf)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, Note{Index: 0, Label: []byte("label"), Body: []byte("some note data")}, notes[0])
	assert.Equal(t, Note{Index: 1, Label: []byte("la"), Body: []byte("some ")}, notes[1])

	_, err = DecodeNotes(buf[:5])
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeColumnInfos(t *testing.T) {
	buf := []byte{0x00, 0x04, 0x02, 0x01, 'n', 'a', 'm', 'e', 0x00, 0x01, 0x03, 0x00, 'z'}
	cols, err := DecodeColumnInfos(buf)
	require.NoError(t, err)
	assert.Equal(t, []ColumnInfo{
		{X: 2, Hidden: true, Name: []byte("name")},
		{X: 3, Hidden: false, Name: []byte("z")},
	}, cols)

	_, err = DecodeColumnInfos([]byte{0x00, 0x01, 0x03})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestGlobalRoundTrip(t *testing.T) {
	in := GlobalBatch{
		Columns:     []ColumnInfo{{X: 1, Hidden: true, Name: []byte("pin")}},
		Spreadsheet: []Cell{{X: 0, Y: 2, Data: []byte("he")}},
		Notes:       []Note{{Index: 7, Label: []byte("wifi"), Body: []byte("hunter2")}},
		Logins: LoginBatch{
			Columns: []ColumnLabel{{X: 5, Label: []byte("site")}},
			Cells:   []Cell{{X: 5, Y: 1, Data: []byte("user")}},
		},
	}
	buf, err := EncodeGlobal(in)
	require.NoError(t, err)

	out, err := DecodeGlobal(buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeGlobal_WithoutLogins(t *testing.T) {
	buf, err := EncodeGlobal(GlobalBatch{Spreadsheet: []Cell{{X: 1, Y: 1, Data: []byte("a")}}})
	require.NoError(t, err)

	out, err := DecodeGlobal(buf)
	require.NoError(t, err)
	assert.Len(t, out.Spreadsheet, 1)
	assert.Empty(t, out.Logins.Columns)
	assert.Empty(t, out.Logins.Cells)
}

func TestDecodeGlobal_Malformed(t *testing.T) {
	cases := []struct {
		name string
		buf  []byte
	}{
		{"short prefix", []byte{0x00, 0x00}},
		{"segment past end", []byte{0x00, 0x00, 0x00, 0x10, 0x00}},
		{"bad inner segment", []byte{0x00, 0x00, 0x00, 0x02, 0x00, 0x05, 0, 0, 0, 0, 0, 0, 0, 0}},
		{"missing notes prefix", []byte{0, 0, 0, 0, 0, 0, 0, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeGlobal(tc.buf)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestEncoders_TooLarge(t *testing.T) {
	_, err := EncodeCells([]Cell{{Data: make([]byte, 1<<16)}})
	require.ErrorIs(t, err, ErrTooLarge)

	_, err = EncodeNotes([]Note{{Label: make([]byte, 256)}})
	require.ErrorIs(t, err, ErrTooLarge)

	_, err = EncodeVaultNames([]VaultName{{VaultID: make([]byte, 256), Name: []byte("x")}})
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestEncodeCells_MatchesDecoder(t *testing.T) {
	cells, err := DecodeCells(someSpreadsheetData())
	require.NoError(t, err)
	buf, err := EncodeCells(cells)
	require.NoError(t, err)
	assert.Equal(t, someSpreadsheetData(), buf)
}
