package wire

// CellHeaderLen is the size of the fixed cell record header: size:u16, x:u8, y:u8.
const CellHeaderLen = 4

// Cell is one spreadsheet or login cell. An empty Data is a delete signal.
type Cell struct {
	X    uint8
	Y    uint8
	Data []byte
}

// Coord names a cell to remove unconditionally.
type Coord struct {
	X uint8
	Y uint8
}

// DecodeCells parses a cell batch: repeat{size:u16, x:u8, y:u8, payload:size}.
// A zero size yields a cell with empty Data and consumes only the header.
func DecodeCells(buf []byte) ([]Cell, error) {
	r := newReader("cell", buf)
	var cells []Cell
	for r.more() {
		size, err := r.u16()
		if err != nil {
			return nil, err
		}
		x, err := r.u8()
		if err != nil {
			return nil, err
		}
		y, err := r.u8()
		if err != nil {
			return nil, err
		}
		data, err := r.bytes(int(size))
		if err != nil {
			return nil, err
		}
		cells = append(cells, Cell{X: x, Y: y, Data: data})
	}
	return cells, nil
}

// DecodeCoords parses a coordinate-delete batch: repeat{x:u8, y:u8}.
func DecodeCoords(buf []byte) ([]Coord, error) {
	r := newReader("coordinate", buf)
	var coords []Coord
	for r.more() {
		x, err := r.u8()
		if err != nil {
			return nil, err
		}
		y, err := r.u8()
		if err != nil {
			return nil, err
		}
		coords = append(coords, Coord{X: x, Y: y})
	}
	return coords, nil
}
