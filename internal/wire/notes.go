package wire

// Note is one secure note. An empty Label deletes the note at Index;
// a labelled note with an empty body is kept.
type Note struct {
	Index uint8
	Label []byte
	Body  []byte
}

// DecodeNotes parses a secure-note batch:
// repeat{llen:u8, nlen:u16, x:u8, label:llen, note:nlen}.
func DecodeNotes(buf []byte) ([]Note, error) {
	r := newReader("secure note", buf)
	var notes []Note
	for r.more() {
		llen, err := r.u8()
		if err != nil {
			return nil, err
		}
		nlen, err := r.u16()
		if err != nil {
			return nil, err
		}
		x, err := r.u8()
		if err != nil {
			return nil, err
		}
		label, err := r.bytes(int(llen))
		if err != nil {
			return nil, err
		}
		body, err := r.bytes(int(nlen))
		if err != nil {
			return nil, err
		}
		notes = append(notes, Note{Index: x, Label: label, Body: body})
	}
	return notes, nil
}
