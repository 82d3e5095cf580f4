package archive

import (
	"bytes"
	"testing"
)

func buildTestArchive(t *testing.T, lumps map[string][]byte, order []string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	buf.WriteString("PWAD")
	writeU32(buf, uint32(len(order)))
	dirStartPos := buf.Len()
	writeU32(buf, 0) // patched below

	type placed struct {
		name string
		off  uint32
		size uint32
	}
	var placements []placed
	for _, name := range order {
		off := uint32(buf.Len())
		data := lumps[name]
		buf.Write(data)
		placements = append(placements, placed{name, off, uint32(len(data))})
	}
	dirStart := uint32(buf.Len())
	for _, p := range placements {
		writeU32(buf, p.off)
		writeU32(buf, p.size)
		var name [8]byte
		copy(name[:], p.name)
		buf.Write(name[:])
	}
	out := buf.Bytes()
	patch32(out, dirStartPos, dirStart)
	return out
}

func writeU32(buf *bytes.Buffer, v uint32) {
	buf.WriteByte(byte(v))
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v >> 16))
	buf.WriteByte(byte(v >> 24))
}

func patch32(b []byte, at int, v uint32) {
	b[at] = byte(v)
	b[at+1] = byte(v >> 8)
	b[at+2] = byte(v >> 16)
	b[at+3] = byte(v >> 24)
}

func TestOpenBytesAndLump(t *testing.T) {
	raw := buildTestArchive(t, map[string][]byte{
		"THINGS":  {1, 2, 3},
		"VERTEXS": {4, 5},
	}, []string{"THINGS", "VERTEXS"})

	a, err := OpenBytes(raw)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	got, ok := a.Lump("things")
	if !ok {
		t.Fatal("expected THINGS lump (case-insensitive lookup)")
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("THINGS = %v, want [1 2 3]", got)
	}
}

func TestSetLumpAndRoundTrip(t *testing.T) {
	raw := buildTestArchive(t, map[string][]byte{
		"A": {1},
	}, []string{"A"})
	a, err := OpenBytes(raw)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.SetLump("A", []byte{9, 9}); err != nil {
		t.Fatal(err)
	}
	if err := a.SetLump("B", []byte{7}); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if _, err := a.WriteTo(&out); err != nil {
		t.Fatal(err)
	}

	a2, err := OpenBytes(out.Bytes())
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	got, ok := a2.Lump("A")
	if !ok || !bytes.Equal(got, []byte{9, 9}) {
		t.Errorf("A = %v, %v", got, ok)
	}
	got, ok = a2.Lump("B")
	if !ok || !bytes.Equal(got, []byte{7}) {
		t.Errorf("B = %v, %v", got, ok)
	}
}

func TestInvalidMagic(t *testing.T) {
	_, err := OpenBytes([]byte("XXXX\x00\x00\x00\x00\x00\x00\x00\x00"))
	if err != ErrInvalidMagic {
		t.Errorf("err = %v, want ErrInvalidMagic", err)
	}
}
