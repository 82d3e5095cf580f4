// Package archive reads and writes the flat named-lump container that
// holds one or more levels (spec.md section 6, "Archive format"). It is
// the thinnest possible passthrough: directory maintenance and byte I/O
// only, with no knowledge of level semantics (that lives in package
// level). This is the out-of-scope "collaborator" spec.md section 1
// assigns to external I/O, kept minimal so the core builders are
// exercisable end to end without a real archive file on disk.
package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/edsrzf/mmap-go"
)

const (
	headerSize = 12
	dirEntSize = 16
	nameSize   = 8
)

// ErrInvalidMagic is returned when the archive's 4-byte magic is neither
// IWAD nor PWAD.
var ErrInvalidMagic = errors.New("archive: invalid magic number")

// InvalidLumpNameError is returned when a lump name exceeds the 8-byte
// on-disk field.
type InvalidLumpNameError string

func (e InvalidLumpNameError) Error() string {
	return fmt.Sprintf("archive: lump name %q exceeds 8 characters", string(e))
}

type lumpInfo struct {
	offset uint32
	size   uint32
	name   string
}

// Archive is an in-memory view of a lump container: a directory plus the
// byte ranges it names. IWAD and PWAD are equivalent for this tool.
type Archive struct {
	Magic string

	dir  []lumpInfo
	data map[string][]byte // lumps that have been read or overwritten
	src  []byte            // backing bytes for lumps not yet materialized

	mapped mmap.MMap
	file   *os.File
}

// Open memory-maps path and parses its directory. The mapping is kept
// alive until Close is called.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	a, err := parse([]byte(m))
	if err != nil {
		m.Unmap()
		f.Close()
		return nil, err
	}
	a.mapped = m
	a.file = f
	return a, nil
}

// OpenBytes parses an in-memory archive image, used by tests and by any
// caller that already has the archive bytes buffered.
func OpenBytes(data []byte) (*Archive, error) {
	return parse(data)
}

func parse(data []byte) (*Archive, error) {
	if len(data) < headerSize {
		return nil, io.ErrUnexpectedEOF
	}
	magic := string(data[0:4])
	if magic != "IWAD" && magic != "PWAD" {
		return nil, ErrInvalidMagic
	}
	dirSize := binary.LittleEndian.Uint32(data[4:8])
	dirStart := binary.LittleEndian.Uint32(data[8:12])

	a := &Archive{
		Magic: magic,
		data:  make(map[string][]byte),
		src:   data,
	}

	end := int64(dirStart) + int64(dirSize)*dirEntSize
	if dirStart > uint32(len(data)) || end > int64(len(data)) {
		return nil, io.ErrUnexpectedEOF
	}

	a.dir = make([]lumpInfo, dirSize)
	for i := uint32(0); i < dirSize; i++ {
		off := int(dirStart) + int(i)*dirEntSize
		entry := data[off : off+dirEntSize]
		name := entry[8:16]
		nul := bytes.IndexByte(name, 0)
		if nul == -1 {
			nul = len(name)
		}
		a.dir[i] = lumpInfo{
			offset: binary.LittleEndian.Uint32(entry[0:4]),
			size:   binary.LittleEndian.Uint32(entry[4:8]),
			name:   strings.ToUpper(string(name[:nul])),
		}
	}

	return a, nil
}

// Close releases the mmap backing this archive, if any.
func (a *Archive) Close() error {
	var err error
	if a.mapped != nil {
		err = a.mapped.Unmap()
		a.mapped = nil
	}
	if a.file != nil {
		if cerr := a.file.Close(); err == nil {
			err = cerr
		}
		a.file = nil
	}
	return err
}

func normalize(name string) string {
	return strings.ToUpper(name)
}

// Lump returns the named lump's bytes and whether it exists. Names are
// matched case-insensitively, as on disk.
func (a *Archive) Lump(name string) ([]byte, bool) {
	name = normalize(name)
	if b, ok := a.data[name]; ok {
		return b, true
	}
	for _, e := range a.dir {
		if e.name == name {
			b := a.src[e.offset : e.offset+e.size]
			return b, true
		}
	}
	return nil, false
}

// LumpAt returns the nth lump in directory order along with its name;
// used by the level loader to find a fixed-offset window of lumps
// following a level marker.
func (a *Archive) LumpAt(index int) (name string, data []byte, ok bool) {
	if index < 0 || index >= len(a.dir) {
		return "", nil, false
	}
	e := a.dir[index]
	if b, ok := a.data[e.name]; ok {
		return e.name, b, true
	}
	return e.name, a.src[e.offset : e.offset+e.size], true
}

// NumLumps returns the number of directory entries.
func (a *Archive) NumLumps() int { return len(a.dir) }

// NameAt returns the directory-order name at index.
func (a *Archive) NameAt(index int) (string, bool) {
	if index < 0 || index >= len(a.dir) {
		return "", false
	}
	return a.dir[index].name, true
}

// SetLump overwrites (or appends, if absent) the named lump's contents.
func (a *Archive) SetLump(name string, data []byte) error {
	if len(name) > nameSize {
		return InvalidLumpNameError(name)
	}
	name = normalize(name)
	if a.data == nil {
		a.data = make(map[string][]byte)
	}
	found := false
	for i := range a.dir {
		if a.dir[i].name == name {
			found = true
			break
		}
	}
	if !found {
		a.dir = append(a.dir, lumpInfo{name: name})
	}
	a.data[name] = data
	return nil
}

// WriteTo serializes the archive: header, lump data (in directory
// order), then the directory itself.
func (a *Archive) WriteTo(w io.Writer) (int64, error) {
	buf := new(bytes.Buffer)

	type placed struct {
		name   string
		offset uint32
		size   uint32
	}
	placements := make([]placed, 0, len(a.dir))

	body := new(bytes.Buffer)
	bodyStart := uint32(headerSize)
	for _, e := range a.dir {
		data, ok := a.Lump(e.name)
		if !ok {
			data = nil
		}
		off := bodyStart + uint32(body.Len())
		body.Write(data)
		placements = append(placements, placed{e.name, off, uint32(len(data))})
	}

	dirStart := bodyStart + uint32(body.Len())
	dirSize := uint32(len(placements))

	magic := a.Magic
	if magic == "" {
		magic = "PWAD"
	}
	buf.WriteString(magic)
	binary.Write(buf, binary.LittleEndian, dirSize)
	binary.Write(buf, binary.LittleEndian, dirStart)
	buf.Write(body.Bytes())

	for _, p := range placements {
		binary.Write(buf, binary.LittleEndian, p.offset)
		binary.Write(buf, binary.LittleEndian, p.size)
		var nameField [nameSize]byte
		copy(nameField[:], p.name)
		buf.Write(nameField[:])
	}

	return io.Copy(w, buf)
}
