package level

import (
	"encoding/binary"

	"github.com/doomtools/nodebuild/geom"
)

// Texture is a fixed 8-byte, NUL-padded texture/flat name.
type Texture [8]byte

func texFromString(s string) Texture {
	var t Texture
	copy(t[:], s)
	return t
}

// IsEmpty reports whether the texture name is the "no texture" sentinel
// ("-", NUL-padded) or all-zero.
func (t Texture) IsEmpty() bool {
	return t == texFromString("-") || t == Texture{}
}

// Sidedef carries texture offsets, the three texture names, and the
// sector this side faces.
type Sidedef struct {
	XOffset, YOffset              int16
	UpperTex, LowerTex, MiddleTex Texture
	Sector                        uint16
}

const sidedefSize = 30

func decodeSidedefs(data []byte) ([]Sidedef, error) {
	if len(data)%sidedefSize != 0 {
		return nil, BadLumpSizeError{"SIDEDEFS", len(data), sidedefSize}
	}
	n := len(data) / sidedefSize
	out := make([]Sidedef, n)
	for i := 0; i < n; i++ {
		b := data[i*sidedefSize:]
		out[i] = Sidedef{
			XOffset: int16(binary.LittleEndian.Uint16(b[0:2])),
			YOffset: int16(binary.LittleEndian.Uint16(b[2:4])),
			Sector:  binary.LittleEndian.Uint16(b[28:30]),
		}
		copy(out[i].UpperTex[:], b[4:12])
		copy(out[i].LowerTex[:], b[12:20])
		copy(out[i].MiddleTex[:], b[20:28])
	}
	return out, nil
}

func encodeSidedefs(s []Sidedef) []byte {
	out := make([]byte, len(s)*sidedefSize)
	for i, sd := range s {
		b := out[i*sidedefSize:]
		binary.LittleEndian.PutUint16(b[0:2], uint16(sd.XOffset))
		binary.LittleEndian.PutUint16(b[2:4], uint16(sd.YOffset))
		copy(b[4:12], sd.UpperTex[:])
		copy(b[12:20], sd.LowerTex[:])
		copy(b[20:28], sd.MiddleTex[:])
		binary.LittleEndian.PutUint16(b[28:30], sd.Sector)
	}
	return out
}

// Sector carries floor/ceiling heights, textures, light, special and tag.
type Sector struct {
	FloorHeight, CeilingHeight int16
	FloorTex, CeilingTex       Texture
	Light                      int16
	Special, Tag               int16
}

const sectorSize = 26

func decodeSectors(data []byte) ([]Sector, error) {
	if len(data)%sectorSize != 0 {
		return nil, BadLumpSizeError{"SECTORS", len(data), sectorSize}
	}
	n := len(data) / sectorSize
	out := make([]Sector, n)
	for i := 0; i < n; i++ {
		b := data[i*sectorSize:]
		out[i] = Sector{
			FloorHeight:   int16(binary.LittleEndian.Uint16(b[0:2])),
			CeilingHeight: int16(binary.LittleEndian.Uint16(b[2:4])),
			Light:         int16(binary.LittleEndian.Uint16(b[20:22])),
			Special:       int16(binary.LittleEndian.Uint16(b[22:24])),
			Tag:           int16(binary.LittleEndian.Uint16(b[24:26])),
		}
		copy(out[i].FloorTex[:], b[4:12])
		copy(out[i].CeilingTex[:], b[12:20])
	}
	return out, nil
}

func encodeSectors(s []Sector) []byte {
	out := make([]byte, len(s)*sectorSize)
	for i, sc := range s {
		b := out[i*sectorSize:]
		binary.LittleEndian.PutUint16(b[0:2], uint16(sc.FloorHeight))
		binary.LittleEndian.PutUint16(b[2:4], uint16(sc.CeilingHeight))
		copy(b[4:12], sc.FloorTex[:])
		copy(b[12:20], sc.CeilingTex[:])
		binary.LittleEndian.PutUint16(b[20:22], uint16(sc.Light))
		binary.LittleEndian.PutUint16(b[22:24], uint16(sc.Special))
		binary.LittleEndian.PutUint16(b[24:26], uint16(sc.Tag))
	}
	return out
}

const vertexSize = 4

func decodeVertices(data []byte) ([]geom.Point, error) {
	if len(data)%vertexSize != 0 {
		return nil, BadLumpSizeError{"VERTEXES", len(data), vertexSize}
	}
	n := len(data) / vertexSize
	out := make([]geom.Point, n)
	for i := 0; i < n; i++ {
		b := data[i*vertexSize:]
		out[i] = geom.Point{
			X: int16(binary.LittleEndian.Uint16(b[0:2])),
			Y: int16(binary.LittleEndian.Uint16(b[2:4])),
		}
	}
	return out, nil
}

func encodeVertices(v []geom.Point) []byte {
	out := make([]byte, len(v)*vertexSize)
	for i, p := range v {
		b := out[i*vertexSize:]
		binary.LittleEndian.PutUint16(b[0:2], uint16(p.X))
		binary.LittleEndian.PutUint16(b[2:4], uint16(p.Y))
	}
	return out
}

// Seg is one on-tree segment of a linedef.
type Seg struct {
	Start, End uint16
	Angle      uint16
	Linedef    uint16
	Flip       uint16
	Offset     uint16
}

const segSize = 12

func decodeSegs(data []byte) ([]Seg, error) {
	if len(data)%segSize != 0 {
		return nil, BadLumpSizeError{"SEGS", len(data), segSize}
	}
	n := len(data) / segSize
	out := make([]Seg, n)
	for i := 0; i < n; i++ {
		b := data[i*segSize:]
		out[i] = Seg{
			Start:   binary.LittleEndian.Uint16(b[0:2]),
			End:     binary.LittleEndian.Uint16(b[2:4]),
			Angle:   binary.LittleEndian.Uint16(b[4:6]),
			Linedef: binary.LittleEndian.Uint16(b[6:8]),
			Flip:    binary.LittleEndian.Uint16(b[8:10]),
			Offset:  binary.LittleEndian.Uint16(b[10:12]),
		}
	}
	return out, nil
}

func encodeSegs(s []Seg) []byte {
	out := make([]byte, len(s)*segSize)
	for i, sg := range s {
		b := out[i*segSize:]
		binary.LittleEndian.PutUint16(b[0:2], sg.Start)
		binary.LittleEndian.PutUint16(b[2:4], sg.End)
		binary.LittleEndian.PutUint16(b[4:6], sg.Angle)
		binary.LittleEndian.PutUint16(b[6:8], sg.Linedef)
		binary.LittleEndian.PutUint16(b[8:10], sg.Flip)
		binary.LittleEndian.PutUint16(b[10:12], sg.Offset)
	}
	return out
}

// SubSector is a contiguous run of segs forming one convex BSP leaf.
type SubSector struct {
	Num   uint16
	First uint16
}

const subSectorSize = 4

func decodeSubSectors(data []byte) ([]SubSector, error) {
	if len(data)%subSectorSize != 0 {
		return nil, BadLumpSizeError{"SSECTORS", len(data), subSectorSize}
	}
	n := len(data) / subSectorSize
	out := make([]SubSector, n)
	for i := 0; i < n; i++ {
		b := data[i*subSectorSize:]
		out[i] = SubSector{
			Num:   binary.LittleEndian.Uint16(b[0:2]),
			First: binary.LittleEndian.Uint16(b[2:4]),
		}
	}
	return out, nil
}

func encodeSubSectors(s []SubSector) []byte {
	out := make([]byte, len(s)*subSectorSize)
	for i, ss := range s {
		b := out[i*subSectorSize:]
		binary.LittleEndian.PutUint16(b[0:2], ss.Num)
		binary.LittleEndian.PutUint16(b[2:4], ss.First)
	}
	return out
}

// NodeChildLeaf is the high bit of a 16-bit node child reference that
// marks it as indexing a sub-sector rather than a node.
const NodeChildLeaf = 0x8000

// Node is one internal BSP cell.
type Node struct {
	X, Y   int16
	DX, DY int16
	// BBox[0] is the right child's bounding box, BBox[1] the left
	// child's, each as {maxY, minY, minX, maxX}.
	BBox  [2][4]int16
	Child [2]uint16
}

const nodeSize = 28

func decodeNodes(data []byte) ([]Node, error) {
	if len(data)%nodeSize != 0 {
		return nil, BadLumpSizeError{"NODES", len(data), nodeSize}
	}
	n := len(data) / nodeSize
	out := make([]Node, n)
	for i := 0; i < n; i++ {
		b := data[i*nodeSize:]
		nd := Node{
			X:  int16(binary.LittleEndian.Uint16(b[0:2])),
			Y:  int16(binary.LittleEndian.Uint16(b[2:4])),
			DX: int16(binary.LittleEndian.Uint16(b[4:6])),
			DY: int16(binary.LittleEndian.Uint16(b[6:8])),
		}
		off := 8
		for side := 0; side < 2; side++ {
			for k := 0; k < 4; k++ {
				nd.BBox[side][k] = int16(binary.LittleEndian.Uint16(b[off : off+2]))
				off += 2
			}
		}
		nd.Child[0] = binary.LittleEndian.Uint16(b[off : off+2])
		nd.Child[1] = binary.LittleEndian.Uint16(b[off+2 : off+4])
		out[i] = nd
	}
	return out, nil
}

func encodeNodes(nodes []Node) []byte {
	out := make([]byte, len(nodes)*nodeSize)
	for i, nd := range nodes {
		b := out[i*nodeSize:]
		binary.LittleEndian.PutUint16(b[0:2], uint16(nd.X))
		binary.LittleEndian.PutUint16(b[2:4], uint16(nd.Y))
		binary.LittleEndian.PutUint16(b[4:6], uint16(nd.DX))
		binary.LittleEndian.PutUint16(b[6:8], uint16(nd.DY))
		off := 8
		for side := 0; side < 2; side++ {
			for k := 0; k < 4; k++ {
				binary.LittleEndian.PutUint16(b[off:off+2], uint16(nd.BBox[side][k]))
				off += 2
			}
		}
		binary.LittleEndian.PutUint16(b[off:off+2], nd.Child[0])
		binary.LittleEndian.PutUint16(b[off+2:off+4], nd.Child[1])
	}
	return out
}

// BadLumpSizeError is returned when a lump's length is not a multiple
// of its fixed record size.
type BadLumpSizeError struct {
	Lump       string
	Size       int
	RecordSize int
}

func (e BadLumpSizeError) Error() string {
	return "level: " + e.Lump + " size is not a multiple of its record size"
}
