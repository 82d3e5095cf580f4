package level

import "encoding/binary"

// Thing is a map-placed entity. ThingID, Altitude, Special and Args are
// populated only for VariantExtended (spec.md section 3).
type Thing struct {
	X, Y    int16
	Angle   uint16
	Type    uint16
	Flags   uint16
	ThingID uint16
	Altitude int16
	Special uint8
	Args    [5]uint8
}

const (
	thingSizeClassic  = 10
	thingSizeExtended = 20
)

// Linedef is an ordered pair of vertex indices with texturing and a
// two-sided-sector reference. Type/Trigger are populated for
// VariantClassic; Special/Args for VariantExtended.
type Linedef struct {
	Start, End         uint16
	Flags              uint16
	Type, Trigger      uint16
	Special            uint8
	Args               [5]uint8
	SideRight, SideLeft uint16
}

const (
	linedefSizeClassic  = 14
	linedefSizeExtended = 16
)

func linedefSize(v Variant) int {
	if v == VariantExtended {
		return linedefSizeExtended
	}
	return linedefSizeClassic
}

func thingSize(v Variant) int {
	if v == VariantExtended {
		return thingSizeExtended
	}
	return thingSizeClassic
}

// detectVariant runs the heuristic from spec.md section 4.1: attempt a
// classic parse of THINGS, score it against four indicators, then
// verify the guess by re-parsing LINEDEFS at the implied record size
// and retry the opposite guess once if verification fails.
func detectVariant(things, linedefs []byte) (Variant, bool) {
	guess := classicOrExtendedGuess(things)

	if verifyLinedefs(linedefs, guess) {
		return guess, true
	}

	alt := VariantClassic
	if guess == VariantClassic {
		alt = VariantExtended
	}
	if verifyLinedefs(linedefs, alt) {
		return alt, true
	}

	return 0, false
}

// classicOrExtendedGuess implements the four-counter probe: parse
// THINGS as 10-byte classic records and look for the extended-format
// fingerprints (non-negative min X, many zero-X things, many
// zero-type things, many non-45-degree angles).
func classicOrExtendedGuess(things []byte) Variant {
	if len(things) == 0 || len(things)%thingSizeClassic != 0 {
		return VariantExtended
	}
	n := len(things) / thingSizeClassic
	if n == 0 {
		return VariantClassic
	}

	minX := int32(1 << 30)
	zeroX, zeroType, badAngle := 0, 0, 0

	for i := 0; i < n; i++ {
		b := things[i*thingSizeClassic:]
		x := int16(binary.LittleEndian.Uint16(b[0:2]))
		angle := binary.LittleEndian.Uint16(b[4:6])
		typ := binary.LittleEndian.Uint16(b[6:8])

		if int32(x) < minX {
			minX = int32(x)
		}
		if x == 0 {
			zeroX++
		}
		if typ == 0 {
			zeroType++
		}
		if angle%45 != 0 {
			badAngle++
		}
	}

	third := n / 3
	countModTwo := n % 2

	indicators := 0
	if minX >= 0 {
		indicators++
	}
	if zeroX > third {
		indicators++
	}
	if zeroType > third {
		indicators++
	}
	if badAngle > third {
		indicators++
	}

	if countModTwo == 0 && indicators >= 2 {
		return VariantExtended
	}
	return VariantClassic
}

// verifyLinedefs checks that the LINEDEFS lump size is a multiple of
// the record size implied by variant, and (for the extended variant)
// that no linedef claims an absent right sidedef.
func verifyLinedefs(data []byte, variant Variant) bool {
	size := linedefSize(variant)
	if size == 0 || len(data)%size != 0 {
		return false
	}
	if variant != VariantExtended {
		return true
	}
	n := len(data) / size
	for i := 0; i < n; i++ {
		b := data[i*size:]
		sideRight := binary.LittleEndian.Uint16(b[size-4 : size-2])
		if sideRight == NoSidedef {
			return false
		}
	}
	return true
}

func decodeThings(data []byte, v Variant) ([]Thing, error) {
	size := thingSize(v)
	if len(data)%size != 0 {
		return nil, BadLumpSizeError{"THINGS", len(data), size}
	}
	n := len(data) / size
	out := make([]Thing, n)
	for i := 0; i < n; i++ {
		b := data[i*size:]
		t := Thing{
			X:     int16(binary.LittleEndian.Uint16(b[0:2])),
			Y:     int16(binary.LittleEndian.Uint16(b[2:4])),
			Angle: binary.LittleEndian.Uint16(b[4:6]),
			Type:  binary.LittleEndian.Uint16(b[6:8]),
			Flags: binary.LittleEndian.Uint16(b[8:10]),
		}
		if v == VariantExtended {
			t.ThingID = binary.LittleEndian.Uint16(b[10:12])
			t.Altitude = int16(binary.LittleEndian.Uint16(b[12:14]))
			t.Special = b[14]
			copy(t.Args[:], b[15:20])
		}
		out[i] = t
	}
	return out, nil
}

func encodeThings(things []Thing, v Variant) []byte {
	size := thingSize(v)
	out := make([]byte, len(things)*size)
	for i, t := range things {
		b := out[i*size:]
		binary.LittleEndian.PutUint16(b[0:2], uint16(t.X))
		binary.LittleEndian.PutUint16(b[2:4], uint16(t.Y))
		binary.LittleEndian.PutUint16(b[4:6], t.Angle)
		binary.LittleEndian.PutUint16(b[6:8], t.Type)
		binary.LittleEndian.PutUint16(b[8:10], t.Flags)
		if v == VariantExtended {
			binary.LittleEndian.PutUint16(b[10:12], t.ThingID)
			binary.LittleEndian.PutUint16(b[12:14], uint16(t.Altitude))
			b[14] = t.Special
			copy(b[15:20], t.Args[:])
		}
	}
	return out
}

func decodeLinedefs(data []byte, v Variant) ([]Linedef, error) {
	size := linedefSize(v)
	if len(data)%size != 0 {
		return nil, BadLumpSizeError{"LINEDEFS", len(data), size}
	}
	n := len(data) / size
	out := make([]Linedef, n)
	for i := 0; i < n; i++ {
		b := data[i*size:]
		ld := Linedef{
			Start: binary.LittleEndian.Uint16(b[0:2]),
			End:   binary.LittleEndian.Uint16(b[2:4]),
			Flags: binary.LittleEndian.Uint16(b[4:6]),
		}
		if v == VariantExtended {
			ld.Special = b[6]
			copy(ld.Args[:], b[7:12])
			ld.SideRight = binary.LittleEndian.Uint16(b[12:14])
			ld.SideLeft = binary.LittleEndian.Uint16(b[14:16])
		} else {
			ld.Type = binary.LittleEndian.Uint16(b[6:8])
			ld.Trigger = binary.LittleEndian.Uint16(b[8:10])
			ld.SideRight = binary.LittleEndian.Uint16(b[10:12])
			ld.SideLeft = binary.LittleEndian.Uint16(b[12:14])
		}
		out[i] = ld
	}
	return out, nil
}

func encodeLinedefs(lds []Linedef, v Variant) []byte {
	size := linedefSize(v)
	out := make([]byte, len(lds)*size)
	for i, ld := range lds {
		b := out[i*size:]
		binary.LittleEndian.PutUint16(b[0:2], ld.Start)
		binary.LittleEndian.PutUint16(b[2:4], ld.End)
		binary.LittleEndian.PutUint16(b[4:6], ld.Flags)
		if v == VariantExtended {
			b[6] = ld.Special
			copy(b[7:12], ld.Args[:])
			binary.LittleEndian.PutUint16(b[12:14], ld.SideRight)
			binary.LittleEndian.PutUint16(b[14:16], ld.SideLeft)
		} else {
			binary.LittleEndian.PutUint16(b[6:8], ld.Type)
			binary.LittleEndian.PutUint16(b[8:10], ld.Trigger)
			binary.LittleEndian.PutUint16(b[10:12], ld.SideRight)
			binary.LittleEndian.PutUint16(b[12:14], ld.SideLeft)
		}
	}
	return out
}
