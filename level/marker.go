package level

import (
	"github.com/doomtools/nodebuild/archive"
)

func isClassicMarker(name string) bool {
	if len(name) != 4 || name[0] != 'E' || name[2] != 'M' {
		return false
	}
	return name[1] >= '1' && name[1] <= '4' && name[3] >= '1' && name[3] <= '9'
}

func isExtendedMarker(name string) bool {
	if len(name) != 5 || name[0:3] != "MAP" {
		return false
	}
	for _, c := range name[3:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return name != "MAP00"
}

// IsLevelMarker reports whether name is a classic (ExMy) or extended
// (MAPxx) level marker.
func IsLevelMarker(name string) bool {
	return isClassicMarker(name) || isExtendedMarker(name)
}

// Levels scans the archive's directory for level markers, in directory
// order, each immediately followed by a THINGS lump.
func Levels(a *archive.Archive) []string {
	var names []string
	for i := 0; i < a.NumLumps(); i++ {
		name, ok := a.NameAt(i)
		if !ok || !IsLevelMarker(name) {
			continue
		}
		if next, ok := a.NameAt(i + 1); !ok || next != "THINGS" {
			continue
		}
		names = append(names, name)
	}
	return names
}
