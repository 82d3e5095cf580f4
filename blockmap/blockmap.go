// Package blockmap builds the uniform 128-unit collision grid (spec.md
// section 4.3) from a level's vertices and linedefs, and exposes the
// line-rasterization primitive the reject builder reuses for its
// candidate-occluder search (spec.md section 4.5.3).
package blockmap

import (
	"encoding/binary"
	"io"
	"log"
	"os"

	"github.com/doomtools/nodebuild/config"
	"github.com/doomtools/nodebuild/geom"
	"github.com/doomtools/nodebuild/level"
)

// Debug toggles verbose logging across the package, mirroring
// wasm.PrintDebugInfo / wasm.SetDebugMode in the teacher repo.
var Debug = false

var logger *log.Logger

func init() {
	logger = log.New(io.Discard, "blockmap: ", log.Lshortfile)
}

// SetDebugMode toggles the package logger's output between io.Discard
// and os.Stderr.
func SetDebugMode(on bool) {
	Debug = on
	w := io.Writer(io.Discard)
	if on {
		w = os.Stderr
	}
	logger.SetOutput(w)
}

const cellSize = 128

// Blockmap is the decoded form of the BLOCKMAP lump.
type Blockmap struct {
	XOrigin, YOrigin int16
	Columns, Rows    int
	Cells            [][]int // one line-index slice per cell, row-major
}

// EmptyLevelError is returned when a level has no vertices to bound.
type EmptyLevelError struct{}

func (EmptyLevelError) Error() string { return "blockmap: level has no vertices" }

// Build rasterizes every linedef into the grid and returns the decoded
// structure; call Encode to get the on-disk bytes.
func Build(lvl *level.Level, opts config.BlockmapOptions) (*Blockmap, error) {
	if len(lvl.Vertices) == 0 {
		return nil, EmptyLevelError{}
	}

	minX, maxX := lvl.Vertices[0].X, lvl.Vertices[0].X
	minY, maxY := lvl.Vertices[0].Y, lvl.Vertices[0].Y
	for _, v := range lvl.Vertices[1:] {
		if v.X < minX {
			minX = v.X
		}
		if v.X > maxX {
			maxX = v.X
		}
		if v.Y < minY {
			minY = v.Y
		}
		if v.Y > maxY {
			maxY = v.Y
		}
	}

	xOrigin := int(minX) - 8
	yOrigin := int(minY) - 8
	cols := (int(maxX)-xOrigin)/cellSize + 1
	rows := (int(maxY)-yOrigin)/cellSize + 1

	bm := &Blockmap{
		XOrigin: int16(xOrigin),
		YOrigin: int16(yOrigin),
		Columns: cols,
		Rows:    rows,
		Cells:   make([][]int, cols*rows),
	}

	for i, ld := range lvl.Linedefs {
		s := lvl.Vertices[ld.Start]
		e := lvl.Vertices[ld.End]
		RasterizeLine(s, e, xOrigin, yOrigin, cols, rows, func(cell int) {
			bm.Cells[cell] = appendUnique(bm.Cells[cell], i)
		})
	}

	logger.Printf("built blockmap: %d cols x %d rows, origin (%d,%d)", cols, rows, xOrigin, yOrigin)

	return bm, nil
}

func appendUnique(list []int, v int) []int {
	if n := len(list); n > 0 && list[n-1] == v {
		return list
	}
	return append(list, v)
}

// RasterizeLine enumerates every grid cell index that the segment (s,e)
// touches, calling visit once per (cell, line) pair in cell-visit order.
// This is the pre-scaled integer-DDA formulation from spec.md section
// 4.3, shared verbatim with the reject builder's quadrilateral
// candidate search (spec.md section 4.5.3).
func RasterizeLine(s, e geom.Point, xOrigin, yOrigin, cols, rows int, visit func(cell int)) {
	x0, y0 := int(s.X)-xOrigin, int(s.Y)-yOrigin
	x1, y1 := int(e.X)-xOrigin, int(e.Y)-yOrigin

	startX, startY := x0/cellSize, y0/cellSize
	endX, endY := x1/cellSize, y1/cellSize

	index := startX + startY*cols

	switch {
	case startX == endX && startY == endY:
		visit(index)

	case startX == endX: // vertical line
		visit(index)
		dy := 1
		if endY < startY {
			dy = -1
		}
		for startY != endY {
			startY += dy
			index += dy * cols
			visit(index)
		}

	case startY == endY: // horizontal line
		visit(index)
		dx := 1
		if endX < startX {
			dx = -1
		}
		for startX != endX {
			startX += dx
			index += dx
			visit(index)
		}

	default: // diagonal line
		dx := x1 - x0
		dy := y1 - y0

		sx, sy := 1, 1
		if dx < 0 {
			sx = -1
		}
		if dy < 0 {
			sy = -1
		}

		scaledX1 := x1 * dy
		nextX := x0 * dy
		deltaX := (startY*cellSize + cellSize/2*(1+sy) - y0) * dx

		done := false
		for !done {
			thisX := nextX
			nextX += deltaX
			if sx*sy*nextX >= sx*sy*scaledX1 {
				nextX = scaledX1
				done = true
			}

			lastIndex := index + nextX/dy/cellSize - thisX/dy/cellSize

			visit(index)
			for index != lastIndex {
				index += sx
				visit(index)
			}

			index += sy * cols
			deltaX = cellSize * dx * sy
		}

		lastIndex := endX + endY*cols
		if index != lastIndex+sy*cols {
			visit(lastIndex)
		}
	}
}

// Encode serializes bm into the on-disk BLOCKMAP layout (spec.md section
// 6), with optional backward-scan compression (spec.md section 4.3).
func Encode(bm *Blockmap, compress bool) []byte {
	total := bm.Columns * bm.Rows
	firstIndex := make([]int, total)
	zeroIndex := -1

	for i := 0; i < total; i++ {
		firstIndex[i] = i
		if !compress {
			continue
		}
		if len(bm.Cells[i]) == 0 {
			if zeroIndex != -1 {
				firstIndex[i] = zeroIndex
				continue
			}
			zeroIndex = i
			continue
		}
		rowStart := (i / bm.Columns) * bm.Columns
		lastStart := 0
		if rowStart > 0 {
			lastStart = rowStart - bm.Columns
		}
		for j := i - 1; j >= lastStart; j-- {
			if sameCellList(bm.Cells[i], bm.Cells[firstIndex[j]]) {
				firstIndex[i] = firstIndex[j]
				break
			}
		}
	}

	offsets := make([]uint16, total)
	var data []uint16
	wordsUsed := make(map[int]uint16) // cell index -> word offset (from start of data section)

	for i := 0; i < total; i++ {
		if firstIndex[i] != i {
			continue
		}
		off, ok := wordsUsed[i]
		if ok {
			offsets[i] = off
			continue
		}
		off = uint16(len(data))
		wordsUsed[i] = off
		data = append(data, 0)
		for _, line := range bm.Cells[i] {
			data = append(data, uint16(line))
		}
		data = append(data, 0xFFFF)
		offsets[i] = off
	}
	for i := 0; i < total; i++ {
		if firstIndex[i] != i {
			offsets[i] = offsets[firstIndex[i]]
		}
	}

	headerWords := 4 // xOrigin,yOrigin,noColumns,noRows as 4 u16 words
	dataBase := uint16(headerWords + total)

	out := make([]byte, 2*(headerWords+total+len(data)))
	binary.LittleEndian.PutUint16(out[0:2], uint16(bm.XOrigin))
	binary.LittleEndian.PutUint16(out[2:4], uint16(bm.YOrigin))
	binary.LittleEndian.PutUint16(out[4:6], uint16(bm.Columns))
	binary.LittleEndian.PutUint16(out[6:8], uint16(bm.Rows))

	for i, off := range offsets {
		binary.LittleEndian.PutUint16(out[8+2*i:10+2*i], dataBase+off)
	}
	base := 8 + 2*total
	for i, w := range data {
		binary.LittleEndian.PutUint16(out[base+2*i:base+2+2*i], w)
	}

	return out
}

// ErrTruncated is returned when a BLOCKMAP lump is too short to hold
// even its fixed header.
type ErrTruncated struct{}

func (ErrTruncated) Error() string { return "blockmap: lump truncated" }

// Decode parses the on-disk BLOCKMAP layout back into a Blockmap,
// inverting Encode. Cells sharing an offset (produced by compression)
// decode to independent, equal-content slices.
func Decode(data []byte) (*Blockmap, error) {
	if len(data) < 8 {
		return nil, ErrTruncated{}
	}
	bm := &Blockmap{
		XOrigin: int16(binary.LittleEndian.Uint16(data[0:2])),
		YOrigin: int16(binary.LittleEndian.Uint16(data[2:4])),
		Columns: int(binary.LittleEndian.Uint16(data[4:6])),
		Rows:    int(binary.LittleEndian.Uint16(data[6:8])),
	}
	total := bm.Columns * bm.Rows
	if len(data) < 8+2*total {
		return nil, ErrTruncated{}
	}
	bm.Cells = make([][]int, total)
	for i := 0; i < total; i++ {
		off := int(binary.LittleEndian.Uint16(data[8+2*i : 10+2*i]))
		pos := 2 * off
		if pos+2 > len(data) {
			continue
		}
		pos += 2 // skip the leading 0x0000 marker word
		var cell []int
		for pos+2 <= len(data) {
			w := binary.LittleEndian.Uint16(data[pos : pos+2])
			if w == 0xFFFF {
				break
			}
			cell = append(cell, int(w))
			pos += 2
		}
		bm.Cells[i] = cell
	}
	return bm, nil
}

func sameCellList(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
