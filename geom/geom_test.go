package geom

import "testing"

func TestClassifyPoint(t *testing.T) {
	l := Line{X: 0, Y: 0, DX: 10, DY: 0}
	cases := []struct {
		p    FPoint
		want Side
	}{
		{FPoint{5, 5}, SideRight},
		{FPoint{5, -5}, SideLeft},
		{FPoint{5, 0}, SideOn},
	}
	for _, c := range cases {
		if got := l.ClassifyPoint(c.p); got != c.want {
			t.Errorf("ClassifyPoint(%v) = %v, want %v", c.p, got, c.want)
		}
	}
}

func TestIntersect(t *testing.T) {
	a := Line{X: 0, Y: 0, DX: 10, DY: 0}
	b := Line{X: 5, Y: -5, DX: 0, DY: 10}
	p, ok := Intersect(a, b)
	if !ok {
		t.Fatal("expected intersection")
	}
	if p.X != 5 || p.Y != 0 {
		t.Errorf("Intersect = %v, want (5,0)", p)
	}
}

func TestIntersectParallel(t *testing.T) {
	a := Line{X: 0, Y: 0, DX: 10, DY: 0}
	b := Line{X: 0, Y: 5, DX: 20, DY: 0}
	if _, ok := Intersect(a, b); ok {
		t.Error("expected parallel lines to report no intersection")
	}
}

func TestSnapRound(t *testing.T) {
	cases := []struct {
		v    float64
		want int16
	}{
		{2.5, 2},
		{3.5, 4},
		{-2.5, -2},
		{1.0001, 1},
	}
	for _, c := range cases {
		if got := SnapRound(c.v); got != c.want {
			t.Errorf("SnapRound(%v) = %d, want %d", c.v, got, c.want)
		}
	}
}
