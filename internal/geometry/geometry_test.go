package geometry

import (
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
)

func TestBearingNormalizedRange(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		p1 := orb.Point{r.Float64()*360 - 180, r.Float64()*170 - 85}
		p2 := orb.Point{r.Float64()*360 - 180, r.Float64()*170 - 85}
		b := bearing(p1, p2)
		if b <= -90 || b > 90 {
			t.Fatalf("bearing(%v, %v) = %v, out of (-90,90]", p1, p2, b)
		}
	}
}

func TestBearingDistanceRangeAndSymmetry(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		a := r.Float64()*360 - 180
		b := r.Float64()*360 - 180
		d1 := bearingDistance(a, b)
		d2 := bearingDistance(b, a)
		if d1 < 0 || d1 > 180 {
			t.Fatalf("bearingDistance(%v,%v) = %v, out of [0,180]", a, b, d1)
		}
		if d1 != d2 {
			t.Fatalf("bearingDistance not symmetric: (%v,%v)=%v vs (%v,%v)=%v", a, b, d1, b, a, d2)
		}
	}
}

func TestBearingDistanceZeroForEqualBearings(t *testing.T) {
	if got := bearingDistance(45, 45); got != 0 {
		t.Fatalf("bearingDistance(45,45) = %v, want 0", got)
	}
}

func TestNewIDOffsetsFloat64(t *testing.T) {
	id, ok := newID(float64(10), 5)
	if !ok || id != 15 {
		t.Fatalf("newID(10,5) = (%v,%v), want (15,true)", id, ok)
	}
}

func TestNewIDRejectsNegative(t *testing.T) {
	if _, ok := newID(float64(-1), 5); ok {
		t.Fatalf("newID(-1,5) should reject negative ids")
	}
}

func TestNewIDRejectsNonNumeric(t *testing.T) {
	if _, ok := newID("abc", 5); ok {
		t.Fatalf("newID(string,5) should reject non-numeric ids")
	}
}
