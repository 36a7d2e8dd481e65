package linear

import (
	"testing"
)

const eps = 1e-6

func approx(a, b float32) bool {
	d := a - b
	return d > -eps && d < eps
}

func TestMulIdentity(t *testing.T) {
	m := Translation(1, 2, 3).Mul(Scaling(4, 5, 6))
	if got := Identity().Mul(m); got != m {
		t.Errorf("I*M = %v, want %v", got, m)
	}
	if got := m.Mul(Identity()); got != m {
		t.Errorf("M*I = %v, want %v", got, m)
	}
}

func TestScaleThenTranslate(t *testing.T) {
	world := Translation(100, 100, 0.5).Mul(Scaling(64, 64, 1))

	tests := []struct {
		name string
		in   Vec4
		want Vec4
	}{
		{"center", Vec4{0, 0, 0, 1}, Vec4{100, 100, 0.5, 1}},
		{"top right", Vec4{0.5, 0.5, 0, 1}, Vec4{132, 132, 0.5, 1}},
		{"bottom left", Vec4{-0.5, -0.5, 0, 1}, Vec4{68, 68, 0.5, 1}},
		{"direction ignores translation", Vec4{1, 0, 0, 0}, Vec4{64, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := world.Transform(tt.in)
			for i := range got {
				if !approx(got[i], tt.want[i]) {
					t.Fatalf("Transform(%v) = %v, want %v", tt.in, got, tt.want)
				}
			}
		})
	}
}

func TestOrthographicLH(t *testing.T) {
	proj := OrthographicLH(640, 480, 0.1, 100)

	tests := []struct {
		name string
		in   Vec4
		want Vec4
	}{
		{"right edge", Vec4{320, 0, 0.1, 1}, Vec4{1, 0, 0, 1}},
		{"top edge", Vec4{0, 240, 0.1, 1}, Vec4{0, 1, 0, 1}},
		{"far plane", Vec4{-320, -240, 100, 1}, Vec4{-1, -1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := proj.Transform(tt.in)
			for i := range got {
				if !approx(got[i], tt.want[i]) {
					t.Fatalf("Transform(%v) = %v, want %v", tt.in, got, tt.want)
				}
			}
		})
	}
}

func TestColumnMajorLayout(t *testing.T) {
	m := Translation(7, 8, 9)
	if m.At(0, 3) != 7 || m.At(1, 3) != 8 || m.At(2, 3) != 9 {
		t.Errorf("translation not in the last column: %v", m)
	}
	if m[12] != 7 {
		t.Errorf("m[12] = %v, want 7", m[12])
	}
}

func TestBytes(t *testing.T) {
	m := Translation(1.5, -2, 3).Mul(Scaling(2, 2, 2))
	b := m.Bytes()
	if len(b) != MatrixSize {
		t.Fatalf("len(Bytes()) = %d, want %d", len(b), MatrixSize)
	}
	// 1.0f little-endian in the first slot of Identity.
	id := Identity().Bytes()
	if id[0] != 0x00 || id[1] != 0x00 || id[2] != 0x80 || id[3] != 0x3f {
		t.Errorf("identity[0] bytes = % x, want 00 00 80 3f", id[:4])
	}

	back, ok := FromBytes(b)
	if !ok || back != m {
		t.Errorf("FromBytes(Bytes()) = %v, %v; want %v", back, ok, m)
	}
	if _, ok := FromBytes(b[:10]); ok {
		t.Error("FromBytes accepted a short slice")
	}

	two := Identity().AppendBytes(m.Bytes())
	if len(two) != 2*MatrixSize {
		t.Errorf("AppendBytes len = %d", len(two))
	}
}

func TestApproxEqual(t *testing.T) {
	a := Scaling(1, 2, 3)
	b := a
	b[0] += 1e-7
	if !a.ApproxEqual(b, 1e-6) {
		t.Error("ApproxEqual rejected a tiny difference")
	}
	b[5] += 1
	if a.ApproxEqual(b, 1e-6) {
		t.Error("ApproxEqual accepted a large difference")
	}
}
