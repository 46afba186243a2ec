package skew

import (
	"math"
	"testing"
)

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{90, 90},
		{-90, 90},
		{91, -89},
		{180, 0},
		{-180, 0},
		{270, 90},
		{-271, 89},
		{725, 5},
		{-44.5, -44.5},
	}
	for _, tt := range tests {
		if got := NormalizeAngle(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeAngle(%v): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeAngle_Idempotent(t *testing.T) {
	for a := -89.75; a <= 90; a += 0.25 {
		if got := NormalizeAngle(a); got != a {
			t.Errorf("NormalizeAngle(%v) = %v, want unchanged", a, got)
		}
		once := NormalizeAngle(a * 7)
		if twice := NormalizeAngle(once); twice != once {
			t.Errorf("not idempotent for %v: %v then %v", a*7, once, twice)
		}
	}
}

func TestNormalizeAngle_NonFinite(t *testing.T) {
	if got := NormalizeAngle(math.Inf(1)); !math.IsInf(got, 1) {
		t.Errorf("got %v, want +Inf", got)
	}
	if got := NormalizeAngle(math.NaN()); !math.IsNaN(got) {
		t.Errorf("got %v, want NaN", got)
	}
}

func TestFuse_Median(t *testing.T) {
	angle, used := Fuse(
		Present(MethodMinArea, 2.0),
		Present(MethodPrincipalAxis, 2.4),
		Present(MethodHough, 31.0),
	)
	if used != 3 {
		t.Errorf("used: got %d, want 3", used)
	}
	if angle != 2.4 {
		t.Errorf("angle: got %v, want 2.4 (outlier rejected)", angle)
	}
}

func TestFuse_OrderIndependent(t *testing.T) {
	es := []Estimate{
		Present(MethodMinArea, -1.5),
		Present(MethodPrincipalAxis, 3.25),
		Present(MethodHough, 0.75),
	}
	want, _ := Fuse(es...)
	perms := [][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, p := range perms {
		got, _ := Fuse(es[p[0]], es[p[1]], es[p[2]])
		if got != want {
			t.Errorf("permutation %v: got %v, want %v", p, got, want)
		}
	}
}

func TestFuse_Absent(t *testing.T) {
	angle, used := Fuse(Absent(MethodMinArea), Absent(MethodPrincipalAxis), Absent(MethodHough))
	if angle != 0 || used != 0 {
		t.Errorf("got (%v, %d), want (0, 0)", angle, used)
	}

	angle, used = Fuse(Absent(MethodMinArea), Present(MethodPrincipalAxis, 4), Present(MethodHough, 6))
	if used != 2 || angle != 5 {
		t.Errorf("got (%v, %d), want (5, 2)", angle, used)
	}

	angle, used = Fuse(Present(MethodHough, math.NaN()))
	if angle != 0 || used != 0 {
		t.Errorf("NaN estimate: got (%v, %d), want (0, 0)", angle, used)
	}
}

func TestFuse_NormalizesFirst(t *testing.T) {
	angle, used := Fuse(Present(MethodMinArea, 178), Present(MethodPrincipalAxis, -3), Present(MethodHough, 1))
	if used != 3 {
		t.Fatalf("used: got %d, want 3", used)
	}
	// 178 normalizes to -2: median of {-3, -2, 1}
	if angle != -2 {
		t.Errorf("angle: got %v, want -2", angle)
	}
}
