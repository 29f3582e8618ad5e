package evidence

import "testing"

func TestClampScore(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"negative", -0.3, 0},
		{"zero", 0, 0},
		{"inside", 0.42, 0.42},
		{"one", 1, 1},
		{"above one", 1.7, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampScore(tt.in); got != tt.want {
				t.Errorf("ClampScore(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewStructuredClamps(t *testing.T) {
	e := NewStructured(OriginCSV, "csv:ratings.csv:Inception", 3.2, map[string]any{"title": "Inception"})
	if e.Score != 1 {
		t.Errorf("score = %v, want 1", e.Score)
	}
	if e.Origin != OriginCSV {
		t.Errorf("origin = %v, want CSV", e.Origin)
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
		ok   bool
	}{
		{"int64", int64(2010), 2010, true},
		{"int", 2010, 2010, true},
		{"integral float", float64(2010), 2010, true},
		{"fractional float", 8.7, 0, false},
		{"numeric string", "2010", 2010, true},
		{"word", "Inception", 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AsInt(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("AsInt(%v) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestAsFloat(t *testing.T) {
	if f, ok := AsFloat(8.7); !ok || f != 8.7 {
		t.Errorf("AsFloat(8.7) = (%v, %v)", f, ok)
	}
	if f, ok := AsFloat(int64(74)); !ok || f != 74 {
		t.Errorf("AsFloat(74) = (%v, %v)", f, ok)
	}
	if _, ok := AsFloat(map[string]any{}); ok {
		t.Error("AsFloat(map) should not be ok")
	}
}

func TestRouteValid(t *testing.T) {
	for _, r := range []Route{RouteStructured, RouteUnstructured, RouteBoth} {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	if Route("hybrid").Valid() {
		t.Error("unknown route should not be valid")
	}
}
