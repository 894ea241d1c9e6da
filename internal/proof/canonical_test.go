package proof

import (
	"encoding/json"
	"math"
	"testing"
)

func TestCanonicalSortsKeys(t *testing.T) {
	got, err := Canonical(map[string]any{
		"zulu":  1.0,
		"alpha": true,
		"mike":  "m",
	})
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	want := `{"alpha":true,"mike":"m","zulu":1}`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestCanonicalNested(t *testing.T) {
	got, err := Canonical(map[string]any{
		"b": []any{1.0, nil, "x"},
		"a": map[string]any{"inner": 0.5},
	})
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	want := `{"a":{"inner":0.5},"b":[1,null,"x"]}`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestCanonicalNumbers(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1, "1"},
		{-1, "-1"},
		{0.85, "0.85"},
		{1024, "1024"},
		{0.1, "0.1"},
		{1e21, "1e21"},
		{0.000001, "0.000001"},
	}
	for _, tc := range cases {
		got, err := Canonical(tc.in)
		if err != nil {
			t.Fatalf("Canonical(%v): %v", tc.in, err)
		}
		if string(got) != tc.want {
			t.Errorf("Canonical(%v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalJSONNumber(t *testing.T) {
	got, err := Canonical(map[string]any{"n": json.Number("42")})
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	if string(got) != `{"n":42}` {
		t.Errorf("got %s", got)
	}
}

func TestCanonicalStringEscapes(t *testing.T) {
	got, err := Canonical("line\nbreak \"quoted\" \\ tab\t\x01")
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	want := `"line\nbreak \"quoted\" \\ tab\t"`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestCanonicalRejectsNonFinite(t *testing.T) {
	if _, err := Canonical(map[string]any{"bad": math.Inf(1)}); err == nil {
		t.Fatalf("expected error for non-finite number")
	}
}

func TestCanonicalHashStable(t *testing.T) {
	value := map[string]any{"k": []any{"v", 1.0}}
	first, err := CanonicalHash(value)
	if err != nil {
		t.Fatalf("CanonicalHash: %v", err)
	}
	second, err := CanonicalHash(map[string]any{"k": []any{"v", 1.0}})
	if err != nil {
		t.Fatalf("CanonicalHash: %v", err)
	}
	if first != second || len(first) != 64 {
		t.Errorf("hash not stable or not sha-256 hex: %s vs %s", first, second)
	}
}
