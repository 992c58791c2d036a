package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"1.23", 1.23, true},
		{"1,23", 1.23, true},
		{"0", 0, true},
		{"0.01", 0.01, true},
		{" 2.50 ", 2.5, true},
		{"1234.00", 1234, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in  float64
		out string
	}{
		{1, "1.00"},
		{1.2, "1.20"},
		{1.235, "1.24"},
		{0, "0.00"},
		{999.999, "1000.00"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.in); got != tc.out {
			t.Fatalf("%v expected %q, got %q", tc.in, tc.out, got)
		}
	}
}

// Serialized amounts must survive the wire: parse(format(x)) == round(x, 2).
func TestAmountRoundTrip(t *testing.T) {
	values := []float64{0, 0.01, 1, 1.005, 12.34, 400, 1000, 5000, 123456.78}
	for _, v := range values {
		got, err := ParseAmount(FormatAmount(v))
		if err != nil {
			t.Fatalf("%v round trip failed: %v", v, err)
		}
		if got != RoundAmount(v) {
			t.Fatalf("%v round trip expected %v, got %v", v, RoundAmount(v), got)
		}
	}
}
