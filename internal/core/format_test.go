package core

import (
	"math"
	"testing"
)

func TestFormatValue(t *testing.T) {
	zero := 0.0
	nan := math.NaN()
	v := 4.126
	cases := []struct {
		in   *float64
		want string
	}{
		{nil, "N/A"},
		{&nan, "N/A"},
		{&zero, "0.00"},
		{&v, "4.13"},
	}
	for _, tc := range cases {
		if got := FormatValue(tc.in); got != tc.want {
			t.Fatalf("FormatValue(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatQuantityAndPrice(t *testing.T) {
	if got := FormatQuantity(10); got != "10 L" {
		t.Fatalf("FormatQuantity(10) = %q", got)
	}
	if got := FormatQuantity(2.5); got != "2.5 L" {
		t.Fatalf("FormatQuantity(2.5) = %q", got)
	}
	if got := FormatPrice(355); got != "RS 355.00" {
		t.Fatalf("FormatPrice(355) = %q", got)
	}
	if got := FormatPrice(-5); got != "RS -5.00" {
		t.Fatalf("FormatPrice(-5) = %q", got)
	}
}
