package core

import (
	"math"
	"testing"
)

func TestCalculatePrice(t *testing.T) {
	cases := []struct {
		name                  string
		fat, snf              float64
		milkType              MilkType
		qty, cowRate, bufRate float64
		want                  float64
	}{
		{"cow with snf deduction", 4.0, 8.0, Cow, 10, 9, 9.5, 355.0},
		{"buffalo without deduction", 4.0, 9.0, Buffalo, 5, 9, 9.5, 190.0},
		{"snf exactly at threshold", 4.0, 8.5, Cow, 10, 9, 9.5, 360.0},
		{"zero quantity", 6.5, 7.0, Buffalo, 0, 9, 9.5, 0},
		{"zero fat, good snf", 0, 9.0, Cow, 10, 9, 9.5, 0},
		{"zero fat, low snf goes negative", 0, 8.0, Cow, 10, 9, 9.5, -5.0},
		{"inactive rate ignored", 4.0, 9.0, Cow, 1, 9, 1000, 36.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculatePrice(tc.fat, tc.snf, tc.milkType, tc.qty, tc.cowRate, tc.bufRate)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("CalculatePrice = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCalculatePriceProperties(t *testing.T) {
	fats := []float64{0, 3.2, 4.0, 6.75}
	snfs := []float64{7.9, 8.49, 8.5, 9.1}
	qtys := []float64{0, 1, 2.5, 40}
	for _, mt := range []MilkType{Cow, Buffalo} {
		for _, fat := range fats {
			for _, snf := range snfs {
				for _, qty := range qtys {
					a := CalculatePrice(fat, snf, mt, qty, 9, 9.5)
					b := CalculatePrice(fat, snf, mt, qty, 9, 9.5)
					if a != b {
						t.Fatalf("not deterministic: %v != %v", a, b)
					}
					rate := Rates{Cow: 9, Buffalo: 9.5}.Rate(mt)
					want := fat * rate * qty
					if snf < SNFThreshold {
						want = (fat*rate - SNFDeduction) * qty
					}
					if a != want {
						t.Fatalf("fat=%v snf=%v type=%s qty=%v: got %v want %v", fat, snf, mt, qty, a, want)
					}
				}
			}
		}
	}
}
