package core

// SNF below this threshold triggers a flat per-litre deduction.
const (
	SNFThreshold = 8.5
	SNFDeduction = 0.5
)

// CalculatePrice computes the price of a milk purchase.
//
// The per-litre price is fat times the rate of the given milk type, less
// SNFDeduction when snf is below SNFThreshold. The result is multiplied by
// the quantity and is not rounded; a negative per-litre price is possible
// for very low fat and is returned as is.
func CalculatePrice(fat, snf float64, milkType MilkType, quantity, cowRate, buffaloRate float64) float64 {
	rate := buffaloRate
	if milkType == Cow {
		rate = cowRate
	}
	perLitre := fat * rate
	if snf < SNFThreshold {
		perLitre -= SNFDeduction
	}
	return perLitre * quantity
}
