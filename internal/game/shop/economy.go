package shop

import "math"

// Default trade rates applied to an item template's base price. Halves
// round to the nearest even integer so repeated buy and sell cycles
// neither tax nor pay players a rounding residue.
const (
	DefaultBuyRate  = 1.0
	DefaultSellRate = 0.5
)

// Economy prices trades with tunable rate multipliers.
type Economy struct {
	// BuyRate multiplies base price for purchases.
	BuyRate float64
	// SellRate multiplies base price for sales back to the vendor.
	SellRate float64
}

// DefaultEconomy returns an Economy at the standard rates.
func DefaultEconomy() Economy {
	return Economy{BuyRate: DefaultBuyRate, SellRate: DefaultSellRate}
}

// BuyPrice is what a player pays for one unit.
func (e Economy) BuyPrice(basePrice int) int {
	return price(basePrice, e.BuyRate)
}

// SellPrice is what a vendor pays for one unit.
func (e Economy) SellPrice(basePrice int) int {
	return price(basePrice, e.SellRate)
}

// BuyPrice is what a player pays for one unit at the default rate.
func BuyPrice(basePrice int) int {
	return price(basePrice, DefaultBuyRate)
}

// SellPrice is what a vendor pays for one unit at the default rate.
func SellPrice(basePrice int) int {
	return price(basePrice, DefaultSellRate)
}

func price(basePrice int, rate float64) int {
	if basePrice <= 0 {
		return 0
	}
	return int(math.RoundToEven(float64(basePrice) * rate))
}
