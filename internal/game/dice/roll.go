package dice

// chancePrecision is the resolution for probability checks.
const chancePrecision = 1 << 20

// Between returns a uniform random int in [lo, hi] inclusive.
//
// Precondition: lo <= hi; src must be non-nil.
// Postcondition: lo <= result <= hi.
func Between(src Source, lo, hi int) int {
	if lo > hi {
		panic("dice: Between called with lo > hi")
	}
	if lo == hi {
		return lo
	}
	return lo + src.Intn(hi-lo+1)
}

// Chance returns true with probability p.
//
// Precondition: src must be non-nil. p <= 0 always returns false;
// p >= 1 always returns true.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Intn(chancePrecision) < int(p*chancePrecision)
}
