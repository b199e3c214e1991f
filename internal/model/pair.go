package model

// PairKey identifies an unordered pair of players. The lower id always sits
// in Low, so (a, b) and (b, a) produce the same key.
type PairKey struct {
	Low  PlayerID
	High PlayerID
}

// NewPairKey builds the symmetric key for two players
func NewPairKey(a, b PlayerID) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{Low: a, High: b}
}

// String renders the key as "low|high"
func (k PairKey) String() string {
	return string(k.Low) + "|" + string(k.High)
}

// PairSet is a set of unordered pairs
type PairSet map[PairKey]struct{}

// Add inserts the pair
func (s PairSet) Add(k PairKey) {
	s[k] = struct{}{}
}

// Has reports whether the pair is present
func (s PairSet) Has(k PairKey) bool {
	_, ok := s[k]
	return ok
}
