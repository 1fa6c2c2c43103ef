package model

// KeyRange bounds an index or primary key scan. A nil bound is unbounded.
type KeyRange struct {
	Lower     any  `json:"lower,omitempty"`
	Upper     any  `json:"upper,omitempty"`
	LowerOpen bool `json:"lowerOpen,omitempty"`
	UpperOpen bool `json:"upperOpen,omitempty"`
}

// Only returns a range matching exactly one key
func Only(value any) *KeyRange {
	return &KeyRange{Lower: value, Upper: value}
}

// LowerBound returns a range of keys above value. open excludes value itself.
func LowerBound(value any, open bool) *KeyRange {
	return &KeyRange{Lower: value, LowerOpen: open}
}

// UpperBound returns a range of keys below value. open excludes value itself.
func UpperBound(value any, open bool) *KeyRange {
	return &KeyRange{Upper: value, UpperOpen: open}
}

// Bound returns a range of keys between lower and upper
func Bound(lower, upper any, lowerOpen, upperOpen bool) *KeyRange {
	return &KeyRange{Lower: lower, Upper: upper, LowerOpen: lowerOpen, UpperOpen: upperOpen}
}
