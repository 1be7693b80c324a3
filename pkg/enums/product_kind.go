package enums

import "fmt"

// ProductKind distinguishes one-of-a-kind listings from stocked goods.
type ProductKind string

const (
	ProductKindUnique  ProductKind = "unique"
	ProductKindStocked ProductKind = "stocked"
)

var validProductKinds = []ProductKind{
	ProductKindUnique,
	ProductKindStocked,
}

// String implements fmt.Stringer.
func (p ProductKind) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductKind.
func (p ProductKind) IsValid() bool {
	for _, candidate := range validProductKinds {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductKind converts raw input into a ProductKind.
func ParseProductKind(value string) (ProductKind, error) {
	for _, candidate := range validProductKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product kind %q", value)
}
