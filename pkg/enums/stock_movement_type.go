package enums

import "fmt"

// StockMovementType classifies a ledger entry on an ingredient.
type StockMovementType string

const (
	StockMovementTypeRestock    StockMovementType = "restock"
	StockMovementTypeUsage      StockMovementType = "usage"
	StockMovementTypeAdjustment StockMovementType = "adjustment"
)

var validStockMovementTypes = []StockMovementType{
	StockMovementTypeRestock,
	StockMovementTypeUsage,
	StockMovementTypeAdjustment,
}

// String implements fmt.Stringer.
func (t StockMovementType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known StockMovementType.
func (t StockMovementType) IsValid() bool {
	for _, candidate := range validStockMovementTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseStockMovementType converts raw input into a StockMovementType.
func ParseStockMovementType(value string) (StockMovementType, error) {
	for _, candidate := range validStockMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock movement type %q", value)
}
