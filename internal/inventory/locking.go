package inventory

import "gorm.io/gorm/clause"

// forUpdateClause returns the row-lock clause used while a reservation holds
// ingredient balances. SQLite serializes writers on its own, so callers skip
// it there.
func forUpdateClause() clause.Expression {
	return clause.Locking{Strength: "UPDATE"}
}
