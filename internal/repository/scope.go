package repository

import "moneynest/internal/models"

// ledgerTables names the tables and owner column backing one ledger scope.
// Personal and family ledgers live in parallel tables with the same shape.
type ledgerTables struct {
	categories   string
	transactions string
	ownerColumn  string
	// family_id in family tables, a constant zero in personal ones
	familyExpr string
	// created_by in family categories, a constant zero in personal ones
	createdByExpr string
}

func tablesFor(scope models.Scope) ledgerTables {
	if scope.IsFamily() {
		return ledgerTables{
			categories:    "family_categories",
			transactions:  "family_transactions",
			ownerColumn:   "family_id",
			familyExpr:    "t.family_id",
			createdByExpr: "c.created_by",
		}
	}
	return ledgerTables{
		categories:    "categories",
		transactions:  "transactions",
		ownerColumn:   "user_id",
		familyExpr:    "0",
		createdByExpr: "0",
	}
}
