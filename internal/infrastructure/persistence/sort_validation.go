package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed
// fields. Returns the defaultField if the input is empty or not whitelisted.
// Order-by clauses are built by string concatenation, so every caller-supplied
// field must pass through here.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// StorageTransactionSortFields contains allowed sort fields for the ledger
var StorageTransactionSortFields = map[string]bool{
	"id":               true,
	"created_at":       true,
	"updated_at":       true,
	"code":             true,
	"type":             true,
	"status":           true,
	"transaction_date": true,
	"total_value":      true,
	"payment_status":   true,
}

// BatchSortFields contains allowed sort fields for stock batches
var BatchSortFields = map[string]bool{
	"id":               true,
	"created_at":       true,
	"updated_at":       true,
	"lot_number":       true,
	"expiry_date":      true,
	"quantity_on_hand": true,
	"unit_cost":        true,
}
