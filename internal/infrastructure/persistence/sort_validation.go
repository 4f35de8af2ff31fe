package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when it is whitelisted, otherwise defaultField
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// ChallanSortFields contains allowed sort fields for challans
var ChallanSortFields = map[string]bool{
	"created_at":   true,
	"challan_date": true,
	"challan_no":   true,
	"vendor_id":    true,
	"total_amount": true,
	"status":       true,
}

// PurchaseBillSortFields contains allowed sort fields for purchase bills
var PurchaseBillSortFields = map[string]bool{
	"paid_at":   true,
	"bill_date": true,
	"bill_no":   true,
	"total":     true,
}

func orderClause(field, dir string, allowed map[string]bool, defaultField string) string {
	return ValidateSortField(field, allowed, defaultField) + " " + ValidateSortOrder(dir)
}
