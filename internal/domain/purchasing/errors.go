package purchasing

import (
	"fmt"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Error codes raised by the purchasing context
const (
	CodeValidation              = "VALIDATION_ERROR"
	CodeConflictingChallanState = "CONFLICTING_CHALLAN_STATE"
	CodeIncompletePayment       = "INCOMPLETE_PAYMENT"
	CodeDraftExists             = "DRAFT_EXISTS"
	CodeVendorBusy              = "VENDOR_BUSY"
)

var (
	// ErrDraftExists is returned when a bill is opened while another draft is still open
	ErrDraftExists = shared.NewDomainError(CodeDraftExists, "A draft purchase bill is already open for this vendor; discard it first")
	// ErrNoDraft is returned by draft operations when the slot is empty
	ErrNoDraft = shared.NewDomainError(shared.CodeNotFound, "No draft purchase bill is open for this vendor")
	// ErrVendorBusy is returned when another process holds the vendor lock
	ErrVendorBusy = shared.NewDomainError(CodeVendorBusy, "Vendor is being processed by another operator, try again")
)

// NewValidationError reports missing or malformed input
func NewValidationError(format string, args ...any) *shared.DomainError {
	return shared.NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewConflictingChallanStateError reports a challan that can no longer be consolidated
func NewConflictingChallanStateError(challanNo string, status ChallanStatus) *shared.DomainError {
	return shared.NewDomainError(CodeConflictingChallanState,
		fmt.Sprintf("Challan %s is %s, only pending challans can be consolidated", challanNo, status))
}

// NewIncompletePaymentError reports the outstanding amount that blocks submission
func NewIncompletePaymentError(remaining decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(CodeIncompletePayment,
		fmt.Sprintf("Bill is not fully paid: %s remaining", valueobject.NewMoneyINR(remaining)))
}
