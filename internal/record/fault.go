package record

import "fmt"

// FaultReason classifies the validation gate that rejected an order.
type FaultReason string

const (
	FaultPostalCode       FaultReason = "postal_code"
	FaultEmptyNames       FaultReason = "empty_names"
	FaultMissingEntryDate FaultReason = "missing_entry_date"
)

// AddressRole names which address tripped the gate.
type AddressRole string

const (
	RoleDelivery AddressRole = "delivery"
	RoleBilling  AddressRole = "billing"
)

// ValidationFault is a non-retryable rejection of one order. It carries the
// raw offending fields so the failure can be replayed manually.
type ValidationFault struct {
	OrderID int64
	Reason  FaultReason
	Role    AddressRole
	Raw     map[string]string
}

func (f *ValidationFault) Error() string {
	if f.Role != "" {
		return fmt.Sprintf("order %d rejected: %s (%s address)", f.OrderID, f.Reason, f.Role)
	}
	return fmt.Sprintf("order %d rejected: %s", f.OrderID, f.Reason)
}
