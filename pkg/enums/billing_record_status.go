package enums

import "fmt"

// BillingRecordStatus describes the settlement state of a ledger entry.
type BillingRecordStatus string

const (
	BillingRecordStatusPaid     BillingRecordStatus = "paid"
	BillingRecordStatusPending  BillingRecordStatus = "pending"
	BillingRecordStatusFailed   BillingRecordStatus = "failed"
	BillingRecordStatusRefunded BillingRecordStatus = "refunded"
)

var validBillingRecordStatuses = []BillingRecordStatus{
	BillingRecordStatusPaid,
	BillingRecordStatusPending,
	BillingRecordStatusFailed,
	BillingRecordStatusRefunded,
}

// String implements fmt.Stringer.
func (b BillingRecordStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BillingRecordStatus.
func (b BillingRecordStatus) IsValid() bool {
	for _, candidate := range validBillingRecordStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBillingRecordStatus converts raw input into a BillingRecordStatus.
func ParseBillingRecordStatus(value string) (BillingRecordStatus, error) {
	for _, candidate := range validBillingRecordStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid billing record status %q", value)
}
