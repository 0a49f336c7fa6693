package enums

import "fmt"

// CancellationStatus tracks where an account sits in the cancellation funnel.
// The funnel only moves forward: none -> pending -> confirmed -> processed or
// completed. The explicit cancel-request reset is the single exception.
type CancellationStatus string

const (
	CancellationStatusNone      CancellationStatus = "none"
	CancellationStatusPending   CancellationStatus = "pending"
	CancellationStatusConfirmed CancellationStatus = "confirmed"
	// CancellationStatusProcessed marks the local finalize path.
	CancellationStatusProcessed CancellationStatus = "processed"
	// CancellationStatusCompleted marks the gateway cancellation path.
	CancellationStatusCompleted CancellationStatus = "completed"
)

var validCancellationStatuses = []CancellationStatus{
	CancellationStatusNone,
	CancellationStatusPending,
	CancellationStatusConfirmed,
	CancellationStatusProcessed,
	CancellationStatusCompleted,
}

var cancellationRank = map[CancellationStatus]int{
	CancellationStatusNone:      0,
	CancellationStatusPending:   1,
	CancellationStatusConfirmed: 2,
	CancellationStatusProcessed: 3,
	CancellationStatusCompleted: 3,
}

// String implements fmt.Stringer.
func (c CancellationStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CancellationStatus.
func (c CancellationStatus) IsValid() bool {
	for _, candidate := range validCancellationStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the funnel has finished for this account.
func (c CancellationStatus) IsTerminal() bool {
	return c == CancellationStatusProcessed || c == CancellationStatusCompleted
}

// CanAdvanceTo reports whether moving to next respects funnel ordering.
func (c CancellationStatus) CanAdvanceTo(next CancellationStatus) bool {
	currentRank, ok := cancellationRank[c]
	if !ok {
		return false
	}
	nextRank, ok := cancellationRank[next]
	if !ok {
		return false
	}
	return nextRank > currentRank
}

// ParseCancellationStatus converts raw input into a CancellationStatus.
func ParseCancellationStatus(value string) (CancellationStatus, error) {
	for _, candidate := range validCancellationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cancellation status %q", value)
}
