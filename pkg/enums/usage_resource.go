package enums

import "fmt"

// UsageResource names a metered resource family compared against plan limits.
type UsageResource string

const (
	UsageResourceProducts UsageResource = "products"
	UsageResourceLabels   UsageResource = "labels"
)

var validUsageResources = []UsageResource{
	UsageResourceProducts,
	UsageResourceLabels,
}

// String implements fmt.Stringer.
func (u UsageResource) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UsageResource.
func (u UsageResource) IsValid() bool {
	for _, candidate := range validUsageResources {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUsageResource converts raw input into a UsageResource.
func ParseUsageResource(value string) (UsageResource, error) {
	for _, candidate := range validUsageResources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid usage resource %q", value)
}
