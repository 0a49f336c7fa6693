package gateway

// PlanPriceResolver maps local plan names to gateway price refs. The mapping
// is configuration, not data: plans without an entry cannot be renewed and
// the renewal job treats them as a local failure.
type PlanPriceResolver struct {
	prices map[string]string
}

// NewPlanPriceResolver builds a resolver over a plan-name to price-ref map.
func NewPlanPriceResolver(prices map[string]string) *PlanPriceResolver {
	if prices == nil {
		prices = map[string]string{}
	}
	return &PlanPriceResolver{prices: prices}
}

// Resolve returns the gateway price ref for the plan name.
func (r *PlanPriceResolver) Resolve(planName string) (string, bool) {
	ref, ok := r.prices[planName]
	return ref, ok && ref != ""
}
