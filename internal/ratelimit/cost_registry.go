package ratelimit

import (
	"sort"
	"sync"
)

// Provider methods and their credit costs.
const (
	MethodGetNFTTransfers = "ankr_getNftTransfers"
	MethodGetNFTsByOwner  = "ankr_getNFTsByOwner"

	CostGetNFTTransfers = 700
	CostGetNFTsByOwner  = 700

	DefaultCreditCost = 200
)

// CreditCostRegistry maps provider methods to credit costs.
// It is safe for concurrent use.
type CreditCostRegistry struct {
	mu          sync.RWMutex
	costs       map[string]int
	defaultCost int
}

// NewCreditCostRegistry creates a registry seeded with the known method costs.
// Non-positive overrides are ignored.
func NewCreditCostRegistry(defaultCost int, overrides map[string]int) *CreditCostRegistry {
	if defaultCost <= 0 {
		defaultCost = DefaultCreditCost
	}
	costs := map[string]int{
		MethodGetNFTTransfers: CostGetNFTTransfers,
		MethodGetNFTsByOwner:  CostGetNFTsByOwner,
	}
	for method, cost := range overrides {
		if cost > 0 {
			costs[method] = cost
		}
	}
	return &CreditCostRegistry{costs: costs, defaultCost: defaultCost}
}

// GetCost returns the credit cost for method, or the default for unknown methods.
func (r *CreditCostRegistry) GetCost(method string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cost, ok := r.costs[method]; ok {
		return cost
	}
	return r.defaultCost
}

// SetCost updates a method's cost at runtime. Non-positive costs are ignored.
func (r *CreditCostRegistry) SetCost(method string, cost int) {
	if cost <= 0 {
		return
	}
	r.mu.Lock()
	r.costs[method] = cost
	r.mu.Unlock()
}

// KnownMethods returns the registered method names in sorted order.
func (r *CreditCostRegistry) KnownMethods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	methods := make([]string, 0, len(r.costs))
	for method := range r.costs {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return methods
}
