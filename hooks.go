package intuneup

import (
	"sync"

	"github.com/realgarit/intuneup/pkg/policy"
	"github.com/realgarit/intuneup/pkg/remediate"
)

// Hook function types for reconciliation events
type (
	// NonCompliantHook is called for every policy that deviates from its golden standard
	NonCompliantHook func(result policy.Result)

	// RemediatedHook is called after a patch was written
	RemediatedHook func(outcome remediate.Outcome)

	// ProvisionedHook is called after a policy was created
	ProvisionedHook func(outcome remediate.Outcome)
)

// hooks manages event callbacks
type hooks struct {
	mu             sync.RWMutex
	onNonCompliant []NonCompliantHook
	onRemediated   []RemediatedHook
	onProvisioned  []ProvisionedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnNonCompliant registers a callback for non-compliant policies
func (h *hooks) OnNonCompliant(fn NonCompliantHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onNonCompliant = append(h.onNonCompliant, fn)
}

// OnRemediated registers a callback for applied patches
func (h *hooks) OnRemediated(fn RemediatedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRemediated = append(h.onRemediated, fn)
}

// OnProvisioned registers a callback for created policies
func (h *hooks) OnProvisioned(fn ProvisionedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onProvisioned = append(h.onProvisioned, fn)
}

// triggerResults calls the non-compliant hooks for every deviating result
func (h *hooks) triggerResults(results []policy.Result) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, r := range results {
		if r.IsFullyCompliant {
			continue
		}
		for _, hook := range h.onNonCompliant {
			hook(r)
		}
	}
}

func (h *hooks) triggerRemediated(outcome remediate.Outcome) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, hook := range h.onRemediated {
		hook(outcome)
	}
}

func (h *hooks) triggerProvisioned(outcome remediate.Outcome) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, hook := range h.onProvisioned {
		hook(outcome)
	}
}
