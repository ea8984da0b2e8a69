// Package model provides data models for the sync tool.
package model

import (
	"sort"
	"time"
)

// State is the terminal state of a device after reconciliation.
type State string

const (
	StateCreated State = "created" // Device was created in NetBox
	StateMatched State = "matched" // Device already existed in NetBox
	StateSkipped State = "skipped" // Device was not reconciled, see Reason
)

// SkipReason explains why a device ended in StateSkipped.
type SkipReason string

const (
	ReasonInvalid         SkipReason = "invalid"
	ReasonNoDeviceType    SkipReason = "no-device-type"
	ReasonDeviceTypeError SkipReason = "device-type-error"
	ReasonStepError       SkipReason = "step-error"
)

// Step names a stage of the per-device reconciliation.
type Step string

const (
	StepValidate    Step = "validate"
	StepResolveType Step = "resolve-type"
	StepDevice      Step = "device"
	StepInterfaces  Step = "interfaces"
	StepIPAddresses Step = "ip-addresses"
	StepPrimaryIP   Step = "primary-ip"
)

// Outcome is the per-device result record emitted by the reconciler.
type Outcome struct {
	SourceID string     `json:"source_id"`
	Name     string     `json:"name"`
	Vendor   string     `json:"vendor"`
	Model    string     `json:"model"`
	State    State      `json:"state"`
	Reason   SkipReason `json:"reason,omitempty"`
	Step     Step       `json:"step,omitempty"` // Step that failed, set for skipped devices
	Error    string     `json:"error,omitempty"`

	DeviceTypeSlug    string `json:"device_type_slug,omitempty"`
	DeviceTypeID      int64  `json:"device_type_id,omitempty"`
	DeviceID          int64  `json:"device_id,omitempty"` // NetBox device id
	InterfacesCreated int    `json:"interfaces_created"`
	AddressesCreated  int    `json:"addresses_created"`
	PrimaryIPAssigned bool   `json:"primary_ip_assigned"`
}

// Skipped marks the outcome as skipped and records why.
func (o *Outcome) Skipped(reason SkipReason, step Step, err error) {
	o.State = StateSkipped
	o.Reason = reason
	o.Step = step
	if err != nil {
		o.Error = err.Error()
	}
}

// RunSummary provides aggregated statistics about a run.
type RunSummary struct {
	TotalDevices      int `json:"total_devices"`
	CreatedDevices    int `json:"created_devices"`
	MatchedDevices    int `json:"matched_devices"`
	SkippedDevices    int `json:"skipped_devices"`
	InterfacesCreated int `json:"interfaces_created"`
	AddressesCreated  int `json:"addresses_created"`
	PrimaryIPsSet     int `json:"primary_ips_set"`

	// SkippedByReason counts skipped devices per reason.
	SkippedByReason map[SkipReason]int `json:"skipped_by_reason"`
}

// NewRunSummary creates a RunSummary from device outcomes.
func NewRunSummary(outcomes []*Outcome) *RunSummary {
	summary := &RunSummary{SkippedByReason: make(map[SkipReason]int)}
	for _, o := range outcomes {
		if o == nil {
			continue
		}
		summary.TotalDevices++
		switch o.State {
		case StateCreated:
			summary.CreatedDevices++
		case StateMatched:
			summary.MatchedDevices++
		case StateSkipped:
			summary.SkippedDevices++
			summary.SkippedByReason[o.Reason]++
		}
		summary.InterfacesCreated += o.InterfacesCreated
		summary.AddressesCreated += o.AddressesCreated
		if o.PrimaryIPAssigned {
			summary.PrimaryIPsSet++
		}
	}
	return summary
}

// Reasons returns the skip reasons present in the summary, sorted by name.
func (s *RunSummary) Reasons() []SkipReason {
	reasons := make([]SkipReason, 0, len(s.SkippedByReason))
	for r := range s.SkippedByReason {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	return reasons
}

// RunResult represents the complete result of one reconciliation run.
type RunResult struct {
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	DryRun      bool          `json:"dry_run"`
	CatalogSize int           `json:"catalog_size"`
	Outcomes    []*Outcome    `json:"outcomes"`
	Summary     *RunSummary   `json:"summary"`
	Version     string        `json:"version,omitempty"`
}

// NewRunResult creates a new RunResult started at the given time.
func NewRunResult(startedAt time.Time) *RunResult {
	return &RunResult{
		StartedAt: startedAt,
		Outcomes:  make([]*Outcome, 0),
	}
}

// Add appends a device outcome.
func (r *RunResult) Add(o *Outcome) {
	if o == nil {
		return
	}
	r.Outcomes = append(r.Outcomes, o)
}

// Finalize calculates the summary after all devices have been processed.
func (r *RunResult) Finalize(endTime time.Time) {
	r.Duration = endTime.Sub(r.StartedAt)
	r.Summary = NewRunSummary(r.Outcomes)
}

// SkippedOutcomes returns the outcomes of all skipped devices.
func (r *RunResult) SkippedOutcomes() []*Outcome {
	var skipped []*Outcome
	for _, o := range r.Outcomes {
		if o != nil && o.State == StateSkipped {
			skipped = append(skipped, o)
		}
	}
	return skipped
}
