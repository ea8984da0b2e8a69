package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"librenms-netbox-sync/internal/catalog"
)

// Disambiguation modes accepted by NewPolicy.
const (
	ModeInteractive = "interactive"
	ModeBest        = "best"
	ModeGeneric     = "generic"
	ModeSkip        = "skip"
)

// Action is what a policy decided to do with an unresolved device.
type Action int

const (
	ActionSkip Action = iota
	ActionUse
	ActionGeneric
)

// String returns the action name used in logs.
func (a Action) String() string {
	switch a {
	case ActionUse:
		return "use"
	case ActionGeneric:
		return "generic"
	default:
		return "skip"
	}
}

// Request describes a device whose model could not be matched exactly.
// Candidates is empty when nothing in the catalog came close.
type Request struct {
	Device     string
	Vendor     string
	Model      string
	Candidates []Candidate
}

// Decision is a policy's answer. Entry is set for ActionUse.
type Decision struct {
	Action Action
	Entry  catalog.Entry
}

// Policy decides how to classify a device without an exact catalog match.
type Policy interface {
	Choose(ctx context.Context, req Request) (Decision, error)
}

// NewPolicy returns the policy for a configured mode. The interactive policy
// reads from in and writes its prompt to out.
func NewPolicy(mode string, in io.Reader, out io.Writer) (Policy, error) {
	switch mode {
	case ModeInteractive:
		return NewInteractivePolicy(in, out), nil
	case ModeBest:
		return AutoBestPolicy{}, nil
	case ModeGeneric:
		return AutoGenericPolicy{}, nil
	case ModeSkip, "":
		return SkipPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown disambiguation mode %q", mode)
	}
}

// SkipPolicy skips every unresolved device.
type SkipPolicy struct{}

// Choose implements Policy.
func (SkipPolicy) Choose(context.Context, Request) (Decision, error) {
	return Decision{Action: ActionSkip}, nil
}

// AutoGenericPolicy classifies every unresolved device as generic.
type AutoGenericPolicy struct{}

// Choose implements Policy.
func (AutoGenericPolicy) Choose(context.Context, Request) (Decision, error) {
	return Decision{Action: ActionGeneric}, nil
}

// AutoBestPolicy takes the top-ranked candidate and skips when there is none.
type AutoBestPolicy struct{}

// Choose implements Policy.
func (AutoBestPolicy) Choose(_ context.Context, req Request) (Decision, error) {
	if len(req.Candidates) == 0 {
		return Decision{Action: ActionSkip}, nil
	}
	return Decision{Action: ActionUse, Entry: req.Candidates[0].Entry}, nil
}

// InteractivePolicy asks an operator to pick a candidate on a console.
// It blocks until a line is read. End of input or an unparseable answer skips
// the device.
type InteractivePolicy struct {
	in  *bufio.Reader
	out io.Writer
}

// NewInteractivePolicy creates a prompt over in and out.
func NewInteractivePolicy(in io.Reader, out io.Writer) *InteractivePolicy {
	return &InteractivePolicy{in: bufio.NewReader(in), out: out}
}

// Choose implements Policy. Options are numbered from 1 in rank order,
// followed by the generic device type; 0 or an empty answer skips.
func (p *InteractivePolicy) Choose(ctx context.Context, req Request) (Decision, error) {
	if len(req.Candidates) == 0 {
		return Decision{Action: ActionSkip}, nil
	}
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	fmt.Fprintf(p.out, "\nNo exact device type for %s (vendor %q, model %q). Candidates:\n",
		req.Device, req.Vendor, req.Model)
	for i, c := range req.Candidates {
		fmt.Fprintf(p.out, "  %d) %s (score %.2f)\n", i+1, c.Entry.Path, c.Score)
	}
	genericChoice := len(req.Candidates) + 1
	fmt.Fprintf(p.out, "  %d) generic device type\n", genericChoice)
	fmt.Fprint(p.out, "  0) skip\nChoice: ")

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return Decision{Action: ActionSkip}, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(line))
	switch {
	case err != nil || n <= 0 || n > genericChoice:
		return Decision{Action: ActionSkip}, nil
	case n == genericChoice:
		return Decision{Action: ActionGeneric}, nil
	default:
		return Decision{Action: ActionUse, Entry: req.Candidates[n-1].Entry}, nil
	}
}
