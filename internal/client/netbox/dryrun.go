// Package netbox provides a client for the NetBox API.
package netbox

import (
	"context"

	"github.com/rs/zerolog"
)

// Intent is a write that a dry run suppressed.
type Intent struct {
	Method   string
	Resource string
	ID       int64 // Target id for PATCH, zero for POST
	Payload  interface{}
}

// DryRun wraps an API so that reads pass through and writes are only logged.
// Suppressed writes return an Object with a zero ID.
type DryRun struct {
	api     API
	intents []Intent
	logger  zerolog.Logger
}

var _ API = (*DryRun)(nil)

// NewDryRun wraps api for a dry run.
func NewDryRun(api API, logger zerolog.Logger) *DryRun {
	return &DryRun{
		api:    api,
		logger: logger.With().Str("component", "netbox-dry-run").Logger(),
	}
}

// Get delegates to the wrapped API.
func (d *DryRun) Get(ctx context.Context, resource string, filters map[string]string) (*ListResponse, error) {
	return d.api.Get(ctx, resource, filters)
}

// Create records and logs the intended POST.
func (d *DryRun) Create(_ context.Context, resource string, payload interface{}) (*Object, error) {
	d.intents = append(d.intents, Intent{Method: "POST", Resource: resource, Payload: payload})
	d.logger.Info().Str("resource", resource).Interface("payload", payload).Msg("[DRY_RUN] POST")
	return &Object{}, nil
}

// Patch records and logs the intended PATCH.
func (d *DryRun) Patch(_ context.Context, resource string, id int64, payload interface{}) (*Object, error) {
	d.intents = append(d.intents, Intent{Method: "PATCH", Resource: resource, ID: id, Payload: payload})
	d.logger.Info().Str("resource", resource).Int64("id", id).Interface("payload", payload).Msg("[DRY_RUN] PATCH")
	return &Object{}, nil
}

// Intents returns the writes suppressed so far.
func (d *DryRun) Intents() []Intent {
	return d.intents
}
