package service

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"librenms-netbox-sync/internal/catalog"
	"librenms-netbox-sync/internal/client/netbox"
	"librenms-netbox-sync/internal/config"
	"librenms-netbox-sync/internal/model"
)

// =============================================================================
// In-memory NetBox
// =============================================================================

type fakeRecord struct {
	obj   netbox.Object
	attrs map[string]string
}

// fakeNetBox is an in-memory netbox.API. Filters match attributes derived
// from create payloads: scalar fields by name, custom fields as cf_<name>,
// an interface's device as device_id and a device type's manufacturer both
// by id (manufacturer_id) and slug (manufacturer).
type fakeNetBox struct {
	nextID  int64
	records map[string][]*fakeRecord
	creates map[string]int
	patches []map[string]interface{}

	getErr      map[string]error
	createErr   map[string]error
	conflictFor map[string]bool // Create stores the record, then reports a conflict
}

var _ netbox.API = (*fakeNetBox)(nil)

func newFakeNetBox() *fakeNetBox {
	return &fakeNetBox{
		records:     make(map[string][]*fakeRecord),
		creates:     make(map[string]int),
		getErr:      make(map[string]error),
		createErr:   make(map[string]error),
		conflictFor: make(map[string]bool),
	}
}

// seed stores an object without counting it as a create.
func (f *fakeNetBox) seed(resource string, payload map[string]interface{}) *netbox.Object {
	return f.store(resource, payload)
}

func (f *fakeNetBox) totalCreates() int {
	total := 0
	for _, n := range f.creates {
		total += n
	}
	return total
}

func (f *fakeNetBox) Get(_ context.Context, resource string, filters map[string]string) (*netbox.ListResponse, error) {
	if err := f.getErr[resource]; err != nil {
		return nil, err
	}
	resp := &netbox.ListResponse{}
	for _, rec := range f.records[resource] {
		if matches(rec.attrs, filters) {
			resp.Results = append(resp.Results, rec.obj)
		}
	}
	resp.Count = len(resp.Results)
	return resp, nil
}

func (f *fakeNetBox) Create(_ context.Context, resource string, payload interface{}) (*netbox.Object, error) {
	if err := f.createErr[resource]; err != nil {
		return nil, err
	}
	fields, ok := payload.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected payload type %T", payload)
	}
	obj := f.store(resource, fields)
	if f.conflictFor[resource] {
		return nil, &netbox.APIError{StatusCode: 400, Method: "POST", Resource: resource, Body: `{"slug":["already exists"]}`}
	}
	f.creates[resource]++
	return obj, nil
}

func (f *fakeNetBox) Patch(_ context.Context, resource string, id int64, payload interface{}) (*netbox.Object, error) {
	fields, _ := payload.(map[string]interface{})
	f.patches = append(f.patches, fields)
	for _, rec := range f.records[resource] {
		if rec.obj.ID != id {
			continue
		}
		if v, ok := fields["primary_ip4"]; ok {
			rec.obj.PrimaryIP4 = &netbox.NestedObject{ID: v.(int64)}
		}
		if v, ok := fields["primary_ip6"]; ok {
			rec.obj.PrimaryIP6 = &netbox.NestedObject{ID: v.(int64)}
		}
		obj := rec.obj
		return &obj, nil
	}
	return nil, &netbox.APIError{StatusCode: 404, Method: "PATCH", Resource: resource}
}

func (f *fakeNetBox) store(resource string, fields map[string]interface{}) *netbox.Object {
	f.nextID++
	rec := &fakeRecord{obj: netbox.Object{ID: f.nextID}, attrs: map[string]string{"id": strconv.FormatInt(f.nextID, 10)}}

	for k, v := range fields {
		switch k {
		case "custom_fields":
			cf, _ := v.(map[string]interface{})
			rec.obj.CustomFields = cf
			for name, value := range cf {
				rec.attrs["cf_"+name] = fmt.Sprint(value)
			}
		default:
			rec.attrs[k] = fmt.Sprint(v)
		}
	}
	rec.obj.Name = rec.attrs["name"]
	rec.obj.Slug = rec.attrs["slug"]
	rec.obj.Model = rec.attrs["model"]
	rec.obj.Address = rec.attrs["address"]

	switch resource {
	case netbox.ResourceInterfaces:
		rec.attrs["device_id"] = rec.attrs["device"]
	case netbox.ResourceDeviceTypes:
		rec.attrs["manufacturer_id"] = rec.attrs["manufacturer"]
		for _, m := range f.records[netbox.ResourceManufacturers] {
			if m.attrs["id"] == rec.attrs["manufacturer"] {
				rec.attrs["manufacturer"] = m.obj.Slug
			}
		}
	}

	f.records[resource] = append(f.records[resource], rec)
	obj := rec.obj
	return &obj
}

func (f *fakeNetBox) find(resource string, filters map[string]string) []netbox.Object {
	resp, _ := f.Get(context.Background(), resource, filters)
	return resp.Results
}

func matches(attrs, filters map[string]string) bool {
	for k, v := range filters {
		if attrs[k] != v {
			return false
		}
	}
	return true
}

// =============================================================================
// Source and catalog fakes
// =============================================================================

type fakeInventory struct {
	devices  []*model.SourceDevice
	ports    map[int64][]model.SourcePort
	bindings map[int64][]model.SourceIPBinding

	listErr  error
	portsErr map[int64]error
}

func (f *fakeInventory) ListDevices(context.Context) ([]*model.SourceDevice, error) {
	return f.devices, f.listErr
}

func (f *fakeInventory) ListPorts(_ context.Context, deviceID int64) ([]model.SourcePort, error) {
	if err := f.portsErr[deviceID]; err != nil {
		return nil, err
	}
	return f.ports[deviceID], nil
}

func (f *fakeInventory) ListIPBindings(_ context.Context, deviceID int64, _ []model.SourcePort) ([]model.SourceIPBinding, error) {
	return f.bindings[deviceID], nil
}

type fakeManifests struct {
	manifests map[string]*catalog.Manifest
	err       error
	calls     int
}

func (f *fakeManifests) FetchManifest(_ context.Context, path string) (*catalog.Manifest, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	m, ok := f.manifests[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, catalog.ErrManifestUnavailable)
	}
	return m, nil
}

// =============================================================================
// Helpers
// =============================================================================

func testIndex(paths ...string) *catalog.Index {
	return catalog.NewIndex("device-types", paths)
}

func createTestConfig() *config.Config {
	return &config.Config{
		Catalog: config.CatalogConfig{
			Cutoff:                 DefaultCutoff,
			MaxSuggestions:         DefaultMaxSuggestions,
			GenericWhenUnavailable: true,
		},
		Sync: config.SyncConfig{
			Site:           "main",
			Role:           "server",
			Interfaces:     true,
			IPAddresses:    true,
			InterfaceType:  "other",
			Disambiguation: ModeSkip,
		},
		Report: config.ReportConfig{Timezone: "UTC"},
	}
}

// seedReferences creates the site and role every run needs.
func seedReferences(nb *fakeNetBox) {
	nb.seed(netbox.ResourceSites, map[string]interface{}{"name": "Main", "slug": "main"})
	nb.seed(netbox.ResourceDeviceRoles, map[string]interface{}{"name": "Server", "slug": "server"})
}

func newTestReconciler(
	t *testing.T,
	cfg *config.Config,
	inv *fakeInventory,
	nb *fakeNetBox,
	manifests *fakeManifests,
	index *catalog.Index,
	policy Policy,
	opts ...ReconcilerOption,
) *Reconciler {
	t.Helper()
	r, err := NewReconciler(cfg, inv, nb, manifests, index, policy, zerolog.Nop(), opts...)
	require.NoError(t, err)
	return r
}
