package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"librenms-netbox-sync/internal/catalog"
	"librenms-netbox-sync/internal/client/netbox"
	"librenms-netbox-sync/internal/model"
)

// Generic device type identity.
const (
	GenericModel = "Generic Device"
	GenericSlug  = "generic"
)

// ErrReferenceNotFound is returned when a required site or role does not exist.
var ErrReferenceNotFound = errors.New("reference not found")

// ManifestFetcher downloads device-type manifests from the catalog.
type ManifestFetcher interface {
	FetchManifest(ctx context.Context, path string) (*catalog.Manifest, error)
}

// Upserter performs get-or-create against NetBox, keyed by a natural-key filter.
type Upserter struct {
	api    netbox.API
	logger zerolog.Logger
}

// NewUpserter creates an Upserter over api.
func NewUpserter(api netbox.API, logger zerolog.Logger) *Upserter {
	return &Upserter{
		api:    api,
		logger: logger.With().Str("component", "upserter").Logger(),
	}
}

// Find returns the first object of resource matching key, or nil.
func (u *Upserter) Find(ctx context.Context, resource string, key map[string]string) (*netbox.Object, error) {
	resp, err := u.api.Get(ctx, resource, key)
	if err != nil {
		return nil, err
	}
	return resp.First(), nil
}

// GetOrCreate returns the object of resource matching key, creating it from
// the payload returned by build when absent. build is only called when a
// create is needed. A create rejected as a conflict is resolved by looking
// the object up again. The boolean reports whether a create was issued.
func (u *Upserter) GetOrCreate(
	ctx context.Context,
	resource string,
	key map[string]string,
	build func() (interface{}, error),
) (*netbox.Object, bool, error) {
	existing, err := u.Find(ctx, resource, key)
	if err != nil {
		return nil, false, fmt.Errorf("lookup %s: %w", resource, err)
	}
	if existing != nil {
		return existing, false, nil
	}

	payload, err := build()
	if err != nil {
		return nil, false, err
	}

	created, err := u.api.Create(ctx, resource, payload)
	if err == nil {
		return created, true, nil
	}

	var apiErr *netbox.APIError
	if !errors.As(err, &apiErr) || !apiErr.IsConflict() {
		return nil, false, fmt.Errorf("create %s: %w", resource, err)
	}

	u.logger.Debug().Str("resource", resource).Interface("key", key).Msg("create conflicted, looking up existing object")
	existing, lookupErr := u.Find(ctx, resource, key)
	if lookupErr != nil || existing == nil {
		return nil, false, fmt.Errorf("create %s: %w", resource, err)
	}
	return existing, false, nil
}

// ManufacturerRegistry resolves manufacturers by slug, creating them on demand.
type ManufacturerRegistry struct {
	upserter *Upserter
}

// NewManufacturerRegistry creates a ManufacturerRegistry.
func NewManufacturerRegistry(upserter *Upserter) *ManufacturerRegistry {
	return &ManufacturerRegistry{upserter: upserter}
}

// GetOrCreate returns the manufacturer with the given slug. A new manufacturer
// is named after its slug with the first letter capitalized.
func (r *ManufacturerRegistry) GetOrCreate(ctx context.Context, slug string) (*netbox.Object, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, errors.New("manufacturer slug is empty")
	}

	obj, _, err := r.upserter.GetOrCreate(ctx, netbox.ResourceManufacturers,
		map[string]string{"slug": slug},
		func() (interface{}, error) {
			return map[string]interface{}{"name": capitalize(slug), "slug": slug}, nil
		})
	if err != nil {
		return nil, fmt.Errorf("manufacturer %s: %w", slug, err)
	}
	return obj, nil
}

// DeviceTypeRegistry resolves device types, materializing catalog entries
// into NetBox when needed.
type DeviceTypeRegistry struct {
	upserter      *Upserter
	manufacturers *ManufacturerRegistry
	manifests     ManifestFetcher
	generic       *netbox.Object
	logger        zerolog.Logger
}

// NewDeviceTypeRegistry creates a DeviceTypeRegistry.
func NewDeviceTypeRegistry(
	upserter *Upserter,
	manufacturers *ManufacturerRegistry,
	manifests ManifestFetcher,
	logger zerolog.Logger,
) *DeviceTypeRegistry {
	return &DeviceTypeRegistry{
		upserter:      upserter,
		manufacturers: manufacturers,
		manifests:     manifests,
		logger:        logger.With().Str("component", "device-types").Logger(),
	}
}

// Lookup returns the device type with the given slug, or nil.
func (r *DeviceTypeRegistry) Lookup(ctx context.Context, slug string) (*netbox.Object, error) {
	if slug == "" {
		return nil, nil
	}
	return r.upserter.Find(ctx, netbox.ResourceDeviceTypes, map[string]string{"slug": slug})
}

// Materialize ensures the device type of a catalog entry exists in NetBox.
// The NetBox slug is derived from the manifest file name. When a device type
// with that slug already exists it is reused and the manifest is not fetched.
// A manifest without a model is named after the slug.
func (r *DeviceTypeRegistry) Materialize(ctx context.Context, entry catalog.Entry) (*netbox.Object, error) {
	obj, created, err := r.upserter.GetOrCreate(ctx, netbox.ResourceDeviceTypes,
		map[string]string{"slug": entry.Slug},
		func() (interface{}, error) {
			return r.buildDeviceType(ctx, entry)
		})
	if err != nil {
		return nil, fmt.Errorf("device type %s: %w", entry.Path, err)
	}

	if created {
		r.logger.Info().Str("slug", entry.Slug).Str("path", entry.Path).Int64("id", obj.ID).Msg("device type created")
	}
	return obj, nil
}

func (r *DeviceTypeRegistry) buildDeviceType(ctx context.Context, entry catalog.Entry) (interface{}, error) {
	manifest, err := r.manifests.FetchManifest(ctx, entry.Path)
	if err != nil {
		return nil, err
	}

	manufacturer, err := r.manufacturers.GetOrCreate(ctx, entry.Vendor)
	if err != nil {
		return nil, err
	}

	deviceModel := manifest.Model
	if deviceModel == "" {
		deviceModel = entry.Slug
	}

	payload := map[string]interface{}{
		"manufacturer": manufacturer.ID,
		"model":        deviceModel,
		"slug":         entry.Slug,
	}
	if manifest.PartNumber != "" {
		payload["part_number"] = manifest.PartNumber
	}
	if manifest.UHeight != nil {
		payload["u_height"] = *manifest.UHeight
	}
	if manifest.IsFullDepth != nil {
		payload["is_full_depth"] = *manifest.IsFullDepth
	}
	if manifest.Airflow != "" {
		payload["airflow"] = manifest.Airflow
	}
	if manifest.Comments != "" {
		payload["comments"] = manifest.Comments
	}
	return payload, nil
}

// MaterializeGeneric ensures the catalog-independent generic manufacturer and
// device type exist. Repeated calls return the same object.
func (r *DeviceTypeRegistry) MaterializeGeneric(ctx context.Context) (*netbox.Object, error) {
	if r.generic != nil {
		return r.generic, nil
	}

	obj, created, err := r.upserter.GetOrCreate(ctx, netbox.ResourceDeviceTypes,
		map[string]string{"slug": GenericSlug, "manufacturer": model.GenericVendor},
		func() (interface{}, error) {
			manufacturer, err := r.manufacturers.GetOrCreate(ctx, model.GenericVendor)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"manufacturer": manufacturer.ID,
				"model":        GenericModel,
				"slug":         GenericSlug,
			}, nil
		})
	if err != nil {
		return nil, fmt.Errorf("generic device type: %w", err)
	}

	if created {
		r.logger.Info().Int64("id", obj.ID).Msg("generic device type created")
	}
	r.generic = obj
	return obj, nil
}

// References resolves the run-wide site and role and optional platforms.
// None of them are ever created.
type References struct {
	upserter *Upserter
}

// NewReferences creates a References resolver.
func NewReferences(upserter *Upserter) *References {
	return &References{upserter: upserter}
}

// Site returns the site with the given slug or ErrReferenceNotFound.
func (r *References) Site(ctx context.Context, slug string) (*netbox.Object, error) {
	return r.required(ctx, netbox.ResourceSites, "site", slug)
}

// Role returns the device role with the given slug or ErrReferenceNotFound.
func (r *References) Role(ctx context.Context, slug string) (*netbox.Object, error) {
	return r.required(ctx, netbox.ResourceDeviceRoles, "role", slug)
}

// Platform returns the platform whose slug matches the normalized name, or nil.
func (r *References) Platform(ctx context.Context, name string) (*netbox.Object, error) {
	slug := model.NormalizeSlug(name)
	if slug == "" {
		return nil, nil
	}
	return r.upserter.Find(ctx, netbox.ResourcePlatforms, map[string]string{"slug": slug})
}

func (r *References) required(ctx context.Context, resource, kind, slug string) (*netbox.Object, error) {
	obj, err := r.upserter.Find(ctx, resource, map[string]string{"slug": slug})
	if err != nil {
		return nil, fmt.Errorf("lookup %s %s: %w", kind, slug, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%s %q: %w", kind, slug, ErrReferenceNotFound)
	}
	return obj, nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
