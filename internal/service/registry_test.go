package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librenms-netbox-sync/internal/catalog"
	"librenms-netbox-sync/internal/client/netbox"
)

func newTestRegistry(nb *fakeNetBox, manifests *fakeManifests) (*DeviceTypeRegistry, *ManufacturerRegistry) {
	upserter := NewUpserter(nb, zerolog.Nop())
	manufacturers := NewManufacturerRegistry(upserter)
	return NewDeviceTypeRegistry(upserter, manufacturers, manifests, zerolog.Nop()), manufacturers
}

func ds420Entry() catalog.Entry {
	return catalog.Entry{Path: "device-types/Synology/DS420+.yaml", Vendor: "synology", Slug: "ds420-plus"}
}

func TestUpserter_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	nb := newFakeNetBox()
	u := NewUpserter(nb, zerolog.Nop())
	builds := 0
	build := func() (interface{}, error) {
		builds++
		return map[string]interface{}{"name": "Acme", "slug": "acme"}, nil
	}

	first, created, err := u.GetOrCreate(ctx, netbox.ResourceManufacturers, map[string]string{"slug": "acme"}, build)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := u.GetOrCreate(ctx, netbox.ResourceManufacturers, map[string]string{"slug": "acme"}, build)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, builds, "build only runs when a create is needed")
}

func TestUpserter_ConflictReusesExisting(t *testing.T) {
	nb := newFakeNetBox()
	nb.conflictFor[netbox.ResourceManufacturers] = true
	u := NewUpserter(nb, zerolog.Nop())

	obj, created, err := u.GetOrCreate(context.Background(), netbox.ResourceManufacturers,
		map[string]string{"slug": "acme"},
		func() (interface{}, error) { return map[string]interface{}{"name": "Acme", "slug": "acme"}, nil })

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "acme", obj.Slug)
	assert.Len(t, nb.find(netbox.ResourceManufacturers, nil), 1)
}

func TestUpserter_NonConflictErrorPropagates(t *testing.T) {
	nb := newFakeNetBox()
	nb.createErr[netbox.ResourceManufacturers] = &netbox.APIError{StatusCode: 500, Method: "POST", Resource: netbox.ResourceManufacturers}
	u := NewUpserter(nb, zerolog.Nop())

	_, _, err := u.GetOrCreate(context.Background(), netbox.ResourceManufacturers,
		map[string]string{"slug": "acme"},
		func() (interface{}, error) { return map[string]interface{}{"slug": "acme"}, nil })

	var apiErr *netbox.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 500, apiErr.StatusCode)
}

func TestManufacturerRegistry_GetOrCreate(t *testing.T) {
	nb := newFakeNetBox()
	_, manufacturers := newTestRegistry(nb, &fakeManifests{})

	obj, err := manufacturers.GetOrCreate(context.Background(), " Synology ")

	require.NoError(t, err)
	assert.Equal(t, "synology", obj.Slug)
	assert.Equal(t, "Synology", obj.Name)

	_, err = manufacturers.GetOrCreate(context.Background(), "")
	assert.Error(t, err)
}

func TestDeviceTypeRegistry_Materialize(t *testing.T) {
	ctx := context.Background()
	nb := newFakeNetBox()
	uHeight := 1.0
	manifests := &fakeManifests{manifests: map[string]*catalog.Manifest{
		"device-types/Synology/DS420+.yaml": {Manufacturer: "Synology", Model: "DS420+", Slug: "synology-ds420-plus", PartNumber: "DS420+", UHeight: &uHeight},
	}}
	registry, _ := newTestRegistry(nb, manifests)

	obj, err := registry.Materialize(ctx, ds420Entry())

	require.NoError(t, err)
	assert.Equal(t, "ds420-plus", obj.Slug, "slug comes from the file name")
	assert.Equal(t, "DS420+", obj.Model)
	assert.Equal(t, 1, nb.creates[netbox.ResourceManufacturers])
	assert.Equal(t, 1, nb.creates[netbox.ResourceDeviceTypes])
	assert.Len(t, nb.find(netbox.ResourceDeviceTypes, map[string]string{"manufacturer": "synology", "part_number": "DS420+"}), 1)

	again, err := registry.Materialize(ctx, ds420Entry())
	require.NoError(t, err)
	assert.Equal(t, obj.ID, again.ID)
	assert.Equal(t, 1, manifests.calls, "existing device type is reused without downloading")
}

func TestDeviceTypeRegistry_MaterializeModelFallsBackToSlug(t *testing.T) {
	nb := newFakeNetBox()
	manifests := &fakeManifests{manifests: map[string]*catalog.Manifest{
		"device-types/Synology/DS420+.yaml": {Manufacturer: "Synology", Slug: "synology-ds420-plus"},
	}}
	registry, _ := newTestRegistry(nb, manifests)

	obj, err := registry.Materialize(context.Background(), ds420Entry())

	require.NoError(t, err)
	assert.Equal(t, "ds420-plus", obj.Model)
	assert.Equal(t, "ds420-plus", obj.Slug)
}

func TestDeviceTypeRegistry_MaterializeFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unavailable", catalog.ErrManifestUnavailable},
		{"malformed", catalog.ErrMalformedManifest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nb := newFakeNetBox()
			registry, _ := newTestRegistry(nb, &fakeManifests{err: tt.err})

			_, err := registry.Materialize(context.Background(), ds420Entry())

			assert.ErrorIs(t, err, tt.err)
			assert.Zero(t, nb.totalCreates())
		})
	}
}

func TestDeviceTypeRegistry_MaterializeGenericIsSingleton(t *testing.T) {
	ctx := context.Background()
	nb := newFakeNetBox()

	registry, _ := newTestRegistry(nb, &fakeManifests{})
	first, err := registry.MaterializeGeneric(ctx)
	require.NoError(t, err)
	second, err := registry.MaterializeGeneric(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// A second run against the same NetBox finds the existing pair.
	nextRun, _ := newTestRegistry(nb, &fakeManifests{})
	third, err := nextRun.MaterializeGeneric(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)

	assert.Equal(t, 1, nb.creates[netbox.ResourceManufacturers])
	assert.Equal(t, 1, nb.creates[netbox.ResourceDeviceTypes])
	assert.Equal(t, GenericModel, first.Model)
}

func TestReferences(t *testing.T) {
	ctx := context.Background()
	nb := newFakeNetBox()
	seedReferences(nb)
	nb.seed(netbox.ResourcePlatforms, map[string]interface{}{"name": "Linux", "slug": "linux"})
	refs := NewReferences(NewUpserter(nb, zerolog.Nop()))

	site, err := refs.Site(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, "main", site.Slug)

	_, err = refs.Role(ctx, "missing")
	assert.ErrorIs(t, err, ErrReferenceNotFound)

	platform, err := refs.Platform(ctx, "Linux")
	require.NoError(t, err)
	require.NotNil(t, platform)

	platform, err = refs.Platform(ctx, "dsm")
	require.NoError(t, err)
	assert.Nil(t, platform)
	assert.Zero(t, nb.totalCreates(), "references are never created")
}
