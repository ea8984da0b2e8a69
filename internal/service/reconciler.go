package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"librenms-netbox-sync/internal/catalog"
	"librenms-netbox-sync/internal/client/netbox"
	"librenms-netbox-sync/internal/config"
	"librenms-netbox-sync/internal/model"
)

const defaultTimezone = "UTC"

// Custom fields written on NetBox objects.
const (
	FieldSourceID = "librenms_id"
	FieldHardware = "librenms_hardware"
	FieldLocation = "librenms_location"
	FieldPurpose  = "librenms_purpose"
	FieldPortID   = "librenms_port_id"
)

// ErrInvalidDevice is recorded for source records without an id or a name.
var ErrInvalidDevice = errors.New("device record has no device_id or hostname")

// Inventory lists devices, ports and IP bindings from the monitoring source.
type Inventory interface {
	ListDevices(ctx context.Context) ([]*model.SourceDevice, error)
	ListPorts(ctx context.Context, deviceID int64) ([]model.SourcePort, error)
	ListIPBindings(ctx context.Context, deviceID int64, ports []model.SourcePort) ([]model.SourceIPBinding, error)
}

// Reconciler drives the per-device reconciliation of the source inventory
// into NetBox. Devices are processed one at a time; a failure on one device
// is recorded in its outcome and never stops the batch.
type Reconciler struct {
	inventory   Inventory
	upserter    *Upserter
	resolver    *Resolver
	deviceTypes *DeviceTypeRegistry
	refs        *References
	policy      Policy

	sync                   config.SyncConfig
	genericWhenUnavailable bool
	deviceIDs              map[int64]bool
	observer               func(model.Outcome)
	dryRun                 bool
	timezone               *time.Location
	version                string
	logger                 zerolog.Logger
}

// ReconcilerOption is a functional option for configuring a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithObserver registers a callback that receives each outcome as soon as
// its device is done.
func WithObserver(fn func(model.Outcome)) ReconcilerOption {
	return func(r *Reconciler) {
		r.observer = fn
	}
}

// WithDeviceIDs restricts the run to the given source device ids.
// An empty list reconciles every device.
func WithDeviceIDs(ids []int64) ReconcilerOption {
	return func(r *Reconciler) {
		if len(ids) == 0 {
			r.deviceIDs = nil
			return
		}
		r.deviceIDs = make(map[int64]bool, len(ids))
		for _, id := range ids {
			r.deviceIDs[id] = true
		}
	}
}

// WithDryRun marks the run result as a dry run.
func WithDryRun(dryRun bool) ReconcilerOption {
	return func(r *Reconciler) {
		r.dryRun = dryRun
	}
}

// WithVersion sets the tool version to include in the run result.
func WithVersion(version string) ReconcilerOption {
	return func(r *Reconciler) {
		r.version = version
	}
}

// NewReconciler wires a Reconciler from configuration. The catalog index is
// the snapshot every resolution of the run sees.
func NewReconciler(
	cfg *config.Config,
	inventory Inventory,
	api netbox.API,
	manifests ManifestFetcher,
	index *catalog.Index,
	policy Policy,
	logger zerolog.Logger,
	opts ...ReconcilerOption,
) (*Reconciler, error) {
	tzName := defaultTimezone
	if cfg.Report.Timezone != "" {
		tzName = cfg.Report.Timezone
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", tzName, err)
	}

	if policy == nil {
		policy = SkipPolicy{}
	}

	upserter := NewUpserter(api, logger)
	manufacturers := NewManufacturerRegistry(upserter)

	r := &Reconciler{
		inventory:   inventory,
		upserter:    upserter,
		resolver:    NewResolver(index, WithCutoff(cfg.Catalog.Cutoff), WithMaxSuggestions(cfg.Catalog.MaxSuggestions)),
		deviceTypes: NewDeviceTypeRegistry(upserter, manufacturers, manifests, logger),
		refs:        NewReferences(upserter),
		policy:      policy,

		sync:                   cfg.Sync,
		genericWhenUnavailable: cfg.Catalog.GenericWhenUnavailable,
		timezone:               loc,
		version:                "dev",
		logger:                 logger.With().Str("component", "reconciler").Logger(),
	}
	if r.sync.InterfaceType == "" {
		r.sync.InterfaceType = "other"
	}

	WithDeviceIDs(cfg.Sync.DeviceIDs)(r)
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// runRefs are the NetBox objects shared by every device of a run.
type runRefs struct {
	siteID int64
	roleID int64
}

// Run reconciles every source device. It fails only when the site or role
// cannot be resolved, the source devices cannot be listed, or ctx is done.
func (r *Reconciler) Run(ctx context.Context) (*model.RunResult, error) {
	startTime := time.Now().In(r.timezone)
	r.logger.Info().
		Time("start_time", startTime).
		Bool("dry_run", r.dryRun).
		Int("catalog_entries", r.resolver.Index().Len()).
		Msg("starting reconciliation")

	site, err := r.refs.Site(ctx, r.sync.Site)
	if err != nil {
		return nil, err
	}
	role, err := r.refs.Role(ctx, r.sync.Role)
	if err != nil {
		return nil, err
	}
	refs := runRefs{siteID: site.ID, roleID: role.ID}

	devices, err := r.inventory.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list source devices: %w", err)
	}
	r.logger.Info().Int("devices", len(devices)).Msg("source devices listed")

	result := model.NewRunResult(startTime)
	result.DryRun = r.dryRun
	result.CatalogSize = r.resolver.Index().Len()
	result.Version = r.version

	for _, device := range devices {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("reconciliation cancelled: %w", err)
		}
		if device != nil && r.deviceIDs != nil && !r.deviceIDs[device.DeviceID] {
			continue
		}

		outcome := r.reconcile(ctx, device, refs)
		r.logOutcome(outcome)
		result.Add(outcome)
		if r.observer != nil {
			r.observer(*outcome)
		}
	}

	result.Finalize(time.Now().In(r.timezone))

	r.logger.Info().
		Int("total_devices", result.Summary.TotalDevices).
		Int("created", result.Summary.CreatedDevices).
		Int("matched", result.Summary.MatchedDevices).
		Int("skipped", result.Summary.SkippedDevices).
		Int("interfaces_created", result.Summary.InterfacesCreated).
		Int("addresses_created", result.Summary.AddressesCreated).
		Dur("duration", result.Duration).
		Msg("reconciliation completed")

	return result, nil
}

func (r *Reconciler) logOutcome(o *model.Outcome) {
	event := r.logger.Info()
	if o.State == model.StateSkipped {
		event = r.logger.Warn().Str("reason", string(o.Reason)).Str("step", string(o.Step))
		if o.Error != "" {
			event = event.Str("error", o.Error)
		}
	}
	event.
		Str("device_id", o.SourceID).
		Str("device", o.Name).
		Str("state", string(o.State)).
		Str("device_type", o.DeviceTypeSlug).
		Msg("device reconciled")
}

// reconcile runs the per-device state machine and always returns an outcome.
func (r *Reconciler) reconcile(ctx context.Context, d *model.SourceDevice, refs runRefs) *model.Outcome {
	outcome := &model.Outcome{}
	if !d.Valid() {
		if d != nil {
			outcome.SourceID = d.SourceID()
			outcome.Name = d.Name()
		}
		outcome.Skipped(model.ReasonInvalid, model.StepValidate, ErrInvalidDevice)
		return outcome
	}

	outcome.SourceID = d.SourceID()
	outcome.Name = d.Name()
	outcome.Vendor = d.VendorHint()
	outcome.Model = d.ModelHint()

	deviceType, reason, err := r.resolveDeviceType(ctx, d)
	if deviceType == nil {
		outcome.Skipped(reason, model.StepResolveType, err)
		return outcome
	}
	outcome.DeviceTypeID = deviceType.ID
	outcome.DeviceTypeSlug = deviceType.Slug

	device, created, err := r.upsertDevice(ctx, d, deviceType.ID, refs)
	if err != nil {
		outcome.Skipped(model.ReasonStepError, model.StepDevice, err)
		return outcome
	}
	outcome.DeviceID = device.ID
	outcome.State = model.StateMatched
	if created {
		outcome.State = model.StateCreated
	}

	if !r.sync.Interfaces && !r.sync.IPAddresses {
		return outcome
	}

	ports, err := r.inventory.ListPorts(ctx, d.DeviceID)
	if err != nil {
		outcome.Skipped(model.ReasonStepError, model.StepInterfaces, fmt.Errorf("list ports: %w", err))
		return outcome
	}

	interfaces := newInterfaceSet(r.upserter, device.ID)
	if r.sync.Interfaces {
		n, err := r.upsertInterfaces(ctx, device.ID, ports, interfaces)
		outcome.InterfacesCreated = n
		if err != nil {
			outcome.Skipped(model.ReasonStepError, model.StepInterfaces, err)
			return outcome
		}
	}

	if !r.sync.IPAddresses {
		return outcome
	}

	bindings, err := r.inventory.ListIPBindings(ctx, d.DeviceID, ports)
	if err != nil {
		outcome.Skipped(model.ReasonStepError, model.StepIPAddresses, fmt.Errorf("list ip bindings: %w", err))
		return outcome
	}

	primaries, n, err := r.upsertIPs(ctx, d, bindings, interfaces)
	outcome.AddressesCreated = n
	if err != nil {
		outcome.Skipped(model.ReasonStepError, model.StepIPAddresses, err)
		return outcome
	}

	assigned, err := r.assignPrimaryIPs(ctx, device, primaries)
	if err != nil {
		outcome.Skipped(model.ReasonStepError, model.StepPrimaryIP, err)
		return outcome
	}
	outcome.PrimaryIPAssigned = assigned

	return outcome
}

// resolveDeviceType finds or creates the device type for d. A nil object
// comes with the skip reason to record.
func (r *Reconciler) resolveDeviceType(ctx context.Context, d *model.SourceDevice) (*netbox.Object, model.SkipReason, error) {
	vendor, rawModel := d.VendorHint(), d.ModelHint()

	if slug := model.NormalizeSlug(rawModel); slug != "" {
		existing, err := r.deviceTypes.Lookup(ctx, slug)
		if err != nil {
			return nil, model.ReasonDeviceTypeError, err
		}
		if existing != nil {
			return existing, "", nil
		}
	}

	if r.resolver.Index().Empty() && r.genericWhenUnavailable {
		return r.materializeGeneric(ctx)
	}

	res := r.resolver.Resolve(vendor, rawModel)
	r.logger.Debug().
		Str("device", d.Name()).
		Str("vendor", res.Vendor).
		Str("model", res.Slug).
		Str("resolution", res.Kind.String()).
		Int("candidates", len(res.Candidates)).
		Msg("device type resolved")

	if res.Kind == Exact {
		return r.materialize(ctx, res.Entry)
	}

	decision, err := r.policy.Choose(ctx, Request{
		Device:     d.Name(),
		Vendor:     vendor,
		Model:      rawModel,
		Candidates: res.Candidates,
	})
	if err != nil {
		return nil, model.ReasonNoDeviceType, fmt.Errorf("disambiguation: %w", err)
	}

	switch decision.Action {
	case ActionUse:
		return r.materialize(ctx, decision.Entry)
	case ActionGeneric:
		return r.materializeGeneric(ctx)
	default:
		return nil, model.ReasonNoDeviceType, fmt.Errorf("no device type for vendor %q model %q", vendor, rawModel)
	}
}

func (r *Reconciler) materialize(ctx context.Context, entry catalog.Entry) (*netbox.Object, model.SkipReason, error) {
	obj, err := r.deviceTypes.Materialize(ctx, entry)
	if err != nil {
		return nil, model.ReasonDeviceTypeError, err
	}
	if obj.Slug == "" {
		obj.Slug = entry.Slug
	}
	return obj, "", nil
}

func (r *Reconciler) materializeGeneric(ctx context.Context) (*netbox.Object, model.SkipReason, error) {
	obj, err := r.deviceTypes.MaterializeGeneric(ctx)
	if err != nil {
		return nil, model.ReasonDeviceTypeError, err
	}
	if obj.Slug == "" {
		obj.Slug = GenericSlug
	}
	return obj, "", nil
}

// upsertDevice finds the device by its source id or creates it. An existing
// device is returned untouched.
func (r *Reconciler) upsertDevice(ctx context.Context, d *model.SourceDevice, deviceTypeID int64, refs runRefs) (*netbox.Object, bool, error) {
	return r.upserter.GetOrCreate(ctx, netbox.ResourceDevices,
		map[string]string{"cf_" + FieldSourceID: d.SourceID()},
		func() (interface{}, error) {
			return r.devicePayload(ctx, d, deviceTypeID, refs)
		})
}

func (r *Reconciler) devicePayload(ctx context.Context, d *model.SourceDevice, deviceTypeID int64, refs runRefs) (interface{}, error) {
	customFields := map[string]interface{}{FieldSourceID: d.SourceID()}
	for field, value := range map[string]string{
		FieldHardware: d.Hardware,
		FieldLocation: d.Location,
		FieldPurpose:  d.Purpose,
	} {
		if v := strings.TrimSpace(value); v != "" {
			customFields[field] = v
		}
	}

	payload := map[string]interface{}{
		"name":          d.Name(),
		"device_type":   deviceTypeID,
		"role":          refs.roleID,
		"site":          refs.siteID,
		"status":        "active",
		"custom_fields": customFields,
	}
	if d.Serial != "" {
		payload["serial"] = d.Serial
	}
	if d.AssetTag != "" {
		payload["asset_tag"] = d.AssetTag
	}
	if d.Notes != "" {
		payload["comments"] = d.Notes
	}

	platform, err := r.refs.Platform(ctx, d.OS)
	if err != nil {
		return nil, fmt.Errorf("lookup platform %s: %w", d.OS, err)
	}
	if platform != nil {
		payload["platform"] = platform.ID
	}

	return payload, nil
}

// interfaceSet resolves interface ids of one device by name.
type interfaceSet struct {
	upserter *Upserter
	deviceID int64
	ids      map[string]int64
}

func newInterfaceSet(upserter *Upserter, deviceID int64) *interfaceSet {
	return &interfaceSet{upserter: upserter, deviceID: deviceID, ids: make(map[string]int64)}
}

func (s *interfaceSet) key(name string) map[string]string {
	return map[string]string{"device_id": strconv.FormatInt(s.deviceID, 10), "name": name}
}

// lookup returns the id of a known or existing interface.
func (s *interfaceSet) lookup(ctx context.Context, name string) (int64, bool, error) {
	if id, ok := s.ids[name]; ok {
		return id, true, nil
	}
	obj, err := s.upserter.Find(ctx, netbox.ResourceInterfaces, s.key(name))
	if err != nil || obj == nil {
		return 0, false, err
	}
	s.ids[name] = obj.ID
	return obj.ID, true, nil
}

// upsertInterfaces creates the ports missing on the device and returns how
// many were created.
func (r *Reconciler) upsertInterfaces(ctx context.Context, deviceID int64, ports []model.SourcePort, set *interfaceSet) (int, error) {
	created := 0
	for _, port := range ports {
		if port.Name == "" {
			continue
		}
		if _, seen := set.ids[port.Name]; seen {
			continue
		}

		obj, isNew, err := r.upserter.GetOrCreate(ctx, netbox.ResourceInterfaces, set.key(port.Name),
			func() (interface{}, error) {
				return r.interfacePayload(deviceID, port), nil
			})
		if err != nil {
			return created, fmt.Errorf("interface %s: %w", port.Name, err)
		}
		set.ids[port.Name] = obj.ID
		if isNew {
			created++
		}
	}
	return created, nil
}

func (r *Reconciler) interfacePayload(deviceID int64, port model.SourcePort) map[string]interface{} {
	payload := map[string]interface{}{
		"device":        deviceID,
		"name":          port.Name,
		"type":          r.sync.InterfaceType,
		"enabled":       port.Enabled(),
		"custom_fields": map[string]interface{}{FieldPortID: port.PortID},
	}
	if port.Description != "" {
		payload["description"] = port.Description
	}
	if port.Speed > 0 {
		payload["speed"] = port.Speed / 1000 // NetBox stores kbps
	}
	if mac := formatMAC(port.PhysAddress); mac != "" {
		payload["mac_address"] = mac
	}
	if port.MTU > 0 {
		payload["mtu"] = port.MTU
	}
	return payload
}

// primaryCandidates holds the address ids eligible as primary IPs.
type primaryCandidates struct {
	v4, v6       int64
	hasV4, hasV6 bool
}

// upsertIPs creates missing addresses bound to their interfaces. The first
// IPv4 and IPv6 address seen become primary candidates, except that the
// source's own primary address wins for its family.
func (r *Reconciler) upsertIPs(
	ctx context.Context,
	d *model.SourceDevice,
	bindings []model.SourceIPBinding,
	set *interfaceSet,
) (primaryCandidates, int, error) {
	var primaries primaryCandidates
	preferred, _ := netip.ParseAddr(strings.TrimSpace(d.PrimaryIP))
	preferred = preferred.Unmap()

	created := 0
	for _, binding := range bindings {
		prefix, ok := NormalizeCIDR(binding.Address)
		if !ok || binding.InterfaceName == "" {
			continue
		}
		interfaceID, found, err := set.lookup(ctx, binding.InterfaceName)
		if err != nil {
			return primaries, created, fmt.Errorf("interface %s: %w", binding.InterfaceName, err)
		}
		if !found {
			continue
		}

		address := prefix.String()
		status := binding.Status
		if status == "" {
			status = "active"
		}
		obj, isNew, err := r.upserter.GetOrCreate(ctx, netbox.ResourceIPAddresses,
			map[string]string{"address": address},
			func() (interface{}, error) {
				return map[string]interface{}{
					"address":              address,
					"status":               status,
					"assigned_object_type": "dcim.interface",
					"assigned_object_id":   interfaceID,
				}, nil
			})
		if err != nil {
			return primaries, created, fmt.Errorf("ip address %s: %w", address, err)
		}
		if isNew {
			created++
		}

		isPreferred := preferred.IsValid() && prefix.Addr() == preferred
		if prefix.Addr().Is4() {
			if !primaries.hasV4 || isPreferred {
				primaries.v4, primaries.hasV4 = obj.ID, true
			}
		} else if !primaries.hasV6 || isPreferred {
			primaries.v6, primaries.hasV6 = obj.ID, true
		}
	}
	return primaries, created, nil
}

// assignPrimaryIPs patches the device's primary addresses for each family
// it has a candidate for and no primary yet.
func (r *Reconciler) assignPrimaryIPs(ctx context.Context, device *netbox.Object, primaries primaryCandidates) (bool, error) {
	patch := make(map[string]interface{})
	if primaries.hasV4 && device.PrimaryIP4 == nil {
		patch["primary_ip4"] = primaries.v4
	}
	if primaries.hasV6 && device.PrimaryIP6 == nil {
		patch["primary_ip6"] = primaries.v6
	}
	if len(patch) == 0 {
		return false, nil
	}

	if _, err := r.upserter.api.Patch(ctx, netbox.ResourceDevices, device.ID, patch); err != nil {
		return false, fmt.Errorf("patch primary ip: %w", err)
	}
	return true, nil
}

// NormalizeCIDR parses an address with or without prefix length. A bare
// address gets /32 or /128. Host bits are kept.
func NormalizeCIDR(raw string) (netip.Prefix, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return netip.Prefix{}, false
	}

	if strings.Contains(raw, "/") {
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			return netip.Prefix{}, false
		}
		return netip.PrefixFrom(prefix.Addr().Unmap(), unmappedBits(prefix)), true
	}

	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Prefix{}, false
	}
	addr = addr.WithZone("").Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), true
}

func unmappedBits(p netip.Prefix) int {
	if p.Addr().Is4In6() && p.Bits() >= 96 {
		return p.Bits() - 96
	}
	return p.Bits()
}

// formatMAC returns a colon-separated MAC address, or "" when raw is not one.
// LibreNMS reports physical addresses as bare hex digits.
func formatMAC(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) == 12 && !strings.ContainsAny(raw, ":-.") {
		var b strings.Builder
		for i := 0; i < 12; i += 2 {
			if i > 0 {
				b.WriteByte(':')
			}
			b.WriteString(raw[i : i+2])
		}
		raw = b.String()
	}

	hw, err := net.ParseMAC(raw)
	if err != nil || len(hw) != 6 {
		return ""
	}
	return strings.ToUpper(hw.String())
}
