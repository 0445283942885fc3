package powermeter

import (
	"context"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/powermeter/attribute"
	"github.com/shimmeringbee/powermeter/capability"
	"github.com/shimmeringbee/powermeter/profile"
	"github.com/shimmeringbee/retry"
)

func (d *Driver) handleAvailableEndpoints(ctx context.Context, dev *device, r attribute.Report) {
	if dev.discoverer == nil {
		d.logger.LogDebug(ctx, "Available endpoints received outside of discovery, ignored.", logwrap.Datum("endpoint", r.Endpoint))
		return
	}

	if !dev.discoverer.Resolve(r.Endpoint, r.Value) {
		if outstanding := dev.discoverer.Outstanding(); len(outstanding) > 0 {
			d.logger.LogDebug(ctx, "Electrical topology still pending.", logwrap.Datum("endpoints", outstanding))
		}
		return
	}

	d.applyTopology(ctx, dev)
}

// applyTopology assigns profiles once discovery is complete. Profile changes and children are only requested if
// they differ from what has already been applied, so applying the same topology again does nothing.
func (d *Driver) applyTopology(ctx context.Context, dev *device) {
	m := dev.discoverer.Map()
	dev.discoverer = nil

	d.logger.LogInfo(ctx, "Electrical topology resolved.", logwrap.Datum("IEEEAddress", dev.node.String()), logwrap.Datum("kind", m.Kind.String()), logwrap.Datum("tags", m.Tags))

	dev.meter.SetRoutes(m.Routes)

	plan, err := d.assigner.Plan(dev.description, m)
	if err != nil {
		d.logger.LogError(ctx, "Failed to assign profile, device keeps its default profile.", logwrap.Err(err))
		return
	}

	d.applyPrimary(ctx, dev, plan.Primary)

	for _, c := range plan.Children {
		d.applyChild(ctx, dev, c)
	}

	dev.meter.Refresh(ctx)
}

func (d *Driver) applyPrimary(ctx context.Context, dev *device, a profile.Assignment) {
	dev.section.Set(primaryEndpointKey, int(a.Endpoint))

	if dev.profile() == a.Profile {
		return
	}

	if err := retry.Retry(ctx, DefaultNetworkTimeout, DefaultNetworkRetries, func(ctx context.Context) error {
		return d.metadata.UpdateProfile(ctx, dev.node, a.Profile)
	}); err != nil {
		d.logger.LogError(ctx, "Failed to update device profile.", logwrap.Err(err), logwrap.Datum("profile", a.Profile))
		return
	}

	dev.section.Set(profileKey, a.Profile)
	d.logger.LogInfo(ctx, "Device profile updated.", logwrap.Datum("profile", a.Profile), logwrap.Datum("overrides", a.Matched))

	d.sendEvent(capability.ProfileChanged{Node: dev.node, Profile: a.Profile})
}

func (d *Driver) applyChild(ctx context.Context, dev *device, c profile.Child) {
	children := dev.section.Section(childSectionKey)
	if children.SectionExists(c.Key) {
		return
	}

	if err := retry.Retry(ctx, DefaultNetworkTimeout, DefaultNetworkRetries, func(ctx context.Context) error {
		return d.metadata.CreateChild(ctx, dev.node, c.Key, c.Endpoint, c.Profile)
	}); err != nil {
		d.logger.LogError(ctx, "Failed to create child device.", logwrap.Err(err), logwrap.Datum("key", c.Key), logwrap.Datum("profile", c.Profile))
		return
	}

	cs := children.Section(c.Key)
	cs.Set(endpointKey, int(c.Endpoint))
	cs.Set(profileKey, c.Profile)

	d.logger.LogInfo(ctx, "Child device created.", logwrap.Datum("key", c.Key), logwrap.Datum("profile", c.Profile), logwrap.Datum("overrides", c.Matched))

	d.sendEvent(capability.ChildCreated{Node: dev.node, Key: c.Key, Endpoint: c.Endpoint, Profile: c.Profile})
}
