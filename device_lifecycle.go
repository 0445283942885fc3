package powermeter

import (
	"context"
	"fmt"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/powermeter/capability"
	"github.com/shimmeringbee/powermeter/cluster"
	"github.com/shimmeringbee/powermeter/energy"
	"github.com/shimmeringbee/powermeter/topology"
	"github.com/shimmeringbee/retry"
	"github.com/shimmeringbee/zigbee"
)

// AddDevice starts managing a newly commissioned device. Any state left from a previous membership of the node is
// discarded, then the driver subscribes to the device's measurements and starts topology discovery.
func (d *Driver) AddDevice(pctx context.Context, desc cluster.DeviceDescription) error {
	return d.run(pctx, func(pctx context.Context) error {
		ctx, end := d.logger.Segment(pctx, "Adding device.", logwrap.Datum("IEEEAddress", desc.Node.String()))
		defer end()

		if _, found := d.devices[desc.Node]; found {
			d.logger.LogWarn(ctx, "Device already managed, add ignored.")
			return nil
		}

		d.sectionRemoveNode(desc.Node)

		dev, err := d.createDevice(ctx, desc)
		if err != nil {
			return err
		}

		d.subscribe(ctx, dev)
		d.startDiscovery(ctx, dev)

		return nil
	})
}

// InitDevice resumes managing a device after a restart. Persisted energy state is restored, and the power
// consumption report schedule resumes if its interval was already resolved. A device whose profile was already
// applied is not profiled again.
func (d *Driver) InitDevice(pctx context.Context, desc cluster.DeviceDescription) error {
	return d.run(pctx, func(pctx context.Context) error {
		ctx, end := d.logger.Segment(pctx, "Initialising device.", logwrap.Datum("IEEEAddress", desc.Node.String()))
		defer end()

		if _, found := d.devices[desc.Node]; found {
			d.logger.LogWarn(ctx, "Device already managed, init ignored.")
			return nil
		}

		dev, err := d.createDevice(ctx, desc)
		if err != nil {
			return err
		}

		d.subscribe(ctx, dev)

		if dev.profiled() {
			d.logger.LogInfo(ctx, "Device profile restored.", logwrap.Datum("profile", dev.profile()))
		} else {
			d.startDiscovery(ctx, dev)
		}

		return nil
	})
}

// RemoveDevice stops managing a device. Its schedule is cancelled and all of its state is deleted.
func (d *Driver) RemoveDevice(pctx context.Context, node zigbee.IEEEAddress) error {
	return d.run(pctx, func(pctx context.Context) error {
		ctx, end := d.logger.Segment(pctx, "Removing device.", logwrap.Datum("IEEEAddress", node.String()))
		defer end()

		dev, found := d.devices[node]
		if !found {
			return fmt.Errorf("removing device %s: %w", node, ErrUnknownDevice)
		}

		if err := dev.meter.Detach(ctx, capability.DeviceRemoved); err != nil {
			d.logger.LogError(ctx, "Failed to detach energy meter.", logwrap.Err(err))
		}

		delete(d.devices, node)
		d.sectionRemoveNode(node)

		return nil
	})
}

func (d *Driver) createDevice(ctx context.Context, desc cluster.DeviceDescription) (*device, error) {
	dev := &device{
		node:        desc.Node,
		description: desc,
		section:     d.sectionForNode(desc.Node),
	}

	dev.meter = energy.NewMeter(d.logger, d.cfg, capability.EmitterFunc(d.sendEvent), d.enqueue, dev.capabilities, cumulativeCapable(desc))
	dev.meter.WithClock(d.timeNow, d.afterFunc)
	dev.meter.Init(desc.Node, dev.section.Section(energySectionKey))

	if err := dev.meter.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading energy meter: %w", err)
	}

	d.devices[desc.Node] = dev

	return dev, nil
}

// subscribe asks the host for reports of every attribute the driver handles. A failure is logged, reports may still
// arrive from the device's default reporting.
func (d *Driver) subscribe(ctx context.Context, dev *device) {
	subs := d.handlers.Subscriptions(attributeReporting(d.cfg))

	if err := retry.Retry(ctx, DefaultNetworkTimeout, DefaultNetworkRetries, func(ctx context.Context) error {
		return d.requester.Subscribe(ctx, dev.node, subs)
	}); err != nil {
		d.logger.LogError(ctx, "Failed to subscribe to device attributes.", logwrap.Err(err))
	}
}

// startDiscovery begins topology discovery. All reads go out in one request and are not retried, a device whose
// reads are never answered keeps its default profile.
func (d *Driver) startDiscovery(ctx context.Context, dev *device) {
	dev.discoverer = topology.NewDiscoverer(dev.description)

	reads, complete := dev.discoverer.Start()
	if complete {
		d.applyTopology(ctx, dev)
		return
	}

	d.logger.LogInfo(ctx, "Reading electrical topology.", logwrap.Datum("endpoints", dev.discoverer.Outstanding()))

	if err := d.requester.Read(ctx, dev.node, reads); err != nil {
		d.logger.LogWarn(ctx, "Failed to request electrical topology, device keeps its default profile.", logwrap.Err(err))
	}
}
