package powermeter

import (
	"context"
	"fmt"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/powermeter/attribute"
	"github.com/shimmeringbee/zigbee"
)

// HandleReport dispatches an attribute report or read response from a device to its handler. Reports for devices
// the driver does not manage, or attributes it does not handle, are returned as errors wrapping ErrUnknownDevice
// and ErrNoHandler.
func (d *Driver) HandleReport(ctx context.Context, node zigbee.IEEEAddress, r attribute.Report) error {
	return d.run(ctx, func(ctx context.Context) error {
		dev, found := d.devices[node]
		if !found {
			return fmt.Errorf("report from %s: %w", node, ErrUnknownDevice)
		}

		h, found := d.handlers.Lookup(r.Key())
		if !found {
			return fmt.Errorf("report %s from %s: %w", r.Key(), node, ErrNoHandler)
		}

		d.logger.LogTrace(ctx, "Attribute report received.", logwrap.Datum("IEEEAddress", node.String()), logwrap.Datum("endpoint", r.Endpoint), logwrap.Datum("attribute", r.Key().String()))

		h(ctx, dev, r)
		return nil
	})
}
