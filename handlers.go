package powermeter

import (
	"context"
	"github.com/shimmeringbee/powermeter/attribute"
	"github.com/shimmeringbee/powermeter/cluster"
	"github.com/shimmeringbee/powermeter/config"
	"github.com/shimmeringbee/powermeter/topology"
	"github.com/shimmeringbee/zcl"
)

type handler func(ctx context.Context, dev *device, r attribute.Report)

func (d *Driver) registerHandlers() *attribute.Registry[handler] {
	r := attribute.NewRegistry[handler]()

	r.Register(topology.AvailableEndpointsKey, zcl.TypeArray, d.handleAvailableEndpoints)

	r.Register(attribute.Key{Cluster: cluster.ElectricalPowerMeasurementId, Attribute: cluster.ActivePower}, zcl.TypeSignedInt32, func(ctx context.Context, dev *device, r attribute.Report) {
		dev.meter.HandleActivePower(ctx, r.Endpoint, r.Value)
	})

	r.Register(attribute.Key{Cluster: cluster.ElectricalEnergyMeasurementId, Attribute: cluster.CumulativeEnergyImported}, zcl.TypeStructure, func(ctx context.Context, dev *device, r attribute.Report) {
		dev.meter.HandleCumulative(ctx, r.Endpoint, r.Value)
	})

	r.Register(attribute.Key{Cluster: cluster.ElectricalEnergyMeasurementId, Attribute: cluster.PeriodicEnergyImported}, zcl.TypeStructure, func(ctx context.Context, dev *device, r attribute.Report) {
		dev.meter.HandlePeriodic(ctx, r.Endpoint, r.Value)
	})

	return r
}

func attributeReporting(cfg config.Config) attribute.ReportingConfig {
	return attribute.ReportingConfig{
		MinimumInterval: cfg.Subscription.MinimumInterval,
		MaximumInterval: cfg.Subscription.MaximumInterval,
	}
}
