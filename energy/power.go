package energy

import (
	"context"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/powermeter/capability"
	"github.com/shimmeringbee/powermeter/cluster"
	"github.com/shimmeringbee/zcl"
	"github.com/shimmeringbee/zigbee"
)

const mWPerW = 1000.0

// HandleActivePower emits the active power of an endpoint in W. Values outside the configured bounds are dropped.
func (m *Meter) HandleActivePower(ctx context.Context, ep zigbee.Endpoint, v zcl.AttributeDataTypeValue) {
	mW, ok := cluster.IntFrom(v)
	if !ok {
		m.logger.LogDebug(ctx, "Active power report without value ignored.", logwrap.Datum("endpoint", ep))
		return
	}

	w := float64(mW) / mWPerW

	if w < m.cfg.Power.MinimumWatts || w > m.cfg.Power.MaximumWatts {
		m.logger.LogWarn(ctx, "Active power report out of range dropped.", logwrap.Datum("endpoint", ep), logwrap.Datum("W", w))
		return
	}

	m.emitter.Emit(capability.Power{
		Node:     m.node,
		Endpoint: m.state.Route(ep),
		Value:    w,
		Unit:     capability.UnitWatts,
	})
}
