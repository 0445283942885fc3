package energy

import (
	"context"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/powermeter/capability"
	"github.com/shimmeringbee/powermeter/cluster"
	"github.com/shimmeringbee/zcl"
	"github.com/shimmeringbee/zigbee"
)

// mWhPerWh converts the device native energy unit.
const mWhPerWh = 1000.0

// cumulativeNotSupported determines on first use whether the device lacks cumulative reporting, and persists it.
func (m *Meter) cumulativeNotSupported(ctx context.Context) bool {
	if v, known := m.state.CumulativeNotSupported(); known {
		return v
	}

	notSupported := !m.cumulativeCapable
	m.state.SetCumulativeNotSupported(notSupported)

	if notSupported {
		m.logger.LogInfo(ctx, "Device does not support cumulative energy reporting, accumulating periodic reports.")
	}

	return notSupported
}

// decode extracts imported energy in Wh from an energy measurement report. Absent and out of range values are
// reported as not ok.
func (m *Meter) decode(ctx context.Context, ep zigbee.Endpoint, v zcl.AttributeDataTypeValue) (float64, bool) {
	em, ok := cluster.EnergyMeasurementFrom(v)
	if !ok {
		m.logger.LogDebug(ctx, "Energy report without measurement ignored.", logwrap.Datum("endpoint", ep))
		return 0, false
	}

	if em.Energy < 0 {
		m.logger.LogWarn(ctx, "Negative energy report dropped.", logwrap.Datum("endpoint", ep), logwrap.Datum("mWh", em.Energy))
		return 0, false
	}

	wh := float64(em.Energy) / mWhPerWh

	if wh > m.cfg.Energy.MaximumWattHours {
		m.logger.LogWarn(ctx, "Energy report above maximum dropped.", logwrap.Datum("endpoint", ep), logwrap.Datum("Wh", wh))
		return 0, false
	}

	return wh, true
}

// HandleCumulative replaces the total of the endpoint with the absolute imported energy. A lower value than the
// stored total is a counter reset and is still applied.
func (m *Meter) HandleCumulative(ctx context.Context, ep zigbee.Endpoint, v zcl.AttributeDataTypeValue) {
	wh, ok := m.decode(ctx, ep, v)
	if !ok {
		return
	}

	if m.cumulativeNotSupported(ctx) {
		m.logger.LogWarn(ctx, "Cumulative energy report from device without cumulative support ignored.", logwrap.Datum("endpoint", ep))
		return
	}

	if previous, found := m.state.Total(ep); found && wh < previous {
		m.logger.LogWarn(ctx, "Cumulative energy decreased, device counter assumed reset.", logwrap.Datum("endpoint", ep), logwrap.Datum("previousWh", previous), logwrap.Datum("Wh", wh))
	}

	m.state.SetTotal(ep, wh)
	m.emitEnergy(ep)
	m.observe(ctx)
}

// HandlePeriodic adds the energy imported during one period to the endpoint's total. Periodic reports are only
// informational if the device reports cumulative energy.
func (m *Meter) HandlePeriodic(ctx context.Context, ep zigbee.Endpoint, v zcl.AttributeDataTypeValue) {
	wh, ok := m.decode(ctx, ep, v)
	if !ok {
		return
	}

	if !m.cumulativeNotSupported(ctx) {
		m.logger.LogDebug(ctx, "Periodic energy report ignored, cumulative reporting is authoritative.", logwrap.Datum("endpoint", ep), logwrap.Datum("Wh", wh))
		return
	}

	total, _ := m.state.Total(ep)
	m.state.SetTotal(ep, total+wh)
	m.emitEnergy(ep)
	m.observe(ctx)
}

func (m *Meter) emitEnergy(ep zigbee.Endpoint) {
	m.emitter.Emit(capability.Energy{
		Node:     m.node,
		Endpoint: m.state.Route(ep),
		Value:    m.state.Sum(),
		Unit:     capability.UnitWattHours,
	})
}
