package energy

import (
	"context"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/powermeter/capability"
	"math"
	"time"
)

// observe advances warm-up on each qualifying report. The first report marks the subscription as seen, the second
// records the first report time, and the third fixes the poll interval from the gap since the second, no shorter
// than the configured minimum. Once the interval is known further reports do nothing here.
func (m *Meter) observe(ctx context.Context) {
	if _, resolved := m.state.PollInterval(); resolved {
		return
	}

	now := m.timeNow()

	if !m.state.SubscriptionSeen() {
		m.state.SetSubscriptionSeen()
		return
	}

	first, found := m.state.FirstReportTime()
	if !found {
		m.state.SetFirstReportTime(now)
		return
	}

	interval := now.Sub(first)
	if interval < m.cfg.MinimumReportInterval {
		interval = m.cfg.MinimumReportInterval
	}

	m.state.SetPollInterval(interval)
	m.logger.LogInfo(ctx, "Power consumption report interval resolved.", logwrap.Datum("observed", now.Sub(first).String()), logwrap.Datum("interval", interval.String()))

	if m.supports(capability.PowerConsumptionReportFlag) {
		m.report(ctx)
		m.start(ctx, interval)
	}
}

// Refresh reconciles the schedule with the resolved interval and the device's current capabilities. The schedule
// runs only if the interval is resolved and the device presents power consumption reports.
func (m *Meter) Refresh(ctx context.Context) {
	interval, resolved := m.state.PollInterval()
	wanted := resolved && m.supports(capability.PowerConsumptionReportFlag)

	switch {
	case wanted && m.timer == nil:
		m.start(ctx, interval)
	case !wanted && m.timer != nil:
		m.stop()
	}
}

// Interval returns the resolved poll interval.
func (m *Meter) Interval() (time.Duration, bool) {
	return m.state.PollInterval()
}

// Scheduled returns true if the recurring report is running.
func (m *Meter) Scheduled() bool {
	return m.timer != nil
}

func (m *Meter) start(ctx context.Context, interval time.Duration) {
	m.stop()

	m.logger.LogDebug(ctx, "Starting power consumption reports.", logwrap.Datum("interval", interval.String()))
	m.arm(interval)
}

func (m *Meter) arm(interval time.Duration) {
	generation := m.generation

	m.timer = m.afterFunc(interval, func() {
		m.queue(func(ctx context.Context) {
			m.tick(ctx, generation, interval)
		})
	})
}

// tick is run on the dispatch queue. A tick queued before the schedule was stopped or restarted is stale, its
// generation no longer matches, and is ignored.
func (m *Meter) tick(ctx context.Context, generation uint64, interval time.Duration) {
	if generation != m.generation || m.timer == nil {
		return
	}

	m.report(ctx)
	m.arm(interval)
}

func (m *Meter) stop() {
	m.generation++

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// report emits the energy imported since the previous report. The first report covers the period from the first
// report time, the earliest the counter was seen, and has a delta of zero. Later windows follow on from the last.
func (m *Meter) report(ctx context.Context) {
	now := m.timeNow()
	energy := m.state.Sum()

	start, found := m.state.LastPollReportTime()
	if !found {
		start, _ = m.state.FirstReportTime()
	}

	delta := 0.0
	if last, found := m.state.LastReportedEnergy(); found {
		delta = math.Max(0, energy-last)
	}

	m.emitter.Emit(capability.PowerConsumption{
		Node:        m.node,
		Start:       start.UTC(),
		End:         now.Add(-time.Second).UTC(),
		DeltaEnergy: delta,
		Energy:      energy,
	})

	m.state.SetLastPollReportTime(now)
	m.state.SetLastReportedEnergy(energy)

	m.logger.LogDebug(ctx, "Power consumption report emitted.", logwrap.Datum("deltaWh", delta), logwrap.Datum("Wh", energy))
}

// Reset discards the resolved interval and stops the schedule, warm-up starts again on the next qualifying report.
func (m *Meter) Reset(ctx context.Context) {
	m.stop()
	m.state.ResetSchedule()

	m.logger.LogInfo(ctx, "Power consumption report schedule reset.")
}
