package energy

import (
	"context"
	"github.com/shimmeringbee/da"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/persistence"
	"github.com/shimmeringbee/powermeter/capability"
	"github.com/shimmeringbee/powermeter/config"
	"github.com/shimmeringbee/zigbee"
	"time"
)

var _ capability.Implementation = (*Meter)(nil)

// Timer is a scheduled call that can be cancelled, satisfied by *time.Timer.
type Timer interface {
	Stop() bool
}

// Queue runs work on the driver's dispatch queue, never concurrently with any other handler.
type Queue func(func(context.Context))

// Capabilities returns the capabilities currently presented by the device.
type Capabilities func() []da.Capability

// Meter aggregates energy and power reports for a single device and runs its power consumption report schedule.
// All methods must be called from the dispatch queue.
type Meter struct {
	node   zigbee.IEEEAddress
	state  *State
	logger logwrap.Logger

	cfg               config.Config
	emitter           capability.Emitter
	queue             Queue
	capabilities      Capabilities
	cumulativeCapable bool

	timeNow   func() time.Time
	afterFunc func(time.Duration, func()) Timer

	timer      Timer
	generation uint64
}

// NewMeter creates a meter. cumulativeCapable is true if any endpoint of the device declares cumulative energy
// reporting.
func NewMeter(l logwrap.Logger, cfg config.Config, e capability.Emitter, q Queue, c Capabilities, cumulativeCapable bool) *Meter {
	return &Meter{
		logger:            l,
		cfg:               cfg,
		emitter:           e,
		queue:             q,
		capabilities:      c,
		cumulativeCapable: cumulativeCapable,
		timeNow:           time.Now,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
	}
}

func (m *Meter) Capability() da.Capability {
	return capability.EnergyMeterFlag
}

func (m *Meter) Name() string {
	return capability.StandardNames[capability.EnergyMeterFlag]
}

func (m *Meter) Init(node zigbee.IEEEAddress, s persistence.Section) {
	m.node = node
	m.state = NewState(s)

	m.logger.AddOptionsToLogger(logwrap.Datum("IEEEAddress", node.String()))
}

// Load resumes the power consumption report schedule of a device whose interval was resolved before a restart.
func (m *Meter) Load(ctx context.Context) error {
	if interval, ok := m.state.PollInterval(); ok {
		m.logger.LogInfo(ctx, "Restored power consumption report interval.", logwrap.Datum("interval", interval.String()))
	}

	m.Refresh(ctx)
	return nil
}

// Detach cancels the schedule. When the device has been removed all energy state is cleared, so a later add starts
// warm-up again.
func (m *Meter) Detach(ctx context.Context, dt capability.DetachType) error {
	m.stop()

	if dt == capability.DeviceRemoved {
		m.state.Clear()
		m.logger.LogInfo(ctx, "Energy state cleared.")
	}

	return nil
}

func (m *Meter) State() *State {
	return m.state
}

// SetRoutes records the endpoint each electrical endpoint's measurements are presented on.
func (m *Meter) SetRoutes(routes map[zigbee.Endpoint]zigbee.Endpoint) {
	m.state.SetRoutes(routes)
}

func (m *Meter) supports(c da.Capability) bool {
	return capability.IsCapabilityInSlice(m.capabilities(), c)
}

// WithClock replaces the time source and timer factory, used to drive the schedule deterministically.
func (m *Meter) WithClock(now func() time.Time, afterFunc func(time.Duration, func()) Timer) {
	m.timeNow = now
	m.afterFunc = afterFunc
}
