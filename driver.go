package powermeter

import (
	"context"
	"errors"
	"fmt"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/discard"
	"github.com/shimmeringbee/persistence"
	"github.com/shimmeringbee/powermeter/attribute"
	"github.com/shimmeringbee/powermeter/capability"
	"github.com/shimmeringbee/powermeter/config"
	"github.com/shimmeringbee/powermeter/energy"
	"github.com/shimmeringbee/powermeter/profile"
	"github.com/shimmeringbee/zigbee"
	"golang.org/x/sync/semaphore"
	"time"
)

const DefaultNetworkTimeout = 3000 * time.Millisecond
const DefaultNetworkRetries = 5

var (
	ErrUnknownDevice = errors.New("unknown device")
	ErrNoHandler     = errors.New("no handler for attribute")
)

// Driver translates electrical measurement reports of the devices it manages into capability events. Every report,
// lifecycle call and scheduled report runs on a single dispatch queue, so device state is never accessed
// concurrently.
type Driver struct {
	logger  logwrap.Logger
	section persistence.Section
	cfg     config.Config

	requester Requester
	metadata  MetadataUpdater
	assigner  *profile.Assigner
	handlers  *attribute.Registry[handler]

	queue   *semaphore.Weighted
	devices map[zigbee.IEEEAddress]*device
	events  chan any

	ctx       context.Context
	ctxCancel context.CancelFunc

	timeNow   func() time.Time
	afterFunc func(time.Duration, func()) energy.Timer
}

// New creates a driver storing device state within s. The configuration's override rules are compiled here, an
// invalid rule is returned as an error.
func New(s persistence.Section, r Requester, m MetadataUpdater, cfg config.Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	overrides, err := cfg.RulesEngine()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Driver{
		logger:    logwrap.New(discard.Discard()),
		section:   s,
		cfg:       cfg,
		requester: r,
		metadata:  m,
		assigner:  profile.NewAssigner(overrides),
		queue:     semaphore.NewWeighted(1),
		devices:   map[zigbee.IEEEAddress]*device{},
		events:    make(chan any, EventQueueSize),
		ctx:       ctx,
		ctxCancel: cancel,
		timeNow:   time.Now,
		afterFunc: func(duration time.Duration, f func()) energy.Timer {
			return time.AfterFunc(duration, f)
		},
	}

	d.handlers = d.registerHandlers()

	return d, nil
}

// Nodes returns every node with persisted state, the host should call InitDevice for each after a restart.
func (d *Driver) Nodes() []zigbee.IEEEAddress {
	return d.nodeListFromPersistence()
}

// Stop cancels every power consumption report schedule, keeping persisted state, and stops the dispatch queue.
func (d *Driver) Stop(ctx context.Context) error {
	err := d.run(ctx, func(ctx context.Context) error {
		for _, dev := range d.devices {
			if err := dev.meter.Detach(ctx, capability.Shutdown); err != nil {
				d.logger.LogError(ctx, "Failed to detach energy meter.", logwrap.Err(err), logwrap.Datum("IEEEAddress", dev.node.String()))
			}
		}

		d.devices = map[zigbee.IEEEAddress]*device{}
		return nil
	})

	d.ctxCancel()
	return err
}

// run executes f on the dispatch queue, waiting for any other handler to finish first.
func (d *Driver) run(ctx context.Context, f func(context.Context) error) error {
	if err := d.queue.Acquire(ctx, 1); err != nil {
		return err
	}
	defer d.queue.Release(1)

	return f(ctx)
}

// enqueue is used by timers to place work on the dispatch queue, it must not be called from the queue itself.
func (d *Driver) enqueue(f func(context.Context)) {
	if err := d.run(d.ctx, func(ctx context.Context) error {
		f(ctx)
		return nil
	}); err != nil {
		d.logger.LogWarn(d.ctx, "Scheduled work discarded, driver stopping.", logwrap.Err(err))
	}
}
