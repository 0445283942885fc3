package powermeter

import (
	"context"
	"github.com/shimmeringbee/persistence"
	"github.com/shimmeringbee/persistence/impl/memory"
	"github.com/shimmeringbee/powermeter/attribute"
	"github.com/shimmeringbee/powermeter/capability"
	"github.com/shimmeringbee/powermeter/cluster"
	"github.com/shimmeringbee/powermeter/config"
	"github.com/shimmeringbee/powermeter/energy"
	"github.com/shimmeringbee/powermeter/mocks"
	"github.com/shimmeringbee/powermeter/rules"
	"github.com/shimmeringbee/powermeter/topology"
	"github.com/shimmeringbee/zcl"
	"github.com/shimmeringbee/zigbee"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

const testNode = zigbee.IEEEAddress(0x00158d0001a2b3c4)

type fakeTimer struct {
	duration time.Duration
	f        func()
	stopped  bool
}

func (t *fakeTimer) Stop() bool {
	wasRunning := !t.stopped
	t.stopped = true
	return wasRunning
}

type testHarness struct {
	d      *Driver
	s      persistence.Section
	req    *mocks.MockRequester
	meta   *mocks.MockMetadataUpdater
	now    time.Time
	timers []*fakeTimer
}

func newTestHarness(t *testing.T, s persistence.Section) *testHarness {
	t.Helper()

	h := &testHarness{
		s:    s,
		req:  &mocks.MockRequester{},
		meta: &mocks.MockMetadataUpdater{},
		now:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	d, err := New(s, h.req, h.meta, config.Default())
	require.NoError(t, err)

	d.timeNow = func() time.Time { return h.now }
	d.afterFunc = func(duration time.Duration, f func()) energy.Timer {
		ft := &fakeTimer{duration: duration, f: f}
		h.timers = append(h.timers, ft)
		return ft
	}

	h.d = d

	t.Cleanup(func() {
		h.req.AssertExpectations(t)
		h.meta.AssertExpectations(t)
	})

	return h
}

func (h *testHarness) expectSubscribe() {
	h.req.On("Subscribe", mock.Anything, testNode, mock.MatchedBy(func(subs []attribute.Subscription) bool {
		return len(subs) == 4
	})).Return(nil)
}

func (h *testHarness) events() []any {
	var events []any

	for {
		select {
		case e := <-h.d.events:
			events = append(events, e)
		default:
			return events
		}
	}
}

func (h *testHarness) lastTimer() *fakeTimer {
	if len(h.timers) == 0 {
		return nil
	}

	return h.timers[len(h.timers)-1]
}

func nodeTopologyDevice() cluster.DeviceDescription {
	return cluster.DeviceDescription{
		Node:      testNode,
		VendorID:  4874,
		ProductID: 80,
		Endpoints: []cluster.EndpointDescription{
			{Endpoint: 0},
			{Endpoint: 1, DeviceTypes: []cluster.DeviceTypeID{cluster.OnOffPlugInUnit}, InClusterList: []zigbee.ClusterID{cluster.OnOffId}},
			{
				Endpoint:      2,
				DeviceTypes:   []cluster.DeviceTypeID{cluster.ElectricalSensor},
				InClusterList: []zigbee.ClusterID{cluster.ElectricalPowerMeasurementId, cluster.ElectricalEnergyMeasurementId, cluster.PowerTopologyId},
				FeatureMaps: map[zigbee.ClusterID]uint32{
					cluster.PowerTopologyId:               cluster.PowerTopologyNode,
					cluster.ElectricalEnergyMeasurementId: cluster.EnergyImported | cluster.EnergyCumulative,
				},
			},
		},
	}
}

func setTopologyDevice() cluster.DeviceDescription {
	sensor := func(ep zigbee.Endpoint, clusters ...zigbee.ClusterID) cluster.EndpointDescription {
		return cluster.EndpointDescription{
			Endpoint:      ep,
			DeviceTypes:   []cluster.DeviceTypeID{cluster.ElectricalSensor},
			InClusterList: append(clusters, cluster.PowerTopologyId),
			FeatureMaps: map[zigbee.ClusterID]uint32{
				cluster.PowerTopologyId:               cluster.PowerTopologySet,
				cluster.ElectricalEnergyMeasurementId: cluster.EnergyImported | cluster.EnergyCumulative,
			},
		}
	}

	outlet := func(ep zigbee.Endpoint) cluster.EndpointDescription {
		return cluster.EndpointDescription{Endpoint: ep, DeviceTypes: []cluster.DeviceTypeID{cluster.OnOffPlugInUnit}, InClusterList: []zigbee.ClusterID{cluster.OnOffId}}
	}

	return cluster.DeviceDescription{
		Node: testNode,
		Endpoints: []cluster.EndpointDescription{
			{Endpoint: 0},
			sensor(1, cluster.ElectricalPowerMeasurementId, cluster.ElectricalEnergyMeasurementId),
			outlet(2),
			sensor(3, cluster.ElectricalEnergyMeasurementId),
			outlet(4),
		},
	}
}

func availableEndpoints(ep zigbee.Endpoint, available ...uint16) attribute.Report {
	return attribute.Report{
		Endpoint:  ep,
		Cluster:   cluster.PowerTopologyId,
		Attribute: cluster.AvailableEndpoints,
		Value:     zcl.AttributeDataTypeValue{DataType: zcl.TypeArray, Value: available},
	}
}

func cumulativeEnergy(ep zigbee.Endpoint, mWh int64) attribute.Report {
	return attribute.Report{
		Endpoint:  ep,
		Cluster:   cluster.ElectricalEnergyMeasurementId,
		Attribute: cluster.CumulativeEnergyImported,
		Value:     zcl.AttributeDataTypeValue{DataType: zcl.TypeStructure, Value: cluster.EnergyMeasurement{Energy: mWh}},
	}
}

func TestNew(t *testing.T) {
	t.Run("returns an error if override rules do not compile", func(t *testing.T) {
		cfg := config.Default()
		cfg.Overrides = []rules.RuleSet{{Name: "broken", Rules: []rules.Rule{{Filter: "INVALID UNPARSABLE FILTER"}}}}

		_, err := New(memory.New(), &mocks.MockRequester{}, &mocks.MockMetadataUpdater{}, cfg)
		assert.Error(t, err)
	})

	t.Run("returns an error for an invalid configuration", func(t *testing.T) {
		cfg := config.Default()
		cfg.MinimumReportInterval = 0

		_, err := New(memory.New(), &mocks.MockRequester{}, &mocks.MockMetadataUpdater{}, cfg)
		assert.Error(t, err)
	})
}

func TestDriver_AddDevice(t *testing.T) {
	t.Run("a set topology device is profiled only after every available endpoints response", func(t *testing.T) {
		h := newTestHarness(t, memory.New())
		ctx := context.Background()

		h.expectSubscribe()
		h.req.On("Read", mock.Anything, testNode, []attribute.Target{
			{Endpoint: 1, Key: topology.AvailableEndpointsKey},
			{Endpoint: 3, Key: topology.AvailableEndpointsKey},
		}).Return(nil)

		require.NoError(t, h.d.AddDevice(ctx, setTopologyDevice()))
		require.NoError(t, h.d.HandleReport(ctx, testNode, availableEndpoints(3, 4)))

		h.meta.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, h.events())

		h.meta.On("UpdateProfile", mock.Anything, testNode, "plug-power-energy-powerConsumption").Return(nil)
		h.meta.On("CreateChild", mock.Anything, testNode, "4", zigbee.Endpoint(4), "plug-energy-powerConsumption").Return(nil)

		require.NoError(t, h.d.HandleReport(ctx, testNode, availableEndpoints(1, 2)))

		assert.Equal(t, []any{
			capability.ProfileChanged{Node: testNode, Profile: "plug-power-energy-powerConsumption"},
			capability.ChildCreated{Node: testNode, Key: "4", Endpoint: 4, Profile: "plug-energy-powerConsumption"},
		}, h.events())

		require.NoError(t, h.d.HandleReport(ctx, testNode, cumulativeEnergy(3, 4000)))
		assert.Equal(t, []any{
			capability.Energy{Node: testNode, Endpoint: 4, Value: 4, Unit: capability.UnitWattHours},
		}, h.events())
	})

	t.Run("a stalled discovery keeps the default profile", func(t *testing.T) {
		h := newTestHarness(t, memory.New())
		ctx := context.Background()

		h.expectSubscribe()
		h.req.On("Read", mock.Anything, testNode, mock.Anything).Return(nil)

		require.NoError(t, h.d.AddDevice(ctx, setTopologyDevice()))
		require.NoError(t, h.d.HandleReport(ctx, testNode, availableEndpoints(1)))

		h.meta.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, h.events())
	})

	t.Run("adding a managed device again does nothing", func(t *testing.T) {
		h := newTestHarness(t, memory.New())
		ctx := context.Background()

		h.expectSubscribe()
		h.meta.On("UpdateProfile", mock.Anything, testNode, "plug-power-energy-powerConsumption").Return(nil)

		require.NoError(t, h.d.AddDevice(ctx, nodeTopologyDevice()))
		require.NoError(t, h.d.AddDevice(ctx, nodeTopologyDevice()))

		h.req.AssertNumberOfCalls(t, "Subscribe", 1)
		h.meta.AssertNumberOfCalls(t, "UpdateProfile", 1)
	})

	t.Run("reapplying an unchanged topology makes no requests", func(t *testing.T) {
		h := newTestHarness(t, memory.New())
		ctx := context.Background()

		h.expectSubscribe()
		h.meta.On("UpdateProfile", mock.Anything, testNode, "plug-power-energy-powerConsumption").Return(nil)

		require.NoError(t, h.d.AddDevice(ctx, nodeTopologyDevice()))

		require.NoError(t, h.d.run(ctx, func(ctx context.Context) error {
			h.d.startDiscovery(ctx, h.d.devices[testNode])
			return nil
		}))

		h.meta.AssertNumberOfCalls(t, "UpdateProfile", 1)
	})
}

func TestDriver_EnergyFlow(t *testing.T) {
	t.Run("warm up resolves the interval and schedules power consumption reports", func(t *testing.T) {
		h := newTestHarness(t, memory.New())
		ctx := context.Background()

		h.expectSubscribe()
		h.meta.On("UpdateProfile", mock.Anything, testNode, "plug-power-energy-powerConsumption").Return(nil)

		require.NoError(t, h.d.AddDevice(ctx, nodeTopologyDevice()))
		h.events()

		require.NoError(t, h.d.HandleReport(ctx, testNode, cumulativeEnergy(2, 19000)))
		h.now = h.now.Add(10 * time.Second)
		firstReportTime := h.now
		require.NoError(t, h.d.HandleReport(ctx, testNode, cumulativeEnergy(2, 19000)))
		h.now = h.now.Add(2000 * time.Second)
		require.NoError(t, h.d.HandleReport(ctx, testNode, cumulativeEnergy(2, 29000)))

		assert.Equal(t, []any{
			capability.Energy{Node: testNode, Endpoint: 1, Value: 19, Unit: capability.UnitWattHours},
			capability.Energy{Node: testNode, Endpoint: 1, Value: 19, Unit: capability.UnitWattHours},
			capability.Energy{Node: testNode, Endpoint: 1, Value: 29, Unit: capability.UnitWattHours},
			capability.PowerConsumption{Node: testNode, Start: firstReportTime, End: h.now.Add(-time.Second), DeltaEnergy: 0, Energy: 29},
		}, h.events())

		timer := h.lastTimer()
		require.NotNil(t, timer)
		assert.Equal(t, 2000*time.Second, timer.duration)

		h.now = h.now.Add(2000 * time.Second)
		timer.f()

		events := h.events()
		require.Len(t, events, 1)
		report, ok := events[0].(capability.PowerConsumption)
		require.True(t, ok)
		assert.Equal(t, 0.0, report.DeltaEnergy)
		assert.Equal(t, 29.0, report.Energy)
	})

	t.Run("active power is routed to the tagged endpoint", func(t *testing.T) {
		h := newTestHarness(t, memory.New())
		ctx := context.Background()

		h.expectSubscribe()
		h.meta.On("UpdateProfile", mock.Anything, testNode, "plug-power-energy-powerConsumption").Return(nil)

		require.NoError(t, h.d.AddDevice(ctx, nodeTopologyDevice()))
		h.events()

		require.NoError(t, h.d.HandleReport(ctx, testNode, attribute.Report{
			Endpoint:  2,
			Cluster:   cluster.ElectricalPowerMeasurementId,
			Attribute: cluster.ActivePower,
			Value:     zcl.AttributeDataTypeValue{DataType: zcl.TypeSignedInt32, Value: int32(60000)},
		}))

		assert.Equal(t, []any{capability.Power{Node: testNode, Endpoint: 1, Value: 60, Unit: capability.UnitWatts}}, h.events())
	})
}

func TestDriver_HandleReport(t *testing.T) {
	t.Run("reports from unknown devices are rejected", func(t *testing.T) {
		h := newTestHarness(t, memory.New())

		err := h.d.HandleReport(context.Background(), testNode, cumulativeEnergy(1, 1))
		assert.ErrorIs(t, err, ErrUnknownDevice)
	})

	t.Run("reports for unhandled attributes are rejected", func(t *testing.T) {
		h := newTestHarness(t, memory.New())
		ctx := context.Background()

		h.expectSubscribe()
		h.meta.On("UpdateProfile", mock.Anything, testNode, mock.Anything).Return(nil)
		require.NoError(t, h.d.AddDevice(ctx, nodeTopologyDevice()))

		err := h.d.HandleReport(ctx, testNode, attribute.Report{Endpoint: 1, Cluster: cluster.OnOffId, Attribute: 0x0000})
		assert.ErrorIs(t, err, ErrNoHandler)
	})
}

func TestDriver_RemoveDevice(t *testing.T) {
	t.Run("removal cancels the schedule and deletes the device state", func(t *testing.T) {
		h := newTestHarness(t, memory.New())
		ctx := context.Background()

		h.expectSubscribe()
		h.meta.On("UpdateProfile", mock.Anything, testNode, "plug-power-energy-powerConsumption").Return(nil)

		require.NoError(t, h.d.AddDevice(ctx, nodeTopologyDevice()))
		for _, gap := range []time.Duration{0, 10 * time.Second, 1000 * time.Second} {
			h.now = h.now.Add(gap)
			require.NoError(t, h.d.HandleReport(ctx, testNode, cumulativeEnergy(2, 19000)))
		}

		timer := h.lastTimer()
		require.NotNil(t, timer)
		assert.Equal(t, []zigbee.IEEEAddress{testNode}, h.d.Nodes())

		require.NoError(t, h.d.RemoveDevice(ctx, testNode))

		assert.True(t, timer.stopped)
		assert.Empty(t, h.d.Nodes())
		assert.ErrorIs(t, h.d.HandleReport(ctx, testNode, cumulativeEnergy(2, 19000)), ErrUnknownDevice)
		assert.ErrorIs(t, h.d.RemoveDevice(ctx, testNode), ErrUnknownDevice)
	})

	t.Run("a removed device added again restarts warm up", func(t *testing.T) {
		h := newTestHarness(t, memory.New())
		ctx := context.Background()

		h.expectSubscribe()
		h.meta.On("UpdateProfile", mock.Anything, testNode, "plug-power-energy-powerConsumption").Return(nil)

		require.NoError(t, h.d.AddDevice(ctx, nodeTopologyDevice()))
		for _, gap := range []time.Duration{0, 10 * time.Second, 1000 * time.Second} {
			h.now = h.now.Add(gap)
			require.NoError(t, h.d.HandleReport(ctx, testNode, cumulativeEnergy(2, 19000)))
		}

		require.NoError(t, h.d.RemoveDevice(ctx, testNode))
		require.NoError(t, h.d.AddDevice(ctx, nodeTopologyDevice()))

		timers := len(h.timers)
		require.NoError(t, h.d.HandleReport(ctx, testNode, cumulativeEnergy(2, 19000)))

		_, found := h.d.devices[testNode].meter.Interval()
		assert.False(t, found)
		assert.Len(t, h.timers, timers)
		h.meta.AssertNumberOfCalls(t, "UpdateProfile", 2)
	})
}

func TestDriver_InitDevice(t *testing.T) {
	t.Run("restores state after a restart without profiling again", func(t *testing.T) {
		s := memory.New()
		ctx := context.Background()

		first := newTestHarness(t, s)
		first.expectSubscribe()
		first.meta.On("UpdateProfile", mock.Anything, testNode, "plug-power-energy-powerConsumption").Return(nil)

		require.NoError(t, first.d.AddDevice(ctx, nodeTopologyDevice()))
		for _, gap := range []time.Duration{0, 10 * time.Second, 1000 * time.Second} {
			first.now = first.now.Add(gap)
			require.NoError(t, first.d.HandleReport(ctx, testNode, cumulativeEnergy(2, 19000)))
		}

		require.NoError(t, first.d.Stop(ctx))
		assert.True(t, first.lastTimer().stopped)

		second := newTestHarness(t, s)
		second.expectSubscribe()

		assert.Equal(t, []zigbee.IEEEAddress{testNode}, second.d.Nodes())
		require.NoError(t, second.d.InitDevice(ctx, nodeTopologyDevice()))

		timer := second.lastTimer()
		require.NotNil(t, timer)
		assert.Equal(t, 1000*time.Second, timer.duration)
		second.meta.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)

		require.NoError(t, second.d.HandleReport(ctx, testNode, cumulativeEnergy(2, 20000)))
		assert.Equal(t, []any{
			capability.Energy{Node: testNode, Endpoint: 1, Value: 20, Unit: capability.UnitWattHours},
		}, second.events())
	})
}

func TestDriver_ReadEvent(t *testing.T) {
	t.Run("returns the context error when no event arrives", func(t *testing.T) {
		h := newTestHarness(t, memory.New())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := h.d.ReadEvent(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("returns queued events", func(t *testing.T) {
		h := newTestHarness(t, memory.New())
		h.d.sendEvent(capability.ProfileChanged{Node: testNode, Profile: "plug-binary"})

		e, err := h.d.ReadEvent(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, capability.ProfileChanged{Node: testNode, Profile: "plug-binary"}, e)
	})
}
