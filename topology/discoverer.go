package topology

import (
	"github.com/shimmeringbee/powermeter/attribute"
	"github.com/shimmeringbee/powermeter/cluster"
	"github.com/shimmeringbee/zcl"
	"github.com/shimmeringbee/zigbee"
	"sort"
)

// AvailableEndpointsKey is the attribute read from sensors with a settable topology.
var AvailableEndpointsKey = attribute.Key{Cluster: cluster.PowerTopologyId, Attribute: cluster.AvailableEndpoints}

// Discoverer resolves the electrical topology of a single device. It is not safe for concurrent use, callers
// serialise access on their dispatch queue.
type Discoverer struct {
	primary     zigbee.Endpoint
	infos       map[zigbee.Endpoint]*EndpointInfo
	outstanding map[zigbee.Endpoint]struct{}
	started     bool
	complete    bool
	result      Map
}

// NewDiscoverer builds the electrical description of every electrical sensor endpoint on the device.
func NewDiscoverer(d cluster.DeviceDescription) *Discoverer {
	disc := &Discoverer{
		primary:     d.PrimaryEndpoint(),
		infos:       map[zigbee.Endpoint]*EndpointInfo{},
		outstanding: map[zigbee.Endpoint]struct{}{},
	}

	for _, ep := range d.EndpointsWithDeviceType(cluster.ElectricalSensor) {
		desc, _ := d.Endpoint(ep)

		info := &EndpointInfo{
			Endpoint:       ep,
			SupportsPower:  desc.HasCluster(cluster.ElectricalPowerMeasurementId),
			SupportsEnergy: desc.HasCluster(cluster.ElectricalEnergyMeasurementId),
		}

		switch {
		case desc.HasFeature(cluster.PowerTopologyId, cluster.PowerTopologySet):
			info.Kind = Set
		case desc.HasFeature(cluster.PowerTopologyId, cluster.PowerTopologyNode):
			info.Kind = Node
		}

		disc.infos[ep] = info
	}

	return disc
}

// Start resolves every endpoint that does not need a read, and returns the reads required for the rest. The reads
// should be sent as a single request. Start returns true if discovery completed without any reads.
func (d *Discoverer) Start() ([]attribute.Target, bool) {
	if d.started {
		return nil, d.complete
	}

	d.started = true

	var reads []attribute.Target

	for _, ep := range d.Endpoints() {
		info := d.infos[ep]

		switch {
		case info.Kind == Set:
			d.outstanding[ep] = struct{}{}
			reads = append(reads, attribute.Target{Endpoint: ep, Key: AvailableEndpointsKey})
		case info.Kind == Node && len(d.infos) == 1 && d.primary != 0:
			info.Available = []zigbee.Endpoint{d.primary}
		default:
			info.Available = []zigbee.Endpoint{ep}
		}
	}

	d.checkComplete()

	return reads, d.complete
}

// Resolve records the response to an available endpoints read. Malformed or empty responses, and responses for
// endpoints that are not outstanding, are ignored and leave the endpoint pending. Resolve returns true only on the
// response that completes discovery.
func (d *Discoverer) Resolve(ep zigbee.Endpoint, v zcl.AttributeDataTypeValue) bool {
	if _, pending := d.outstanding[ep]; !pending {
		return false
	}

	eps, ok := cluster.EndpointListFrom(v)
	if !ok {
		return false
	}

	d.infos[ep].Available = eps
	delete(d.outstanding, ep)

	return d.checkComplete()
}

func (d *Discoverer) checkComplete() bool {
	if d.complete || len(d.outstanding) > 0 {
		return false
	}

	d.complete = true
	d.result = d.build()

	return true
}

// build assigns each sensor's tag to the first endpoint of its available set. Where sensors collide the lowest
// sensor endpoint wins.
func (d *Discoverer) build() Map {
	m := Map{
		Kind:   None,
		Tags:   map[zigbee.Endpoint]string{},
		Routes: map[zigbee.Endpoint]zigbee.Endpoint{},
	}

	for _, ep := range d.Endpoints() {
		info := d.infos[ep]

		if info.Kind > m.Kind {
			m.Kind = info.Kind
		}

		target := info.Available[0]
		m.Routes[ep] = target

		if _, found := m.Tags[target]; !found {
			m.Tags[target] = info.Tag()
		}
	}

	return m
}

func (d *Discoverer) Complete() bool {
	return d.complete
}

// Map returns the resolved topology, it is only valid once Complete returns true.
func (d *Discoverer) Map() Map {
	return d.result
}

// Endpoints returns the electrical sensor endpoints in ascending order.
func (d *Discoverer) Endpoints() []zigbee.Endpoint {
	eps := make([]zigbee.Endpoint, 0, len(d.infos))

	for ep := range d.infos {
		eps = append(eps, ep)
	}

	sort.Slice(eps, func(i, j int) bool {
		return eps[i] < eps[j]
	})

	return eps
}

// Outstanding returns the endpoints still waiting on an available endpoints response.
func (d *Discoverer) Outstanding() []zigbee.Endpoint {
	var eps []zigbee.Endpoint

	for ep := range d.outstanding {
		eps = append(eps, ep)
	}

	sort.Slice(eps, func(i, j int) bool {
		return eps[i] < eps[j]
	})

	return eps
}

func (d *Discoverer) Info(ep zigbee.Endpoint) (EndpointInfo, bool) {
	info, found := d.infos[ep]
	if !found {
		return EndpointInfo{}, false
	}

	return *info, true
}
