package powermeter

import (
	"github.com/shimmeringbee/da"
	"github.com/shimmeringbee/persistence"
	"github.com/shimmeringbee/powermeter/capability"
	"github.com/shimmeringbee/powermeter/cluster"
	"github.com/shimmeringbee/powermeter/energy"
	"github.com/shimmeringbee/powermeter/topology"
	"github.com/shimmeringbee/zigbee"
	"sort"
)

// device is the driver's state for a single node. It is only accessed from the dispatch queue.
type device struct {
	node        zigbee.IEEEAddress
	description cluster.DeviceDescription
	section     persistence.Section

	meter *energy.Meter
	// discoverer is only present while topology discovery is in progress.
	discoverer *topology.Discoverer
}

func (dev *device) profile() string {
	p, _ := dev.section.String(profileKey)
	return p
}

func (dev *device) profiled() bool {
	return dev.profile() != ""
}

func (dev *device) children() []string {
	keys := dev.section.Section(childSectionKey).SectionKeys()
	sort.Strings(keys)
	return keys
}

func (dev *device) childProfile(key string) string {
	p, _ := dev.section.Section(childSectionKey, key).String(profileKey)
	return p
}

// capabilities is the union of the capabilities presented by the device and its children.
func (dev *device) capabilities() []da.Capability {
	var caps []da.Capability

	add := func(p string) {
		for _, c := range capability.FromProfile(p) {
			if !capability.IsCapabilityInSlice(caps, c) {
				caps = append(caps, c)
			}
		}
	}

	add(dev.profile())

	for _, key := range dev.children() {
		add(dev.childProfile(key))
	}

	return caps
}

func cumulativeCapable(d cluster.DeviceDescription) bool {
	return len(d.EndpointsWithFeature(cluster.ElectricalEnergyMeasurementId, cluster.EnergyCumulative)) > 0
}
