package cluster

import (
	"github.com/shimmeringbee/zigbee"
	"sort"
)

type DeviceTypeID uint32

const (
	OnOffLight                 DeviceTypeID = 0x0100
	DimmableLight              DeviceTypeID = 0x0101
	OnOffLightSwitch           DeviceTypeID = 0x0103
	DimmerSwitch               DeviceTypeID = 0x0104
	ColorDimmerSwitch          DeviceTypeID = 0x0105
	OnOffPlugInUnit            DeviceTypeID = 0x010a
	DimmablePlugInUnit         DeviceTypeID = 0x010b
	ColorTemperatureLight      DeviceTypeID = 0x010c
	ExtendedColorLight         DeviceTypeID = 0x010d
	MountedOnOffControl        DeviceTypeID = 0x010f
	MountedDimmableLoadControl DeviceTypeID = 0x0110
	ElectricalSensor           DeviceTypeID = 0x0510
)

// EndpointDescription is the static description of an endpoint, as cached by the host from the Descriptor cluster
// and the FeatureMap of each server cluster.
type EndpointDescription struct {
	Endpoint      zigbee.Endpoint
	DeviceTypes   []DeviceTypeID
	InClusterList []zigbee.ClusterID
	FeatureMaps   map[zigbee.ClusterID]uint32
}

func (e EndpointDescription) HasDeviceType(dt DeviceTypeID) bool {
	for _, straw := range e.DeviceTypes {
		if straw == dt {
			return true
		}
	}

	return false
}

func (e EndpointDescription) HasCluster(c zigbee.ClusterID) bool {
	for _, straw := range e.InClusterList {
		if straw == c {
			return true
		}
	}

	return false
}

// HasFeature returns true if the cluster is present on the endpoint and every bit of feature is set in its FeatureMap.
func (e EndpointDescription) HasFeature(c zigbee.ClusterID, feature uint32) bool {
	if !e.HasCluster(c) {
		return false
	}

	return e.FeatureMaps[c]&feature == feature
}

// DeviceDescription is everything the driver is told about a device when it is added.
type DeviceDescription struct {
	Node      zigbee.IEEEAddress
	VendorID  uint16
	ProductID uint16
	Endpoints []EndpointDescription
}

// Endpoint returns the description of a single endpoint.
func (d DeviceDescription) Endpoint(ep zigbee.Endpoint) (EndpointDescription, bool) {
	for _, e := range d.Endpoints {
		if e.Endpoint == ep {
			return e, true
		}
	}

	return EndpointDescription{}, false
}

// EndpointsWithDeviceType returns the endpoints declaring a device type, in ascending order.
func (d DeviceDescription) EndpointsWithDeviceType(dt DeviceTypeID) []zigbee.Endpoint {
	var eps []zigbee.Endpoint

	for _, e := range d.Endpoints {
		if e.HasDeviceType(dt) {
			eps = append(eps, e.Endpoint)
		}
	}

	sortEndpoints(eps)
	return eps
}

// EndpointsWithFeature returns the endpoints which implement a cluster with the given feature, in ascending order.
func (d DeviceDescription) EndpointsWithFeature(c zigbee.ClusterID, feature uint32) []zigbee.Endpoint {
	var eps []zigbee.Endpoint

	for _, e := range d.Endpoints {
		if e.HasFeature(c, feature) {
			eps = append(eps, e.Endpoint)
		}
	}

	sortEndpoints(eps)
	return eps
}

// PrimaryEndpoint is the lowest endpoint that implements OnOff, falling back to the lowest non-root endpoint.
func (d DeviceDescription) PrimaryEndpoint() zigbee.Endpoint {
	if eps := d.EndpointsWithCluster(OnOffId); len(eps) > 0 {
		return eps[0]
	}

	var eps []zigbee.Endpoint
	for _, e := range d.Endpoints {
		if e.Endpoint != 0 {
			eps = append(eps, e.Endpoint)
		}
	}

	if len(eps) == 0 {
		return 0
	}

	sortEndpoints(eps)
	return eps[0]
}

// EndpointsWithCluster returns endpoints implementing a server cluster, in ascending order.
func (d DeviceDescription) EndpointsWithCluster(c zigbee.ClusterID) []zigbee.Endpoint {
	var eps []zigbee.Endpoint

	for _, e := range d.Endpoints {
		if e.HasCluster(c) {
			eps = append(eps, e.Endpoint)
		}
	}

	sortEndpoints(eps)
	return eps
}

func sortEndpoints(eps []zigbee.Endpoint) {
	sort.Slice(eps, func(i, j int) bool {
		return eps[i] < eps[j]
	})
}
