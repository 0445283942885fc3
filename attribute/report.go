package attribute

import (
	"fmt"
	"github.com/shimmeringbee/zcl"
	"github.com/shimmeringbee/zigbee"
)

// Key identifies an attribute independently of the endpoint it lives on.
type Key struct {
	Cluster   zigbee.ClusterID
	Attribute zcl.AttributeID
}

func (k Key) String() string {
	return fmt.Sprintf("%04x/%04x", uint16(k.Cluster), uint16(k.Attribute))
}

// Report is a decoded attribute report or read response, as delivered by the host.
type Report struct {
	Endpoint  zigbee.Endpoint
	Cluster   zigbee.ClusterID
	Attribute zcl.AttributeID
	Value     zcl.AttributeDataTypeValue
}

func (r Report) Key() Key {
	return Key{Cluster: r.Cluster, Attribute: r.Attribute}
}

// Target is a single attribute on a single endpoint, used to batch reads into one request.
type Target struct {
	Endpoint zigbee.Endpoint
	Key
}
