package topology

import "github.com/shimmeringbee/zigbee"

const (
	PowerTag  = "-power"
	EnergyTag = "-energy-powerConsumption"
)

type Kind int

const (
	None Kind = iota
	Node
	Set
)

func (k Kind) String() string {
	switch k {
	case Node:
		return "node"
	case Set:
		return "set"
	default:
		return "none"
	}
}

// EndpointInfo is the electrical description of a single electrical sensor endpoint. Available is nil until the
// endpoints the sensor measures are known.
type EndpointInfo struct {
	Endpoint       zigbee.Endpoint
	SupportsPower  bool
	SupportsEnergy bool
	Kind           Kind
	Available      []zigbee.Endpoint
}

func (i EndpointInfo) Pending() bool {
	return len(i.Available) == 0
}

// Tag is the profile suffix describing what the sensor measures.
func (i EndpointInfo) Tag() string {
	tag := ""

	if i.SupportsPower {
		tag += PowerTag
	}

	if i.SupportsEnergy {
		tag += EnergyTag
	}

	return tag
}

// Map is the outcome of discovery, the electrical tag each endpoint should present. Routes maps each electrical
// sensor endpoint to the endpoint that carries its tag, so measurements can be attributed to it.
type Map struct {
	Kind   Kind
	Tags   map[zigbee.Endpoint]string
	Routes map[zigbee.Endpoint]zigbee.Endpoint
}

// Tag returns the tag attached to an endpoint, or "" if it has none.
func (m Map) Tag(ep zigbee.Endpoint) string {
	return m.Tags[ep]
}
