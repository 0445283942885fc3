package cluster

import (
	"github.com/shimmeringbee/zcl"
	"github.com/shimmeringbee/zigbee"
	"time"
)

// EnergyMeasurement is the decoded EnergyMeasurementStruct carried by the cumulative and periodic energy attributes.
// Energy is in mWh. Start and End are zero if the device did not provide them.
type EnergyMeasurement struct {
	Energy int64
	Start  time.Time
	End    time.Time
}

// EnergyMeasurementFrom extracts an EnergyMeasurement from an attribute value. A nil struct, as sent for a null
// attribute, is reported as absent.
func EnergyMeasurementFrom(v zcl.AttributeDataTypeValue) (EnergyMeasurement, bool) {
	switch em := v.Value.(type) {
	case EnergyMeasurement:
		return em, true
	case *EnergyMeasurement:
		if em == nil {
			return EnergyMeasurement{}, false
		}
		return *em, true
	default:
		return EnergyMeasurement{}, false
	}
}

// EndpointListFrom extracts a list of endpoints, as used by PowerTopology AvailableEndpoints and Descriptor
// PartsList. An empty list is returned as absent.
func EndpointListFrom(v zcl.AttributeDataTypeValue) ([]zigbee.Endpoint, bool) {
	var eps []zigbee.Endpoint

	switch list := v.Value.(type) {
	case []zigbee.Endpoint:
		eps = append(eps, list...)
	case []uint8:
		for _, e := range list {
			eps = append(eps, zigbee.Endpoint(e))
		}
	case []uint16:
		for _, e := range list {
			if e > 0xff {
				return nil, false
			}
			eps = append(eps, zigbee.Endpoint(e))
		}
	case []uint64:
		for _, e := range list {
			if e > 0xff {
				return nil, false
			}
			eps = append(eps, zigbee.Endpoint(e))
		}
	default:
		return nil, false
	}

	if len(eps) == 0 {
		return nil, false
	}

	return eps, true
}

// IntFrom coerces any integer value into an int64.
func IntFrom(v zcl.AttributeDataTypeValue) (int64, bool) {
	switch n := v.Value.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case int:
		return int64(n), true
	case uint64:
		if n > 1<<63-1 {
			return 0, false
		}
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint8:
		return int64(n), true
	default:
		return 0, false
	}
}
