package cluster

import (
	"github.com/shimmeringbee/zcl"
	"github.com/shimmeringbee/zigbee"
)

const (
	OnOffId                       = zigbee.ClusterID(0x0006)
	LevelControlId                = zigbee.ClusterID(0x0008)
	DescriptorId                  = zigbee.ClusterID(0x001d)
	ElectricalPowerMeasurementId  = zigbee.ClusterID(0x0090)
	ElectricalEnergyMeasurementId = zigbee.ClusterID(0x0091)
	PowerTopologyId               = zigbee.ClusterID(0x009c)
	ColorControlId                = zigbee.ClusterID(0x0300)
)

// Global attributes present on every cluster.
const (
	FeatureMap = zcl.AttributeID(0xfffc)
)

// Descriptor
const (
	DeviceTypeList = zcl.AttributeID(0x0000)
	PartsList      = zcl.AttributeID(0x0003)
)

// Power Topology
const (
	AvailableEndpoints = zcl.AttributeID(0x0000)
	ActiveEndpoints    = zcl.AttributeID(0x0001)
)

// Electrical Power Measurement
const (
	ActivePower = zcl.AttributeID(0x0008)
)

// Electrical Energy Measurement
const (
	CumulativeEnergyImported = zcl.AttributeID(0x0001)
	CumulativeEnergyExported = zcl.AttributeID(0x0002)
	PeriodicEnergyImported   = zcl.AttributeID(0x0003)
	PeriodicEnergyExported   = zcl.AttributeID(0x0004)
)

const (
	PowerTopologyNode             = uint32(0x01)
	PowerTopologyTree             = uint32(0x02)
	PowerTopologySet              = uint32(0x04)
	PowerTopologyDynamicPowerFlow = uint32(0x08)
)

const (
	EnergyImported   = uint32(0x01)
	EnergyExported   = uint32(0x02)
	EnergyCumulative = uint32(0x04)
	EnergyPeriodic   = uint32(0x08)
)
