package capability

import (
	"github.com/shimmeringbee/da"
	"strings"
)

const (
	SwitchFlag                 = da.Capability(0x1001)
	PowerMeterFlag             = da.Capability(0x1002)
	EnergyMeterFlag            = da.Capability(0x1003)
	PowerConsumptionReportFlag = da.Capability(0x1004)
)

var StandardNames = map[da.Capability]string{
	SwitchFlag:                 "switch",
	PowerMeterFlag:             "powerMeter",
	EnergyMeterFlag:            "energyMeter",
	PowerConsumptionReportFlag: "powerConsumptionReport",
}

// FromProfile derives the capability set a device presents from the name of its profile.
func FromProfile(profile string) []da.Capability {
	if profile == "" {
		return nil
	}

	var capabilities []da.Capability

	for _, part := range strings.Split(profile, "-") {
		switch part {
		case "light", "plug", "switch":
			capabilities = append(capabilities, SwitchFlag)
		case "power":
			capabilities = append(capabilities, PowerMeterFlag)
		case "energy":
			capabilities = append(capabilities, EnergyMeterFlag)
		case "powerConsumption":
			capabilities = append(capabilities, PowerConsumptionReportFlag)
		}
	}

	return capabilities
}

func IsCapabilityInSlice(haystack []da.Capability, needle da.Capability) bool {
	for _, straw := range haystack {
		if straw == needle {
			return true
		}
	}

	return false
}
