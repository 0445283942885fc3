package profile

import (
	"github.com/shimmeringbee/powermeter/cluster"
	"strings"
)

const (
	BinarySuffix = "-binary"
	// Fallback is used for a primary endpoint that declares no known device type.
	Fallback = "switch-binary"
)

type family int

const (
	lightFamily family = iota
	plugFamily
	switchFamily
	loadControlFamily
)

type baseProfile struct {
	family  family
	profile string
}

var baseProfiles = map[cluster.DeviceTypeID]baseProfile{
	cluster.OnOffLight:                 {lightFamily, "light-binary"},
	cluster.DimmableLight:              {lightFamily, "light-level"},
	cluster.ColorTemperatureLight:      {lightFamily, "light-level-colorTemperature"},
	cluster.ExtendedColorLight:         {lightFamily, "light-color-level"},
	cluster.OnOffPlugInUnit:            {plugFamily, "plug-binary"},
	cluster.DimmablePlugInUnit:         {plugFamily, "plug-level"},
	cluster.OnOffLightSwitch:           {switchFamily, "switch-binary"},
	cluster.DimmerSwitch:               {switchFamily, "switch-level"},
	cluster.ColorDimmerSwitch:          {switchFamily, "switch-color-level"},
	cluster.MountedOnOffControl:        {loadControlFamily, "switch-binary"},
	cluster.MountedDimmableLoadControl: {loadControlFamily, "switch-level"},
}

// Base returns the profile for the highest priority device type declared on the endpoint. The family is taken from
// the first known device type in declaration order, within that family a higher device type id is a superset of a
// lower one so the highest declared id wins. The electrical sensor device type is never a base.
func Base(e cluster.EndpointDescription) (string, bool) {
	var best cluster.DeviceTypeID
	var chosen family
	found := false

	for _, dt := range e.DeviceTypes {
		if dt == cluster.ElectricalSensor {
			continue
		}

		bp, known := baseProfiles[dt]
		if !known {
			continue
		}

		if !found {
			best, chosen, found = dt, bp.family, true
		} else if bp.family == chosen && dt > best {
			best = dt
		}
	}

	if !found {
		return "", false
	}

	return baseProfiles[best].profile, true
}

// Compose appends an electrical tag to a base profile. A binary profile loses its suffix, as a tagged profile
// implies on/off control. An untagged base is returned unchanged.
func Compose(base string, tag string) string {
	if tag == "" {
		return base
	}

	if base == "" {
		return strings.TrimPrefix(tag, "-")
	}

	return strings.TrimSuffix(base, BinarySuffix) + tag
}
