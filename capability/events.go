package capability

import (
	"encoding/json"
	"github.com/shimmeringbee/zigbee"
	"time"
)

const ISO8601 = "2006-01-02T15:04:05Z"

const (
	UnitWattHours = "Wh"
	UnitWatts     = "W"
)

// Energy is an energyMeter.energy event.
type Energy struct {
	Node     zigbee.IEEEAddress
	Endpoint zigbee.Endpoint
	Value    float64
	Unit     string
}

// Power is a powerMeter.power event.
type Power struct {
	Node     zigbee.IEEEAddress
	Endpoint zigbee.Endpoint
	Value    float64
	Unit     string
}

// PowerConsumption is a powerConsumptionReport.powerConsumption event, covering the energy imported between Start and
// End. DeltaEnergy and Energy are in Wh.
type PowerConsumption struct {
	Node        zigbee.IEEEAddress
	Start       time.Time
	End         time.Time
	DeltaEnergy float64
	Energy      float64
}

type powerConsumptionJSON struct {
	Start       string  `json:"start"`
	End         string  `json:"end"`
	DeltaEnergy float64 `json:"deltaEnergy"`
	Energy      float64 `json:"energy"`
}

func (p PowerConsumption) MarshalJSON() ([]byte, error) {
	return json.Marshal(powerConsumptionJSON{
		Start:       FormatTime(p.Start),
		End:         FormatTime(p.End),
		DeltaEnergy: p.DeltaEnergy,
		Energy:      p.Energy,
	})
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(ISO8601)
}

// ProfileChanged is published after the host accepted a new profile for a device.
type ProfileChanged struct {
	Node    zigbee.IEEEAddress
	Profile string
}

// ChildCreated is published after the host accepted the creation of a child device.
type ChildCreated struct {
	Node     zigbee.IEEEAddress
	Key      string
	Endpoint zigbee.Endpoint
	Profile  string
}
