package energy

import (
	"github.com/shimmeringbee/persistence"
	"github.com/shimmeringbee/persistence/converter"
	"github.com/shimmeringbee/zigbee"
	"sort"
	"strconv"
	"time"
)

const (
	TotalImportedKey          = "TotalImported"
	WattHoursKey              = "WattHours"
	RoutesKey                 = "Routes"
	CumulativeNotSupportedKey = "CumulativeNotSupported"
	SubscriptionSeenKey       = "SubscriptionSeen"
	FirstReportTimeKey        = "FirstReportTime"
	PollIntervalKey           = "PollInterval"
	LastPollReportTimeKey     = "LastPollReportTime"
	LastReportedEnergyKey     = "LastReportedEnergy"
)

// State is the energy state of a single device, held in the device's persistence section so it survives a restart.
type State struct {
	s persistence.Section
}

func NewState(s persistence.Section) *State {
	return &State{s: s}
}

func endpointKey(ep zigbee.Endpoint) string {
	return strconv.Itoa(int(ep))
}

// Total returns the imported energy in Wh attributed to an electrical endpoint.
func (s *State) Total(ep zigbee.Endpoint) (float64, bool) {
	totals := s.s.Section(TotalImportedKey)

	if !totals.SectionExists(endpointKey(ep)) {
		return 0, false
	}

	return totals.Section(endpointKey(ep)).Float(WattHoursKey)
}

func (s *State) SetTotal(ep zigbee.Endpoint, wh float64) {
	s.s.Section(TotalImportedKey, endpointKey(ep)).Set(WattHoursKey, wh)
}

// Sum is the imported energy in Wh across every electrical endpoint of the device.
func (s *State) Sum() float64 {
	totals := s.s.Section(TotalImportedKey)

	keys := totals.SectionKeys()
	sort.Strings(keys)

	sum := 0.0
	for _, k := range keys {
		if v, ok := totals.Section(k).Float(WattHoursKey); ok {
			sum += v
		}
	}

	return sum
}

// Route returns the endpoint measurements of an electrical endpoint are attributed to, itself if no route is known.
func (s *State) Route(ep zigbee.Endpoint) zigbee.Endpoint {
	if v, ok := s.s.Section(RoutesKey).Int(endpointKey(ep)); ok {
		return zigbee.Endpoint(v)
	}

	return ep
}

func (s *State) SetRoutes(routes map[zigbee.Endpoint]zigbee.Endpoint) {
	rs := s.s.Section(RoutesKey)

	for from, to := range routes {
		rs.Set(endpointKey(from), int(to))
	}
}

// CumulativeNotSupported returns whether the device lacks cumulative reporting, and whether that has been determined.
func (s *State) CumulativeNotSupported() (bool, bool) {
	return s.s.Bool(CumulativeNotSupportedKey)
}

func (s *State) SetCumulativeNotSupported(v bool) {
	s.s.Set(CumulativeNotSupportedKey, v)
}

func (s *State) SubscriptionSeen() bool {
	v, _ := s.s.Bool(SubscriptionSeenKey)
	return v
}

func (s *State) SetSubscriptionSeen() {
	s.s.Set(SubscriptionSeenKey, true)
}

func (s *State) FirstReportTime() (time.Time, bool) {
	return converter.Retrieve(s.s, FirstReportTimeKey, converter.TimeDecoder)
}

func (s *State) SetFirstReportTime(t time.Time) {
	converter.Store(s.s, FirstReportTimeKey, t, converter.TimeEncoder)
}

func (s *State) PollInterval() (time.Duration, bool) {
	return converter.Retrieve(s.s, PollIntervalKey, converter.DurationDecoder)
}

func (s *State) SetPollInterval(d time.Duration) {
	converter.Store(s.s, PollIntervalKey, d, converter.DurationEncoder)
}

func (s *State) LastPollReportTime() (time.Time, bool) {
	return converter.Retrieve(s.s, LastPollReportTimeKey, converter.TimeDecoder)
}

func (s *State) SetLastPollReportTime(t time.Time) {
	converter.Store(s.s, LastPollReportTimeKey, t, converter.TimeEncoder)
}

func (s *State) LastReportedEnergy() (float64, bool) {
	return s.s.Float(LastReportedEnergyKey)
}

func (s *State) SetLastReportedEnergy(wh float64) {
	s.s.Set(LastReportedEnergyKey, wh)
}

// ResetSchedule clears the warm-up and polling state, the next qualifying report starts warm-up again.
func (s *State) ResetSchedule() {
	s.s.Delete(SubscriptionSeenKey)
	s.s.Delete(FirstReportTimeKey)
	s.s.Delete(PollIntervalKey)
	s.s.Delete(LastPollReportTimeKey)
	s.s.Delete(LastReportedEnergyKey)
}

// Clear removes all energy state of the device.
func (s *State) Clear() {
	s.ResetSchedule()
	s.s.Delete(CumulativeNotSupportedKey)
	s.s.SectionDelete(TotalImportedKey)
	s.s.SectionDelete(RoutesKey)
}
