package profile

import (
	"fmt"
	"github.com/shimmeringbee/powermeter/cluster"
	"github.com/shimmeringbee/powermeter/rules"
	"github.com/shimmeringbee/powermeter/topology"
	"github.com/shimmeringbee/zigbee"
	"sort"
	"strconv"
)

// OverrideProfileKey is the rule setting that substitutes the computed profile.
const OverrideProfileKey = "Profile"

// Assignment is the profile chosen for a single endpoint.
type Assignment struct {
	Endpoint zigbee.Endpoint
	Profile  string
	Tag      string
	Matched  []string
}

// Child is an endpoint presented as its own device, keyed by the parent assigned child key.
type Child struct {
	Key string
	Assignment
}

type Plan struct {
	Primary  Assignment
	Children []Child
}

// ChildKey is the parent assigned key of the child device representing an endpoint.
func ChildKey(ep zigbee.Endpoint) string {
	return strconv.Itoa(int(ep))
}

// Assigner decides the profile of each endpoint of a device once topology has been resolved.
type Assigner struct {
	overrides *rules.Engine
}

// NewAssigner creates an assigner, overrides may be nil.
func NewAssigner(overrides *rules.Engine) *Assigner {
	return &Assigner{overrides: overrides}
}

// Plan computes the primary profile and the children to create. Non-primary endpoints become children if they
// declare a known device type or carry an electrical tag.
func (a *Assigner) Plan(d cluster.DeviceDescription, m topology.Map) (Plan, error) {
	primary := d.PrimaryEndpoint()

	var plan Plan

	for _, e := range d.Endpoints {
		if e.Endpoint == 0 {
			continue
		}

		base, known := Base(e)
		tag := m.Tag(e.Endpoint)
		isPrimary := e.Endpoint == primary

		if !isPrimary && !known && tag == "" {
			continue
		}

		if isPrimary && !known && tag == "" {
			base = Fallback
		}

		assignment, err := a.assign(d, e.Endpoint, isPrimary, Compose(base, tag), tag)
		if err != nil {
			return Plan{}, err
		}

		if isPrimary {
			plan.Primary = assignment
		} else {
			plan.Children = append(plan.Children, Child{Key: ChildKey(e.Endpoint), Assignment: assignment})
		}
	}

	if plan.Primary.Profile == "" {
		plan.Primary = Assignment{Endpoint: primary, Profile: Fallback}
	}

	sortChildren(plan.Children)

	return plan, nil
}

func (a *Assigner) assign(d cluster.DeviceDescription, ep zigbee.Endpoint, primary bool, profile string, tag string) (Assignment, error) {
	assignment := Assignment{Endpoint: ep, Profile: profile, Tag: tag}

	if a.overrides == nil {
		return assignment, nil
	}

	out, err := a.overrides.Execute(rules.Input{
		VendorID:  int(d.VendorID),
		ProductID: int(d.ProductID),
		Endpoint:  int(ep),
		Primary:   primary,
		Profile:   profile,
		Tag:       tag,
	})
	if err != nil {
		return Assignment{}, fmt.Errorf("evaluating overrides for endpoint %d: %w", ep, err)
	}

	if override, ok := out.Settings.String(OverrideProfileKey); ok {
		assignment.Profile = override
	}

	assignment.Matched = out.Matched

	return assignment, nil
}

func sortChildren(children []Child) {
	sort.Slice(children, func(i, j int) bool {
		return children[i].Endpoint < children[j].Endpoint
	})
}
