package powermeter

import (
	"github.com/shimmeringbee/persistence"
	"github.com/shimmeringbee/zigbee"
	"strconv"
)

const (
	nodeSectionKey   = "node"
	energySectionKey = "energy"
	childSectionKey  = "children"

	profileKey         = "Profile"
	primaryEndpointKey = "PrimaryEndpoint"
	endpointKey        = "Endpoint"
)

func (d *Driver) sectionRemoveNode(i zigbee.IEEEAddress) bool {
	return d.section.Section(nodeSectionKey).SectionDelete(i.String())
}

func (d *Driver) sectionForNode(i zigbee.IEEEAddress) persistence.Section {
	return d.section.Section(nodeSectionKey, i.String())
}

func (d *Driver) nodeListFromPersistence() []zigbee.IEEEAddress {
	var nodeList []zigbee.IEEEAddress

	for _, k := range d.section.Section(nodeSectionKey).SectionKeys() {
		if addr, err := strconv.ParseUint(k, 16, 64); err == nil {
			nodeList = append(nodeList, zigbee.IEEEAddress(addr))
		}
	}

	return nodeList
}
