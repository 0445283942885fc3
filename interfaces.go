package powermeter

import (
	"context"
	"github.com/shimmeringbee/powermeter/attribute"
	"github.com/shimmeringbee/zigbee"
)

// Requester sends protocol requests to a device through the host. Responses are not returned, they arrive later as
// reports passed to HandleReport.
type Requester interface {
	// Read requests every target in a single message.
	Read(ctx context.Context, node zigbee.IEEEAddress, targets []attribute.Target) error
	Subscribe(ctx context.Context, node zigbee.IEEEAddress, subs []attribute.Subscription) error
}

// MetadataUpdater owns the presentation of devices within the host.
type MetadataUpdater interface {
	UpdateProfile(ctx context.Context, node zigbee.IEEEAddress, profile string) error
	CreateChild(ctx context.Context, node zigbee.IEEEAddress, key string, ep zigbee.Endpoint, profile string) error
}
