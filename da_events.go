package powermeter

import (
	"context"
	"github.com/shimmeringbee/logwrap"
)

const EventQueueSize = 100

func (d *Driver) sendEvent(e any) {
	select {
	case d.events <- e:
	default:
		d.logger.LogWarn(d.ctx, "Event dropped, event queue full.", logwrap.Datum("event", e))
	}
}

// ReadEvent returns the next normalised capability event, blocking until one is available or the context ends.
func (d *Driver) ReadEvent(ctx context.Context) (any, error) {
	select {
	case e := <-d.events:
		return e, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
