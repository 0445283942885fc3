package powermeter

import (
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/golog"
	"log"
)

func (d *Driver) WithGoLogger(parentLogger *log.Logger) {
	d.WithLogWrapLogger(logwrap.New(golog.Wrap(parentLogger)))
}

func (d *Driver) WithLogWrapLogger(lw logwrap.Logger) {
	d.logger = lw
}
