package attribute

import (
	"github.com/shimmeringbee/zcl"
	"time"
)

type ReportingConfig struct {
	MinimumInterval time.Duration
	MaximumInterval time.Duration
}

// Subscription asks the host to deliver reports for an attribute on every endpoint that implements it.
type Subscription struct {
	Key
	DataType  zcl.AttributeDataType
	Reporting ReportingConfig
}
