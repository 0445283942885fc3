package attribute

import (
	"github.com/shimmeringbee/zcl"
	"sort"
)

// Registry is a fixed dispatch table from (cluster, attribute) to a handler, built once at start up.
type Registry[H any] struct {
	handlers  map[Key]H
	dataTypes map[Key]zcl.AttributeDataType
}

func NewRegistry[H any]() *Registry[H] {
	return &Registry[H]{
		handlers:  map[Key]H{},
		dataTypes: map[Key]zcl.AttributeDataType{},
	}
}

// Register adds a handler for an attribute, replacing any handler already present. The data type is used when
// subscribing to the attribute.
func (r *Registry[H]) Register(k Key, dt zcl.AttributeDataType, h H) {
	r.handlers[k] = h
	r.dataTypes[k] = dt
}

func (r *Registry[H]) Lookup(k Key) (H, bool) {
	h, ok := r.handlers[k]
	return h, ok
}

// Keys returns every registered key, ordered by cluster and then attribute.
func (r *Registry[H]) Keys() []Key {
	keys := make([]Key, 0, len(r.handlers))

	for k := range r.handlers {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Cluster != keys[j].Cluster {
			return keys[i].Cluster < keys[j].Cluster
		}

		return keys[i].Attribute < keys[j].Attribute
	})

	return keys
}

// Subscriptions builds a subscription for every registered key with the same reporting configuration.
func (r *Registry[H]) Subscriptions(rc ReportingConfig) []Subscription {
	var subs []Subscription

	for _, k := range r.Keys() {
		subs = append(subs, Subscription{Key: k, DataType: r.dataTypes[k], Reporting: rc})
	}

	return subs
}
