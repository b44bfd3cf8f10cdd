// Package metrics holds the metrics state and the reducer that evolves it.
package metrics

import "github.com/and161185/metrics-state/model"

// FetchMetrics is the wire discriminator of FetchMetricsAction.
const FetchMetrics = "FETCH_METRICS"

// Action describes an intent to change the metrics state.
// The set of variants is closed to this package.
type Action interface {
	Kind() string
	action()
}

// FetchMetricsPayload carries the records that replace the current state.
type FetchMetricsPayload struct {
	Data []model.MetricRecord `json:"data"`
}

// FetchMetricsAction installs Payload.Data as the new state.
type FetchMetricsAction struct {
	Payload FetchMetricsPayload
}

// UnknownAction is any action kind this package does not handle.
type UnknownAction struct {
	Type string
}

func (FetchMetricsAction) Kind() string { return FetchMetrics }
func (FetchMetricsAction) action()      {}

func (a UnknownAction) Kind() string { return a.Type }
func (UnknownAction) action()        {}

// NewFetchMetricsAction builds a FETCH_METRICS action from records.
func NewFetchMetricsAction(data ...model.MetricRecord) FetchMetricsAction {
	if data == nil {
		data = []model.MetricRecord{}
	}
	return FetchMetricsAction{Payload: FetchMetricsPayload{Data: data}}
}
