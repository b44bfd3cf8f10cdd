package metrics

import "github.com/and161185/metrics-state/model"

// State is the ordered list of metric records, in payload order.
type State []model.MetricRecord

// InitialState returns the empty state the application starts with.
func InitialState() State {
	return State{}
}

// Reduce applies an action to state and returns the resulting state.
// It never writes to state. FETCH_METRICS replaces the whole state with the
// payload records; every other action returns state unchanged.
func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case FetchMetricsAction:
		return State(a.Payload.Data)
	default:
		return state
	}
}

// Titles lists record titles in state order.
func (s State) Titles() []string {
	titles := make([]string, 0, len(s))
	for _, m := range s {
		titles = append(titles, m.Title)
	}
	return titles
}

// Clone returns a copy that shares no backing array with s.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	out := make(State, len(s))
	copy(out, s)
	return out
}
