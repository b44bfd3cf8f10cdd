package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/and161185/metrics-state/model"
)

var (
	ErrInvalidAction = errors.New("invalid action")
	ErrMissingData   = errors.New("payload data is missing")
	ErrInvalidData   = errors.New("payload data is invalid")
)

type wireAction struct {
	Type    string          `json:"type"`
	Kind    string          `json:"kind,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type wirePayload struct {
	Data json.RawMessage `json:"data"`
}

// DecodeAction parses an action of the form
// {"type": "FETCH_METRICS", "payload": {"data": [...]}}.
// "kind" is accepted in place of "type".
func DecodeAction(b []byte) (Action, error) {
	var w wireAction
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}

	kind := w.Type
	if kind == "" {
		kind = w.Kind
	}
	if kind == "" {
		return nil, fmt.Errorf("%w: type is required", ErrInvalidAction)
	}

	if kind != FetchMetrics {
		return UnknownAction{Type: kind}, nil
	}

	if isNull(w.Payload) {
		return nil, ErrMissingData
	}

	var p wirePayload
	if err := json.Unmarshal(w.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if isNull(p.Data) {
		return nil, ErrMissingData
	}

	var data []model.MetricRecord
	if err := json.Unmarshal(p.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	return NewFetchMetricsAction(data...), nil
}

// ReadAction reads the whole of r and decodes it as an action.
func ReadAction(r io.Reader) (Action, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read action: %w", err)
	}
	return DecodeAction(b)
}

// EncodeAction is the inverse of DecodeAction.
func EncodeAction(a Action) ([]byte, error) {
	switch act := a.(type) {
	case FetchMetricsAction:
		data := act.Payload.Data
		if data == nil {
			data = []model.MetricRecord{}
		}
		payload, err := json.Marshal(FetchMetricsPayload{Data: data})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		return json.Marshal(wireAction{Type: FetchMetrics, Payload: payload})
	case UnknownAction:
		return json.Marshal(wireAction{Type: act.Type})
	default:
		return nil, fmt.Errorf("%w: unsupported action %T", ErrInvalidAction, a)
	}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
