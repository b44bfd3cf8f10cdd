// Package model contains core data types for the project.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// MetricRecord describes one metric shown by the dashboard.
// Only Title is interpreted; every other JSON field is kept as-is.
type MetricRecord struct {
	Title  string                     `json:"title"` // Metric title.
	Fields map[string]json.RawMessage `json:"-"`     // Opaque fields, keyed by JSON name.

	nullTitle bool // title was an explicit JSON null
}

var jsonNull = []byte("null")

// NewMetricRecord returns a record with the given title and no extra fields.
func NewMetricRecord(title string) MetricRecord {
	return MetricRecord{Title: title}
}

// Field returns the raw JSON of an opaque field.
func (m MetricRecord) Field(name string) (json.RawMessage, bool) {
	v, ok := m.Fields[name]
	return v, ok
}

func (m *MetricRecord) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("metric record must be an object")
	}

	rec := MetricRecord{}
	if t, ok := raw["title"]; ok {
		if bytes.Equal(bytes.TrimSpace(t), jsonNull) {
			rec.nullTitle = true
		} else if err := json.Unmarshal(t, &rec.Title); err != nil {
			return fmt.Errorf("invalid title: %w", err)
		}
		delete(raw, "title")
	}
	if len(raw) > 0 {
		rec.Fields = raw
	}

	*m = rec
	return nil
}

func (m MetricRecord) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(m.Fields))
	for k := range m.Fields {
		if k == "title" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	title := jsonNull
	if !m.nullTitle || m.Title != "" {
		var err error
		if title, err = json.Marshal(m.Title); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	buf.WriteString(`{"title":`)
	buf.Write(title)
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		if v := m.Fields[k]; len(bytes.TrimSpace(v)) > 0 {
			buf.Write(v)
		} else {
			buf.Write(jsonNull)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
