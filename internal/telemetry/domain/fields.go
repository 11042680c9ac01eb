package telemetry

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Labeler maps a field identifier to its display label.
type Labeler interface {
	Label(identifier string) string
}

// Field is one displayable row of a snapshot.
type Field struct {
	Group      string `json:"group,omitempty"`
	GroupLabel string `json:"groupLabel,omitempty"`
	Key        string `json:"key"`
	Label      string `json:"label"`
	Value      string `json:"value"`
}

// Path returns the dotted identifier path of the field.
func (f Field) Path() string {
	if f.Group == "" {
		return f.Key
	}
	return f.Group + "." + f.Key
}

// DisplayLabel returns the label prefixed by its group label, if any.
func (f Field) DisplayLabel() string {
	if f.GroupLabel == "" {
		return f.Label
	}
	return f.GroupLabel + " / " + f.Label
}

// Table is a labelled view of a device snapshot.
type Table struct {
	TenantID string    `json:"tenantId"`
	DeviceID string    `json:"deviceId"`
	TS       time.Time `json:"ts"`
	Fields   []Field   `json:"fields"`
}

// BuildTable labels every field of the snapshot.
func BuildTable(s Snapshot, labeler Labeler) Table {
	return Table{
		TenantID: s.TenantID,
		DeviceID: s.DeviceID,
		TS:       s.TS,
		Fields:   BuildFields(s.Values, labeler),
	}
}

// BuildFields flattens values into rows ordered by key. Nested objects expand
// one level; anything deeper is rendered as JSON text. An empty nested object
// keeps one row under its own key with an empty value.
func BuildFields(values map[string]any, labeler Labeler) []Field {
	fields := make([]Field, 0, len(values))
	for _, key := range sortedKeys(values) {
		nested, ok := values[key].(map[string]any)
		if ok && len(nested) == 0 {
			fields = append(fields, Field{Key: key, Label: labeler.Label(key)})
			continue
		}
		if !ok {
			fields = append(fields, Field{
				Key:   key,
				Label: labeler.Label(key),
				Value: FormatValue(values[key]),
			})
			continue
		}
		groupLabel := labeler.Label(key)
		for _, child := range sortedKeys(nested) {
			fields = append(fields, Field{
				Group:      key,
				GroupLabel: groupLabel,
				Key:        child,
				Label:      labeler.Label(child),
				Value:      FormatValue(nested[child]),
			})
		}
	}
	return fields
}

// FormatValue renders a raw telemetry value for display.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int, int32, int64, uint, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case json.Number:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
