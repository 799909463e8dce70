package pipeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const placeholder = "N/A"

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch t := v.(type) {
	case bson.M:
		return t, t != nil
	case map[string]interface{}:
		return t, t != nil
	case primitive.D:
		return t.Map(), true
	}
	return nil, false
}

func asSlice(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case primitive.A:
		return t, true
	case []interface{}:
		return t, true
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// lookup walks path through nested documents. It never panics on absent keys
// or unexpected shapes; ok is false when any step is missing.
func lookup(doc interface{}, path ...string) (interface{}, bool) {
	cur := doc
	for _, key := range path {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// stringAt returns the value at path as display text, or "" when absent
func stringAt(doc interface{}, path ...string) string {
	v, ok := lookup(doc, path...)
	if !ok {
		return ""
	}
	return display(v)
}

// orDefault returns s unless it is blank
func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// firstString returns the first non-blank value among keys, most specific first
func firstString(doc interface{}, keys ...string) string {
	for _, k := range keys {
		if s := stringAt(doc, k); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func display(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case primitive.ObjectID:
		return t.Hex()
	case time.Time:
		return formatDate(t)
	case primitive.DateTime:
		return formatDate(t.Time())
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(t)
	}
	if m, ok := asMap(v); ok {
		return fmt.Sprint(Normalize(m))
	}
	return fmt.Sprint(v)
}

// formatDate prints midnight timestamps as a date and anything else with minutes
func formatDate(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04")
}

// intAt reads a whole number stored as any numeric type or a numeric string
func intAt(doc interface{}, key string) (int, bool) {
	v, ok := lookup(doc, key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case float64:
		return int(t), t == float64(int(t))
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	}
	return 0, false
}
