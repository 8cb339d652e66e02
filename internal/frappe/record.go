package frappe

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Doctypes the tracker works with.
const (
	DoctypeProject         = "Project"
	DoctypeTask            = "Task"
	DoctypeTimesheet       = "Timesheet"
	DoctypeTimesheetDetail = "Timesheet Detail"
	DoctypeEmployee        = "Employee"
)

// Filter operators.
const (
	OpEq  = "="
	OpNe  = "!="
	OpGte = ">="
	OpLte = "<="
	OpLt  = "<"
	OpIs  = "is"
)

// Values for OpIs.
const (
	IsSet    = "set"
	IsNotSet = "not set"
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05"
)

// Record is a single remote document as returned by the REST API.
type Record map[string]any

// Filter is one [field, operator, value] triple. Filters in a Query are ANDed.
type Filter struct {
	Field string
	Op    string
	Value any
}

func (f Filter) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{f.Field, f.Op, f.Value})
}

// Query selects records of one doctype. Limit 0 means no limit.
type Query struct {
	Fields  []string
	Filters []Filter
	OrderBy string
	Limit   int
}

// Name returns the document id.
func (r Record) Name() string {
	return r.String("name")
}

// String returns the field as a string, or "" when it is missing or null.
func (r Record) String(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Float returns the field as a number. Frappe sometimes serialises decimals as strings.
func (r Record) Float(field string) float64 {
	switch v := r[field].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

// Time parses a date or datetime field. ok is false for missing, null or empty values.
func (r Record) Time(field string, loc *time.Location) (t time.Time, ok bool, err error) {
	raw := r.String(field)
	if raw == "" {
		return time.Time{}, false, nil
	}
	t, err = ParseDatetime(raw, loc)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("field %q: %w", field, err)
	}
	return t, true, nil
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// ParseDatetime accepts "YYYY-MM-DD hh:mm:ss", with optional fractional
// seconds, and bare "YYYY-MM-DD".
func ParseDatetime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if len(s) == len(dateLayout) {
		return time.ParseInLocation(dateLayout, s, loc)
	}
	t, err := time.ParseInLocation(datetimeLayout, s, loc)
	if err == nil {
		return t, nil
	}
	// "2006-01-02 15:04:05.999999"
	return time.ParseInLocation(datetimeLayout+".999999999", s, loc)
}

// FormatDatetime renders t in loc as "YYYY-MM-DD hh:mm:ss".
func FormatDatetime(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(datetimeLayout)
}

// FormatDate renders t in loc as "YYYY-MM-DD".
func FormatDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(dateLayout)
}
