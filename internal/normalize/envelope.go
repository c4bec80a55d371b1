package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"
)

// TimeLayout is the source API's timestamp format: ISO-8601 in UTC with
// fractional seconds.
const TimeLayout = "2006-01-02T15:04:05.999999Z"

// time.Parse treats the fraction as optional and reads any number of digits;
// the source always sends one to six.
var timeShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{1,6}Z$`)

var errTimeShape = errors.New("want YYYY-MM-DDTHH:MM:SS.ffffffZ")

// unwrap returns the data container of a response envelope, or ErrNoData.
func unwrap(raw []byte) (json.RawMessage, error) {
	if !json.Valid(raw) {
		return nil, &FieldError{Field: "$", Err: errors.New("invalid JSON")}
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		// well-formed but not an object: nothing to ingest
		return nil, ErrNoData
	}
	if _, ok := top["error"]; ok {
		return nil, ErrNoData
	}
	data, ok := top["data"]
	if !ok || isNull(data) {
		return nil, ErrNoData
	}
	return data, nil
}

func isNull(m json.RawMessage) bool {
	t := bytes.TrimSpace(m)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// parseTime decodes one timestamp field. Empty means unknown.
func parseTime(field string, s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	if !timeShape.MatchString(*s) {
		return nil, &FieldError{Field: field, Err: errTimeShape}
	}
	t, err := time.Parse(TimeLayout, *s)
	if err != nil {
		return nil, &FieldError{Field: field, Err: err}
	}
	t = t.UTC()
	return &t, nil
}

// JoinPriceDrops flattens a price history into comma-separated decimal text,
// keeping each number's literal form and the original order.
func JoinPriceDrops(drops []json.Number) string {
	parts := make([]string, 0, len(drops))
	for _, d := range drops {
		parts = append(parts, d.String())
	}
	return strings.Join(parts, ",")
}
