// Package detection reads the device counts out of a blueprint analysis
// reply. The reply is free text from a vision model that is expected to
// contain a single JSON object.
package detection

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrNoJSON is returned when the reply contains no JSON object.
	ErrNoJSON = errors.New("no JSON found in response")

	// ErrInvalidCount is returned for negative or fractional device counts.
	ErrInvalidCount = errors.New("invalid device count")
)

// DrawingInfo describes the analysed sheet.
type DrawingInfo struct {
	Title  string `json:"title"`
	Number string `json:"number"`
	Type   string `json:"type"`
	Scale  string `json:"scale"`
}

// Device is one device type the model reported.
type Device struct {
	DeviceType  string   `json:"device_type"`
	RawQuantity any      `json:"quantity"`
	SystemType  string   `json:"system_type"`
	Model       string   `json:"model"`
	Voltage     string   `json:"voltage"`
	Circuit     string   `json:"circuit"`
	Locations   []string `json:"locations"`
}

// Result is the decoded analysis reply.
type Result struct {
	DrawingInfo DrawingInfo    `json:"drawing_info"`
	Devices     []Device       `json:"devices"`
	Notes       []string       `json:"notes"`
	TotalCounts map[string]any `json:"total_counts"`
}

// Extract returns the text between the first '{' and the last '}'.
func Extract(reply string) (string, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	return reply[start : end+1], nil
}

// Parse extracts and decodes the JSON object embedded in reply.
func Parse(reply string) (*Result, error) {
	raw, err := Extract(reply)
	if err != nil {
		return nil, err
	}

	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return &result, nil
}

// Counts returns total_counts as device key -> count. Null entries are
// skipped.
func (r *Result) Counts() (map[string]int, error) {
	counts := make(map[string]int, len(r.TotalCounts))
	keys := make([]string, 0, len(r.TotalCounts))
	for key := range r.TotalCounts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := r.TotalCounts[key]
		if value == nil {
			continue
		}
		n, err := toCount(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		counts[key] = n
	}
	return counts, nil
}

// Count returns the device's reported quantity, or 0 when it cannot be
// read as a count.
func (d Device) Count() int {
	if d.RawQuantity == nil {
		return 0
	}
	n, err := toCount(d.RawQuantity)
	if err != nil {
		return 0
	}
	return n
}

func toCount(value any) (int, error) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidCount, v)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: %v", ErrInvalidCount, value)
	}

	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCount, value)
	}
	return int(f), nil
}
