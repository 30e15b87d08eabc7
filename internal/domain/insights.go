package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Number is an upstream numeric field. The Graph API sends most metrics as
// decimal strings, but plain JSON numbers and null are accepted too.
type Number struct {
	raw   string
	valid bool
}

// NewNumber returns a present Number holding s.
func NewNumber(s string) Number {
	return Number{raw: strings.TrimSpace(s), valid: true}
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = Number{}
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = NewNumber(s)
		return nil
	}

	// Numbers, and anything else upstream might send, are kept verbatim.
	// Non-numeric content parses as zero later on.
	*n = NewNumber(string(b))
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.raw)
}

// IsZero reports whether the field was absent or null.
func (n Number) IsZero() bool {
	return !n.valid
}

// Valid reports whether the field was present and non-null.
func (n Number) Valid() bool {
	return n.valid
}

func (n Number) String() string {
	return n.raw
}

// Float parses the value as a finite float64.
func (n Number) Float() (float64, bool) {
	if !n.valid {
		return 0, false
	}
	f, err := strconv.ParseFloat(n.raw, 64)
	if err != nil || !isFinite(f) {
		return 0, false
	}
	return f, true
}

// Int parses the value as an integer, truncating decimals toward zero.
// Missing or non-numeric values are 0.
func (n Number) Int() int64 {
	if !n.valid {
		return 0
	}
	if i, err := strconv.ParseInt(n.raw, 10, 64); err == nil {
		return i
	}
	if f, ok := n.Float(); ok && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return 0
}

// Decimal parses the value as an exact decimal. Missing or non-numeric
// values are 0, and so are values outside the float64 range.
func (n Number) Decimal() decimal.Decimal {
	if !n.valid {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.raw)
	if err != nil || !isFinite(d.InexactFloat64()) {
		return decimal.Zero
	}
	return d
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ActionValue is one {action_type, value} entry of a Graph API action list.
type ActionValue struct {
	ActionType string `json:"action_type"`
	Value      Number `json:"value,omitzero"`
}

// DailyDataPoint is one insights row for one entity.
type DailyDataPoint struct {
	DateStart         string        `json:"date_start,omitempty"`
	DateStop          string        `json:"date_stop,omitempty"`
	Spend             Number        `json:"spend,omitzero"`
	Impressions       Number        `json:"impressions,omitzero"`
	Reach             Number        `json:"reach,omitzero"`
	OutboundClicks    []ActionValue `json:"outbound_clicks,omitempty"`
	CTR               Number        `json:"ctr,omitzero"`
	Actions           []ActionValue `json:"actions,omitempty"`
	CostPerActionType []ActionValue `json:"cost_per_action_type,omitempty"`
}

// Entity is an ad account or campaign requested by the caller.
type Entity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

const CampaignStatusActive = "ACTIVE"

type Campaign struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

func (c Campaign) IsActive() bool {
	return c.Status == CampaignStatusActive
}

// CampaignInsights is an active campaign together with its non-empty series.
type CampaignInsights struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Status   string           `json:"status"`
	Insights []DailyDataPoint `json:"insights"`
}
