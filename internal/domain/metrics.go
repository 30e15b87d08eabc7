package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// Action types that count as a "result", in priority order.
const (
	ActionMessagingConversationStarted = "onsite_conversion.messaging_conversation_started_7d"
	ActionLead                         = "lead"
)

// AggregateRecord is the per-entity summary of a series of insight rows.
type AggregateRecord struct {
	Spend          float64          `json:"spend"`
	Impressions    int64            `json:"impressions"`
	Reach          int64            `json:"reach"`
	OutboundClicks int64            `json:"outbound_clicks"`
	CTR            float64          `json:"ctr"`
	Actions        map[string]int64 `json:"actions"`
}

// DerivedKPIs are computed from an AggregateRecord. A nil pointer means the
// KPI has no value for the period.
type DerivedKPIs struct {
	CPM           *float64 `json:"cpm"`
	ResultCount   int64    `json:"result_count"`
	CostPerResult *float64 `json:"cost_per_result"`
}

// Aggregate folds insight rows into a single record.
//
// CTR is the plain mean of the daily rates that were present, not an
// impressions-weighted average; rows without a ctr are left out of the
// denominator.
func Aggregate(points []DailyDataPoint) AggregateRecord {
	record := AggregateRecord{Actions: make(map[string]int64)}

	spend := decimal.Zero
	var ctrSum float64
	var ctrDays int

	for _, p := range points {
		if sum := spend.Add(p.Spend.Decimal()); isFinite(sum.InexactFloat64()) {
			spend = sum
		}
		record.Impressions += p.Impressions.Int()
		record.Reach += p.Reach.Int()

		if len(p.OutboundClicks) > 0 {
			record.OutboundClicks += p.OutboundClicks[0].Value.Int()
		}

		if ctr, ok := p.CTR.Float(); ok {
			ctrSum += ctr
			ctrDays++
		}

		for _, action := range p.Actions {
			record.Actions[action.ActionType] += action.Value.Int()
		}
	}

	record.Spend = spend.InexactFloat64()
	if ctrDays > 0 {
		record.CTR = ctrSum / float64(ctrDays)
	}

	return record
}

// SelectPrimaryResult picks the conversion count for an entity: messaging
// conversations first, then leads, else zero. Other action types are never
// summed in.
func SelectPrimaryResult(actions map[string]int64) int64 {
	if v := actions[ActionMessagingConversationStarted]; v != 0 {
		return v
	}
	if v := actions[ActionLead]; v != 0 {
		return v
	}
	return 0
}

func DeriveKPIs(record AggregateRecord) DerivedKPIs {
	kpis := DerivedKPIs{
		ResultCount: SelectPrimaryResult(record.Actions),
	}

	if record.Impressions > 0 {
		kpis.CPM = ratio(record.Spend*1000, float64(record.Impressions))
	}

	if kpis.ResultCount > 0 {
		kpis.CostPerResult = ratio(record.Spend, float64(kpis.ResultCount))
	}

	return kpis
}

func (r AggregateRecord) KPIs() DerivedKPIs {
	return DeriveKPIs(r)
}

// Totals accumulates spend, reach and results over the entities that
// returned data.
type Totals struct {
	Spend         float64  `json:"spend"`
	Reach         int64    `json:"reach"`
	ResultCount   int64    `json:"result_count"`
	Entities      int      `json:"entities"`
	CostPerResult *float64 `json:"cost_per_result"`
}

func (t *Totals) Add(record AggregateRecord) {
	if sum := t.Spend + record.Spend; isFinite(sum) {
		t.Spend = sum
	}
	t.Reach += record.Reach
	t.ResultCount += SelectPrimaryResult(record.Actions)
	t.Entities++

	t.CostPerResult = nil
	if t.ResultCount > 0 {
		t.CostPerResult = ratio(t.Spend, float64(t.ResultCount))
	}
}

// ratio returns nil instead of a NaN or infinite quotient.
func ratio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
