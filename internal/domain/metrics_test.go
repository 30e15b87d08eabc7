package domain

import (
	"encoding/json"
	"math"
	"testing"
)

func mustPoints(t *testing.T, raw string) []DailyDataPoint {
	t.Helper()
	var points []DailyDataPoint
	if err := json.Unmarshal([]byte(raw), &points); err != nil {
		t.Fatalf("unmarshal points: %v", err)
	}
	return points
}

func TestAggregate_Empty(t *testing.T) {
	got := Aggregate(nil)

	if got.Spend != 0 || got.Impressions != 0 || got.Reach != 0 || got.OutboundClicks != 0 || got.CTR != 0 {
		t.Fatalf("expected all-zero record, got %+v", got)
	}
	if got.Actions == nil {
		t.Fatal("expected empty, non-nil actions map")
	}
	if len(got.Actions) != 0 {
		t.Fatalf("expected no actions, got %v", got.Actions)
	}
}

func TestAggregate_EndToEnd(t *testing.T) {
	points := mustPoints(t, `[
		{"spend":"100","impressions":"1000","ctr":"1.5","actions":[{"action_type":"lead","value":"4"}]},
		{"spend":"50","impressions":"500","ctr":"2.5","actions":[{"action_type":"lead","value":"2"}]}
	]`)

	agg := Aggregate(points)
	if agg.Spend != 150 {
		t.Errorf("spend = %v, want 150", agg.Spend)
	}
	if agg.Impressions != 1500 {
		t.Errorf("impressions = %d, want 1500", agg.Impressions)
	}
	if agg.CTR != 2.0 {
		t.Errorf("ctr = %v, want 2.0", agg.CTR)
	}
	if agg.Actions["lead"] != 6 {
		t.Errorf("actions[lead] = %d, want 6", agg.Actions["lead"])
	}

	kpis := agg.KPIs()
	if kpis.CPM == nil || *kpis.CPM != 100 {
		t.Errorf("cpm = %v, want 100", kpis.CPM)
	}
	if kpis.ResultCount != 6 {
		t.Errorf("result count = %d, want 6", kpis.ResultCount)
	}
	if kpis.CostPerResult == nil || *kpis.CostPerResult != 25 {
		t.Errorf("cost per result = %v, want 25", kpis.CostPerResult)
	}
}

func TestAggregate_CTROnlyAveragesPresentDays(t *testing.T) {
	points := mustPoints(t, `[{"ctr":"2.0"},{"impressions":"100"},{"ctr":null}]`)

	agg := Aggregate(points)
	if agg.CTR != 2.0 {
		t.Fatalf("ctr = %v, want 2.0", agg.CTR)
	}
	if agg.Impressions != 100 {
		t.Fatalf("impressions = %d, want 100", agg.Impressions)
	}
}

func TestAggregate_CTRIsMeanOfDailyRates(t *testing.T) {
	// An impressions-weighted mean would give 1.1 here.
	points := mustPoints(t, `[
		{"impressions":"900","ctr":"1"},
		{"impressions":"100","ctr":"2"}
	]`)

	if got := Aggregate(points).CTR; got != 1.5 {
		t.Fatalf("ctr = %v, want 1.5", got)
	}
}

func TestAggregate_MixedEncodingsAndMissingValues(t *testing.T) {
	points := mustPoints(t, `[
		{"spend":12.5,"impressions":200,"reach":"150","outbound_clicks":[{"action_type":"outbound_click","value":"7"},{"action_type":"other","value":"99"}]},
		{"spend":"abc","impressions":"12.9","reach":null,"outbound_clicks":[]},
		{"spend":"0.10","actions":[{"action_type":"link_click"},{"action_type":"link_click","value":"3"},{"action_type":"new_type","value":5}]},
		{"spend":"1e400","impressions":"-1e400"}
	]`)

	agg := Aggregate(points)
	if agg.Spend != 12.6 {
		t.Errorf("spend = %v, want 12.6", agg.Spend)
	}
	if agg.Impressions != 212 {
		t.Errorf("impressions = %d, want 212", agg.Impressions)
	}
	if agg.Reach != 150 {
		t.Errorf("reach = %d, want 150", agg.Reach)
	}
	if agg.OutboundClicks != 7 {
		t.Errorf("outbound clicks = %d, want 7", agg.OutboundClicks)
	}
	if agg.Actions["link_click"] != 3 {
		t.Errorf("actions[link_click] = %d, want 3", agg.Actions["link_click"])
	}
	if agg.Actions["new_type"] != 5 {
		t.Errorf("actions[new_type] = %d, want 5", agg.Actions["new_type"])
	}
}

func TestAggregate_OutOfRangeSpendCountsAsZero(t *testing.T) {
	points := mustPoints(t, `[
		{"spend":"1e400","impressions":"1e3","actions":[{"action_type":"lead","value":"2"}]},
		{"spend":"40"}
	]`)

	agg := Aggregate(points)
	if agg.Spend != 40 {
		t.Fatalf("spend = %v, want 40", agg.Spend)
	}
	if agg.Impressions != 1000 {
		t.Fatalf("impressions = %d, want 1000", agg.Impressions)
	}

	kpis := agg.KPIs()
	if kpis.CPM == nil || *kpis.CPM != 40 {
		t.Fatalf("cpm = %v, want 40", kpis.CPM)
	}
	if kpis.CostPerResult == nil || *kpis.CostPerResult != 20 {
		t.Fatalf("cost per result = %v, want 20", kpis.CostPerResult)
	}

	if _, err := json.Marshal(NewDashboard(BatchResults{{ID: "a", State: StateSuccess, Success: true, Data: &agg}})); err != nil {
		t.Fatalf("marshal dashboard: %v", err)
	}
}

func TestAggregate_SpendSumStaysFinite(t *testing.T) {
	agg := Aggregate(mustPoints(t, `[{"spend":"1.7e308"},{"spend":"1.7e308"}]`))
	if math.IsInf(agg.Spend, 0) || agg.Spend != 1.7e308 {
		t.Fatalf("spend = %v, want 1.7e308", agg.Spend)
	}

	var totals Totals
	totals.Add(AggregateRecord{Spend: math.MaxFloat64})
	totals.Add(AggregateRecord{Spend: math.MaxFloat64})
	if math.IsInf(totals.Spend, 0) {
		t.Fatalf("totals spend overflowed: %v", totals.Spend)
	}
	if _, err := json.Marshal(totals); err != nil {
		t.Fatalf("marshal totals: %v", err)
	}
}

func TestAggregate_OrderIndependentSums(t *testing.T) {
	points := mustPoints(t, `[
		{"spend":"1.1","impressions":"10","reach":"3","actions":[{"action_type":"lead","value":"1"}]},
		{"spend":"2.2","impressions":"20","reach":"4","actions":[{"action_type":"lead","value":"2"}]},
		{"spend":"3.3","impressions":"30","reach":"5","actions":[{"action_type":"like","value":"9"}]}
	]`)
	reversed := []DailyDataPoint{points[2], points[1], points[0]}

	a, b := Aggregate(points), Aggregate(reversed)
	if a.Spend != b.Spend || a.Impressions != b.Impressions || a.Reach != b.Reach {
		t.Fatalf("sums differ: %+v vs %+v", a, b)
	}
	if a.Spend != 6.6 {
		t.Fatalf("spend = %v, want 6.6", a.Spend)
	}
	if a.Actions["lead"] != b.Actions["lead"] || a.Actions["like"] != b.Actions["like"] {
		t.Fatalf("actions differ: %v vs %v", a.Actions, b.Actions)
	}
}

func TestSelectPrimaryResult(t *testing.T) {
	tests := []struct {
		name    string
		actions map[string]int64
		want    int64
	}{
		{"messaging wins over larger lead", map[string]int64{ActionMessagingConversationStarted: 5, ActionLead: 9}, 5},
		{"lead fallback", map[string]int64{ActionLead: 3}, 3},
		{"zero messaging falls back to lead", map[string]int64{ActionMessagingConversationStarted: 0, ActionLead: 2}, 2},
		{"other actions ignored", map[string]int64{"like": 40, "link_click": 12}, 0},
		{"empty", map[string]int64{}, 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectPrimaryResult(tt.actions); got != tt.want {
				t.Fatalf("SelectPrimaryResult() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDeriveKPIs_Singularities(t *testing.T) {
	tests := []struct {
		name       string
		record     AggregateRecord
		wantCPM    bool
		wantResult bool
	}{
		{"zero everything", AggregateRecord{}, false, false},
		{"spend without impressions", AggregateRecord{Spend: 10}, false, false},
		{"impressions without results", AggregateRecord{Spend: 10, Impressions: 100}, true, false},
		{"results without impressions", AggregateRecord{Spend: 10, Actions: map[string]int64{ActionLead: 2}}, false, true},
		{"zero spend", AggregateRecord{Impressions: 100, Actions: map[string]int64{ActionLead: 2}}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kpis := DeriveKPIs(tt.record)
			if (kpis.CPM != nil) != tt.wantCPM {
				t.Fatalf("cpm defined = %v, want %v", kpis.CPM != nil, tt.wantCPM)
			}
			if (kpis.CostPerResult != nil) != tt.wantResult {
				t.Fatalf("cost per result defined = %v, want %v", kpis.CostPerResult != nil, tt.wantResult)
			}
			for _, v := range []*float64{kpis.CPM, kpis.CostPerResult} {
				if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
					t.Fatalf("non-finite KPI %v", *v)
				}
			}
		})
	}
}

func TestDeriveKPIs_MarshalsUndefinedAsNull(t *testing.T) {
	b, err := json.Marshal(DeriveKPIs(AggregateRecord{}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"cpm":null,"result_count":0,"cost_per_result":null}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

func TestTotals_Add(t *testing.T) {
	var totals Totals
	totals.Add(AggregateRecord{Spend: 100, Reach: 1000, Actions: map[string]int64{ActionLead: 4}})
	totals.Add(AggregateRecord{Spend: 50, Reach: 500, Actions: map[string]int64{ActionMessagingConversationStarted: 1, ActionLead: 50}})

	if totals.Spend != 150 || totals.Reach != 1500 || totals.ResultCount != 5 || totals.Entities != 2 {
		t.Fatalf("unexpected totals %+v", totals)
	}
	if totals.CostPerResult == nil || *totals.CostPerResult != 30 {
		t.Fatalf("cost per result = %v, want 30", totals.CostPerResult)
	}
}

func TestBatchResults_TotalsSkipFailedAndEmpty(t *testing.T) {
	ok := AggregateRecord{Spend: 10, Reach: 20, Actions: map[string]int64{ActionLead: 2}}
	results := BatchResults{
		{ID: "a", State: StateSuccess, Success: true, Data: &ok},
		{ID: "b", State: StateError, Error: "boom"},
		{ID: "c", State: StateNoData, Message: MessageNoData},
	}

	totals := results.Totals()
	if totals.Entities != 1 || totals.Spend != 10 || totals.Reach != 20 || totals.ResultCount != 2 {
		t.Fatalf("unexpected totals %+v", totals)
	}

	counts := results.Counts()
	if counts[StateSuccess] != 1 || counts[StateError] != 1 || counts[StateNoData] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}

	byID := results.ByID()
	if len(byID) != 3 || byID["b"].Error != "boom" {
		t.Fatalf("unexpected index %v", byID)
	}
}

func TestNewDashboard(t *testing.T) {
	rec := AggregateRecord{Spend: 10, Impressions: 100, Actions: map[string]int64{}}
	dash := NewDashboard(BatchResults{
		{ID: "a", State: StateSuccess, Success: true, Data: &rec},
		{ID: "b", State: StateError, Error: "boom"},
	})

	if len(dash.Accounts) != 2 {
		t.Fatalf("expected 2 views, got %d", len(dash.Accounts))
	}
	if dash.Accounts[0].KPIs == nil || dash.Accounts[0].KPIs.CPM == nil || *dash.Accounts[0].KPIs.CPM != 100 {
		t.Fatalf("unexpected KPIs for success view: %+v", dash.Accounts[0].KPIs)
	}
	if dash.Accounts[1].KPIs != nil {
		t.Fatal("failed entity should carry no KPIs")
	}
	if dash.Totals.Entities != 1 {
		t.Fatalf("totals entities = %d, want 1", dash.Totals.Entities)
	}
}
