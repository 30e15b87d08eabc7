package domain

// BatchState is the settled outcome of one entity in a batch.
type BatchState string

const (
	StateSuccess BatchState = "success"
	StateNoData  BatchState = "no_data"
	StateError   BatchState = "error"
)

const (
	MessageNoData      = "no data returned for period"
	MessageFetchFailed = "failed to fetch insights"
)

// BatchResult is one entity's outcome. Data is set only on success.
type BatchResult struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	State   BatchState       `json:"state"`
	Success bool             `json:"success"`
	Data    *AggregateRecord `json:"data"`
	Error   string           `json:"error,omitempty"`
	Message string           `json:"message,omitempty"`
}

type BatchResults []BatchResult

// ByID indexes results by entity id. When an id was requested twice the
// later result wins.
func (r BatchResults) ByID() map[string]BatchResult {
	out := make(map[string]BatchResult, len(r))
	for _, res := range r {
		out[res.ID] = res
	}
	return out
}

// Totals sums the successful results.
func (r BatchResults) Totals() Totals {
	var t Totals
	for _, res := range r {
		if res.State == StateSuccess && res.Data != nil {
			t.Add(*res.Data)
		}
	}
	return t
}

// Counts returns the number of results per state.
func (r BatchResults) Counts() map[BatchState]int {
	counts := make(map[BatchState]int, 3)
	for _, res := range r {
		counts[res.State]++
	}
	return counts
}

// EntityView is a display-ready batch result with its KPIs.
type EntityView struct {
	BatchResult
	KPIs *DerivedKPIs `json:"kpis"`
}

// Dashboard is the full set of entity views plus their totals.
type Dashboard struct {
	Accounts []EntityView `json:"accounts"`
	Totals   Totals       `json:"totals"`
}

func NewDashboard(results BatchResults) Dashboard {
	views := make([]EntityView, 0, len(results))
	for _, res := range results {
		view := EntityView{BatchResult: res}
		if res.Data != nil {
			kpis := res.Data.KPIs()
			view.KPIs = &kpis
		}
		views = append(views, view)
	}
	return Dashboard{Accounts: views, Totals: results.Totals()}
}

// CampaignView is an active campaign with its aggregate and KPIs.
type CampaignView struct {
	CampaignInsights
	Aggregate AggregateRecord `json:"aggregate"`
	KPIs      DerivedKPIs     `json:"kpis"`
}

func NewCampaignView(c CampaignInsights) CampaignView {
	agg := Aggregate(c.Insights)
	return CampaignView{CampaignInsights: c, Aggregate: agg, KPIs: agg.KPIs()}
}
