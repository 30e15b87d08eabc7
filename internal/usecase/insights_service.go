package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"adsdash/internal/domain"
	"adsdash/pkg/logger"
	"adsdash/pkg/metrics"
)

const (
	kindAccounts  = "accounts"
	kindCampaigns = "campaigns"
)

// InsightsService fans insight requests out to the gateway and reconciles
// the per-entity outcomes.
type InsightsService struct {
	gateway    domain.InsightsGateway
	logger     *logger.Logger
	metrics    *metrics.Metrics
	workerPool int
}

func NewInsightsService(
	gateway domain.InsightsGateway,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	workerPool int,
) *InsightsService {
	return &InsightsService{
		gateway:    gateway,
		logger:     logger,
		metrics:    metrics,
		workerPool: workerPool,
	}
}

// FetchInsights returns the raw rows of a single account.
func (s *InsightsService) FetchInsights(ctx context.Context, accountID string, query domain.InsightsQuery) ([]domain.DailyDataPoint, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, fmt.Errorf("%w: required parameters: accountId", domain.ErrInvalidInput)
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	points, err := s.gateway.FetchInsights(ctx, accountID, query)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("account_id", accountID).Error("Failed to fetch insights")
		return nil, err
	}

	return points, nil
}

// FetchInsightsBatch fetches every account concurrently. It only fails on
// invalid input; upstream problems end up in the per-account results.
func (s *InsightsService) FetchInsightsBatch(ctx context.Context, accounts []domain.Entity, query domain.InsightsQuery) (domain.BatchResults, error) {
	if err := validateEntities(accounts); err != nil {
		return nil, err
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	log := s.logger.WithContext(ctx)
	log.WithFields(map[string]any{
		"accounts": len(accounts),
		"since":    query.Since,
		"until":    query.Until,
	}).Info("Starting insights batch")

	results := Reconcile(ctx, accounts, s.workerPool, func(ctx context.Context, account domain.Entity) ([]domain.DailyDataPoint, error) {
		s.metrics.IncFetchesInProgress()
		defer s.metrics.DecFetchesInProgress()
		return s.gateway.FetchInsights(ctx, account.ID, query)
	})

	duration := time.Since(start)
	s.metrics.RecordBatch(kindAccounts, duration)

	for _, res := range results {
		s.metrics.RecordBatchOutcome(kindAccounts, string(res.State))
		if res.State == domain.StateError {
			log.WithFields(map[string]any{
				"account_id": res.ID,
				"error":      res.Error,
			}).Warn("Account fetch failed")
		}
	}

	counts := results.Counts()
	log.WithFields(map[string]any{
		"duration": duration,
		"success":  counts[domain.StateSuccess],
		"no_data":  counts[domain.StateNoData],
		"failed":   counts[domain.StateError],
	}).Info("Insights batch completed")

	return results, nil
}

// BuildDashboard runs a batch and derives KPIs and totals for display.
func (s *InsightsService) BuildDashboard(ctx context.Context, accounts []domain.Entity, query domain.InsightsQuery) (domain.Dashboard, error) {
	results, err := s.FetchInsightsBatch(ctx, accounts, query)
	if err != nil {
		return domain.Dashboard{}, err
	}
	return domain.NewDashboard(results), nil
}

type campaignFetch struct {
	campaign domain.Campaign
	points   []domain.DailyDataPoint
	err      error
}

// FetchActiveCampaignsWithInsights lists the account's campaigns and returns
// the active ones that have rows in the period. Campaigns whose fetch fails
// or returns nothing are left out. Only a failed listing is an error.
func (s *InsightsService) FetchActiveCampaignsWithInsights(ctx context.Context, accountID string, query domain.InsightsQuery) ([]domain.CampaignInsights, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, fmt.Errorf("%w: required parameters: accountId", domain.ErrInvalidInput)
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	log := s.logger.WithContext(ctx).WithField("account_id", accountID)

	campaigns, err := s.gateway.FetchCampaigns(ctx, accountID, query.Token)
	if err != nil {
		log.WithError(err).Error("Failed to list campaigns")
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	active := make([]domain.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if c.IsActive() {
			active = append(active, c)
		}
	}
	s.metrics.RecordCampaignFiltered("inactive", len(campaigns)-len(active))

	fetched := fanOut(ctx, active, s.workerPool, func(ctx context.Context, c domain.Campaign) (f campaignFetch) {
		f.campaign = c
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("%s: panic: %v", domain.MessageFetchFailed, r)
			}
		}()

		s.metrics.IncFetchesInProgress()
		defer s.metrics.DecFetchesInProgress()
		f.points, f.err = s.gateway.FetchInsights(ctx, c.ID, query)
		return f
	})

	out := make([]domain.CampaignInsights, 0, len(fetched))
	for _, f := range fetched {
		switch {
		case f.err != nil:
			s.metrics.RecordBatchOutcome(kindCampaigns, string(domain.StateError))
			s.metrics.RecordCampaignFiltered("error", 1)
			log.WithError(f.err).WithField("campaign_id", f.campaign.ID).Warn("Campaign fetch failed, skipping")
		case len(f.points) == 0:
			s.metrics.RecordBatchOutcome(kindCampaigns, string(domain.StateNoData))
			s.metrics.RecordCampaignFiltered("no_data", 1)
		default:
			s.metrics.RecordBatchOutcome(kindCampaigns, string(domain.StateSuccess))
			out = append(out, domain.CampaignInsights{
				ID:       f.campaign.ID,
				Name:     f.campaign.Name,
				Status:   f.campaign.Status,
				Insights: f.points,
			})
		}
	}

	duration := time.Since(start)
	s.metrics.RecordBatch(kindCampaigns, duration)

	log.WithFields(map[string]any{
		"duration":  duration,
		"listed":    len(campaigns),
		"active":    len(active),
		"with_data": len(out),
	}).Info("Campaign insights completed")

	return out, nil
}

// BuildCampaignDashboard aggregates each active campaign for display.
func (s *InsightsService) BuildCampaignDashboard(ctx context.Context, accountID string, query domain.InsightsQuery) ([]domain.CampaignView, error) {
	campaigns, err := s.FetchActiveCampaignsWithInsights(ctx, accountID, query)
	if err != nil {
		return nil, err
	}

	views := make([]domain.CampaignView, 0, len(campaigns))
	for _, c := range campaigns {
		views = append(views, domain.NewCampaignView(c))
	}
	return views, nil
}

func validateEntities(entities []domain.Entity) error {
	if len(entities) == 0 {
		return fmt.Errorf("%w: accounts must contain at least one account", domain.ErrInvalidInput)
	}
	for i, e := range entities {
		if strings.TrimSpace(e.ID) == "" {
			return fmt.Errorf("%w: account %d has no id", domain.ErrInvalidInput, i)
		}
	}
	return nil
}
