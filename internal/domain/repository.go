package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// interface for the upstream insights API
type InsightsGateway interface {
	FetchInsights(ctx context.Context, entityID string, query InsightsQuery) ([]DailyDataPoint, error)
	FetchCampaigns(ctx context.Context, accountID, token string) ([]Campaign, error)
}

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrMissingCredential = errors.New("access token not provided")
)

// UpstreamError is a failed call to the insights API.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upstream request failed: %s", e.Message)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Message)
}

const DateLayout = "2006-01-02"

// InsightsQuery holds the parameters shared by every request of a batch.
type InsightsQuery struct {
	Fields string
	Since  string
	Until  string
	Token  string
}

// Validate reports missing or malformed parameters. Credential problems are
// reported separately as ErrMissingCredential.
func (q InsightsQuery) Validate() error {
	var missing []string
	if strings.TrimSpace(q.Fields) == "" {
		missing = append(missing, "fields")
	}
	if q.Since == "" {
		missing = append(missing, "startDate")
	}
	if q.Until == "" {
		missing = append(missing, "endDate")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: required parameters: %s", ErrInvalidInput, strings.Join(missing, ", "))
	}

	since, err := time.Parse(DateLayout, q.Since)
	if err != nil {
		return fmt.Errorf("%w: startDate must be in YYYY-MM-DD format", ErrInvalidInput)
	}
	until, err := time.Parse(DateLayout, q.Until)
	if err != nil {
		return fmt.Errorf("%w: endDate must be in YYYY-MM-DD format", ErrInvalidInput)
	}
	if until.Before(since) {
		return fmt.Errorf("%w: endDate is before startDate", ErrInvalidInput)
	}

	if strings.TrimSpace(q.Token) == "" {
		return ErrMissingCredential
	}
	return nil
}
