package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"adsdash/internal/domain"
	"adsdash/pkg/config"
	"adsdash/pkg/logger"
	"adsdash/pkg/metrics"

	"golang.org/x/time/rate"
)

const maxBodySize = 10 << 20

// implements domain.InsightsGateway against the Meta Graph API
type GraphClient struct {
	client        *http.Client
	baseURL       string
	timeIncrement string
	campaignLimit int
	logger        *logger.Logger
	metrics       *metrics.Metrics
	rateLimiter   *rate.Limiter
}

type graphErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type insightsResponse struct {
	Data []domain.DailyDataPoint `json:"data"`
}

type campaignsResponse struct {
	Data []domain.Campaign `json:"data"`
}

// creates a new Graph API client
func NewGraphClient(meta config.MetaConfig, fetch config.FetchConfig, logger *logger.Logger, metrics *metrics.Metrics) *GraphClient {
	limit := rate.Inf
	burst := 1
	if fetch.RateLimitPerSecond > 0 {
		limit = rate.Limit(fetch.RateLimitPerSecond)
		burst = fetch.RateLimitPerSecond
	}

	return &GraphClient{
		client: &http.Client{
			Timeout: fetch.RequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:       meta.BaseURL + "/" + meta.APIVersion,
		timeIncrement: meta.TimeIncrement,
		campaignLimit: meta.CampaignLimit,
		logger:        logger,
		metrics:       metrics,
		rateLimiter:   rate.NewLimiter(limit, burst),
	}
}

// fetches insight rows for an account or campaign
func (c *GraphClient) FetchInsights(ctx context.Context, entityID string, query domain.InsightsQuery) ([]domain.DailyDataPoint, error) {
	timeRange, err := json.Marshal(struct {
		Since string `json:"since"`
		Until string `json:"until"`
	}{query.Since, query.Until})
	if err != nil {
		return nil, fmt.Errorf("failed to encode time range: %w", err)
	}

	params := url.Values{}
	params.Set("fields", query.Fields)
	params.Set("time_range", string(timeRange))
	params.Set("access_token", query.Token)
	if c.timeIncrement != "" {
		params.Set("time_increment", c.timeIncrement)
	}

	body, err := c.get(ctx, "insights", url.PathEscape(entityID)+"/insights", params)
	if err != nil {
		return nil, err
	}

	var resp insightsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.metrics.RecordExternalAPIFailure("insights", "json_parse")
		return nil, &domain.UpstreamError{Status: http.StatusBadGateway, Message: "invalid insights response"}
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"entity_id": entityID,
		"rows":      len(resp.Data),
	}).Debug("Fetched insights")

	return resp.Data, nil
}

// lists the campaigns of an ad account
func (c *GraphClient) FetchCampaigns(ctx context.Context, accountID, token string) ([]domain.Campaign, error) {
	params := url.Values{}
	params.Set("fields", "id,name,status")
	params.Set("limit", strconv.Itoa(c.campaignLimit))
	params.Set("access_token", token)

	body, err := c.get(ctx, "campaigns", url.PathEscape(accountID)+"/campaigns", params)
	if err != nil {
		return nil, err
	}

	var resp campaignsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.metrics.RecordExternalAPIFailure("campaigns", "json_parse")
		return nil, &domain.UpstreamError{Status: http.StatusBadGateway, Message: "invalid campaigns response"}
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"account_id": accountID,
		"campaigns":  len(resp.Data),
	}).Debug("Fetched campaigns")

	return resp.Data, nil
}

// performs a GET and returns the body of a 2xx response. Every failure is
// an *domain.UpstreamError; messages never include the request URL since
// it carries the access token.
func (c *GraphClient) get(ctx context.Context, api, path string, params url.Values) ([]byte, error) {
	start := time.Now()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.metrics.RecordExternalAPIFailure(api, "rate_limit")
		return nil, &domain.UpstreamError{Message: fmt.Sprintf("rate limiter: %v", err)}
	}

	endpoint := c.baseURL + "/" + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.metrics.RecordExternalAPIFailure(api, "request_creation")
		return nil, &domain.UpstreamError{Message: "failed to create request"}
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.RecordExternalAPIFailure(api, "network_error")
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, &domain.UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	duration := time.Since(start)
	if err != nil {
		c.metrics.RecordExternalAPIFailure(api, "read_body")
		return nil, &domain.UpstreamError{Status: resp.StatusCode, Message: "failed to read response body"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.RecordExternalAPICall(api, fmt.Sprintf("error_%d", resp.StatusCode), duration)
		return nil, &domain.UpstreamError{Status: resp.StatusCode, Message: upstreamMessage(resp.StatusCode, body)}
	}

	c.metrics.RecordExternalAPICall(api, "success", duration)
	return body, nil
}

// extracts error.message from a Graph API error body
func upstreamMessage(status int, body []byte) string {
	var graphErr graphErrorResponse
	if err := json.Unmarshal(body, &graphErr); err == nil && graphErr.Error.Message != "" {
		return graphErr.Error.Message
	}
	return http.StatusText(status)
}
