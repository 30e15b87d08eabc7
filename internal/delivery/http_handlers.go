package delivery

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"adsdash/internal/domain"
	"adsdash/internal/usecase"
	"adsdash/pkg/config"
	"adsdash/pkg/logger"

	"github.com/gin-gonic/gin"
)

// handles HTTP requests
type HTTPHandlers struct {
	insightsService *usecase.InsightsService
	cfg             *config.Config
	logger          *logger.Logger
}

// creates new HTTP handlers
func NewHTTPHandlers(insightsService *usecase.InsightsService, cfg *config.Config, logger *logger.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		insightsService: insightsService,
		cfg:             cfg,
		logger:          logger,
	}
}

type insightsRequest struct {
	AccountID string `json:"accountId"`
	Fields    string `json:"fields"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Token     string `json:"token"`
}

type batchRequest struct {
	Accounts  []domain.Entity `json:"accounts"`
	Fields    string          `json:"fields"`
	StartDate string          `json:"startDate"`
	EndDate   string          `json:"endDate"`
	Token     string          `json:"token"`
}

// GetInsights relays one account's rows together with their aggregate
func (h *HTTPHandlers) GetInsights(c *gin.Context) {
	var req insightsRequest
	if !h.bind(c, &req) {
		return
	}

	query := h.query(req.Fields, req.StartDate, req.EndDate, req.Token, false)
	points, err := h.insightsService.FetchInsights(c.Request.Context(), req.AccountID, query)
	if err != nil {
		h.respondError(c, err)
		return
	}

	aggregate := domain.Aggregate(points)
	if points == nil {
		points = []domain.DailyDataPoint{}
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       points,
		"aggregate":  aggregate,
		"kpis":       aggregate.KPIs(),
		"request_id": c.GetString("request_id"),
	})
}

// GetInsightsBatch fetches several accounts, one result per account
func (h *HTTPHandlers) GetInsightsBatch(c *gin.Context) {
	var req batchRequest
	if !h.bind(c, &req) {
		return
	}

	query := h.query(req.Fields, req.StartDate, req.EndDate, req.Token, false)
	results, err := h.insightsService.FetchInsightsBatch(c.Request.Context(), req.Accounts, query)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results":    results,
		"request_id": c.GetString("request_id"),
	})
}

// GetCampaigns returns the active campaigns of an account that have data
func (h *HTTPHandlers) GetCampaigns(c *gin.Context) {
	var req insightsRequest
	if !h.bind(c, &req) {
		return
	}

	query := h.query(req.Fields, req.StartDate, req.EndDate, req.Token, false)
	campaigns, err := h.insightsService.BuildCampaignDashboard(c.Request.Context(), req.AccountID, query)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"campaigns":  campaigns,
		"request_id": c.GetString("request_id"),
	})
}

// GetDashboard returns per-account aggregates, KPIs and totals. Accounts
// default to the configured roster and fields to the configured list.
func (h *HTTPHandlers) GetDashboard(c *gin.Context) {
	var req batchRequest
	if !h.bind(c, &req) {
		return
	}

	accounts := req.Accounts
	if len(accounts) == 0 {
		accounts = h.cfg.Roster.Entities()
	}

	query := h.query(req.Fields, req.StartDate, req.EndDate, req.Token, true)
	dashboard, err := h.insightsService.BuildDashboard(c.Request.Context(), accounts, query)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accounts":   dashboard.Accounts,
		"totals":     dashboard.Totals,
		"request_id": c.GetString("request_id"),
	})
}

// ListAccounts returns the configured roster
func (h *HTTPHandlers) ListAccounts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"accounts":   h.cfg.Roster.Entities(),
		"request_id": c.GetString("request_id"),
	})
}

// HealthCheck returns the health status of the service
func (h *HTTPHandlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"service":    "adsdash",
		"version":    h.cfg.Meta.APIVersion,
		"request_id": c.GetString("request_id"),
	})
}

func (h *HTTPHandlers) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Invalid request body",
			"message":    err.Error(),
			"request_id": c.GetString("request_id"),
		})
		return false
	}
	return true
}

// query builds the upstream query. The configured token is the fallback
// credential; the configured field list is used only when defaultFields is
// set.
func (h *HTTPHandlers) query(fields, since, until, token string, defaultFields bool) domain.InsightsQuery {
	if strings.TrimSpace(token) == "" {
		token = h.cfg.Meta.AccessToken
	}
	if defaultFields && strings.TrimSpace(fields) == "" {
		fields = h.cfg.Meta.Fields
	}
	return domain.InsightsQuery{
		Fields: fields,
		Since:  strings.TrimSpace(since),
		Until:  strings.TrimSpace(until),
		Token:  strings.TrimSpace(token),
	}
}

func (h *HTTPHandlers) respondError(c *gin.Context, err error) {
	requestID := c.GetString("request_id")

	var upstream *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Invalid parameters",
			"message":    err.Error(),
			"request_id": requestID,
		})
	case errors.Is(err, domain.ErrMissingCredential):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":      "Access token not provided",
			"message":    err.Error(),
			"request_id": requestID,
		})
	case errors.As(err, &upstream):
		status := upstream.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{
			"error":      upstream.Message,
			"message":    err.Error(),
			"request_id": requestID,
		})
	default:
		h.logger.WithContext(c.Request.Context()).WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Internal server error",
			"message":    err.Error(),
			"request_id": requestID,
		})
	}
}
