package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"adsdash/internal/domain"
	"adsdash/internal/infrastructure"
	"adsdash/internal/usecase"
	"adsdash/pkg/config"
	"adsdash/pkg/logger"
	"adsdash/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	flagSince     string
	flagUntil     string
	flagToken     string
	flagRoster    string
	flagAccounts  []string
	flagCampaigns string
	flagJSON      bool
)

var rootCmd = &cobra.Command{
	Use:   "report",
	Short: "Print ad account insights for a period",
	Long:  "Fetch Meta Ads insights for every account of the roster and print spend, CPM, results and totals.",
	RunE:  runReport,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	now := time.Now()

	rootCmd.Flags().StringVar(&flagSince, "since", now.AddDate(0, 0, -7).Format(domain.DateLayout), "Start date (YYYY-MM-DD)")
	rootCmd.Flags().StringVar(&flagUntil, "until", now.Format(domain.DateLayout), "End date (YYYY-MM-DD)")
	rootCmd.Flags().StringVar(&flagToken, "token", "", "Access token (defaults to META_ACCESS_TOKEN)")
	rootCmd.Flags().StringVar(&flagRoster, "roster", "", "Roster TOML file (defaults to ROSTER_PATH)")
	rootCmd.Flags().StringSliceVarP(&flagAccounts, "account", "a", nil, "Account as id or id=name; repeatable, replaces the roster")
	rootCmd.Flags().StringVar(&flagCampaigns, "campaigns", "", "Show the active campaigns of this account instead")
	rootCmd.Flags().BoolVar(&flagJSON, "json", false, "Print JSON instead of a table")
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if flagRoster != "" {
		accounts, err := config.LoadRoster(flagRoster)
		if err != nil {
			return err
		}
		cfg.Roster.Accounts = accounts
	}

	token := flagToken
	if token == "" {
		token = cfg.Meta.AccessToken
	}

	// stdout carries the report; keep logs quiet unless asked for
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	log := logger.NewWithOutput(level, os.Stderr)

	m := metrics.New(prometheus.NewRegistry())
	client := infrastructure.NewGraphClient(cfg.Meta, cfg.Fetch, log, m)
	service := usecase.NewInsightsService(client, log, m, cfg.Fetch.WorkerPoolSize)

	query := domain.InsightsQuery{
		Fields: cfg.Meta.Fields,
		Since:  flagSince,
		Until:  flagUntil,
		Token:  token,
	}
	ctx := context.Background()
	out := cmd.OutOrStdout()

	if flagCampaigns != "" {
		campaigns, err := service.BuildCampaignDashboard(ctx, flagCampaigns, query)
		if err != nil {
			return err
		}
		if flagJSON {
			return writeJSON(out, campaigns)
		}
		return renderCampaigns(out, campaigns)
	}

	accounts := parseAccounts(flagAccounts)
	if len(accounts) == 0 {
		accounts = cfg.Roster.Entities()
	}

	dashboard, err := service.BuildDashboard(ctx, accounts, query)
	if err != nil {
		return err
	}
	if flagJSON {
		return writeJSON(out, dashboard)
	}
	return renderDashboard(out, dashboard)
}

// parseAccounts reads "id" or "id=name" values.
func parseAccounts(values []string) []domain.Entity {
	entities := make([]domain.Entity, 0, len(values))
	for _, v := range values {
		id, name, found := strings.Cut(v, "=")
		id = strings.TrimSpace(id)
		if !found || strings.TrimSpace(name) == "" {
			name = id
		}
		entities = append(entities, domain.Entity{ID: id, Name: strings.TrimSpace(name)})
	}
	return entities
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
