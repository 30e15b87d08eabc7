package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"adsdash/internal/domain"
)

func renderDashboard(w io.Writer, d domain.Dashboard) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "ACCOUNT\tSPEND\tCPM\tREACH\tOUTBOUND\tCTR\tRESULTS\tCOST/RESULT\t")
	for _, a := range d.Accounts {
		if a.Data == nil {
			reason := a.Error
			if reason == "" {
				reason = a.Message
			}
			fmt.Fprintf(tw, "%s\t%s\t\t\t\t\t\t\t\n", a.Name, reason)
			continue
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%d\t%d\t%.2f%%\t%d\t%s\t\n",
			a.Name,
			a.Data.Spend,
			formatOptional(a.KPIs.CPM),
			a.Data.Reach,
			a.Data.OutboundClicks,
			a.Data.CTR,
			a.KPIs.ResultCount,
			formatOptional(a.KPIs.CostPerResult),
		)
	}

	t := d.Totals
	fmt.Fprintf(tw, "TOTAL (%d)\t%.2f\t\t%d\t\t\t%d\t%s\t\n",
		t.Entities, t.Spend, t.Reach, t.ResultCount, formatOptional(t.CostPerResult))

	return tw.Flush()
}

func renderCampaigns(w io.Writer, campaigns []domain.CampaignView) error {
	if len(campaigns) == 0 {
		_, err := fmt.Fprintln(w, "No active campaigns with data in this period")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "CAMPAIGN\tSPEND\tCPM\tREACH\tOUTBOUND\tCTR\tRESULTS\tCOST/RESULT\t")
	for _, c := range campaigns {
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%d\t%d\t%.2f%%\t%d\t%s\t\n",
			c.Name,
			c.Aggregate.Spend,
			formatOptional(c.KPIs.CPM),
			c.Aggregate.Reach,
			c.Aggregate.OutboundClicks,
			c.Aggregate.CTR,
			c.KPIs.ResultCount,
			formatOptional(c.KPIs.CostPerResult),
		)
	}

	return tw.Flush()
}

func formatOptional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}
