package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/synaptica-ai/noshow/pkg/common/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Width(14)

	rateStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("9"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	insightStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(lipgloss.Color("11"))
)

func renderReport(w io.Writer, summary models.DatasetSummary, result models.ViewResult) {
	fmt.Fprintf(w, "%s %s (%d records, %d invalid rows)\n",
		titleStyle.Render("Dataset"), summary.Source, summary.Records, summary.Report.InvalidRows)
	fmt.Fprintf(w, "%s age=%s sms=%s week=%s\n",
		labelStyle.Render("filters"), result.Filters.AgeGroup, result.Filters.SMSReceived, result.Filters.Week)

	if result.KPIs != nil {
		fmt.Fprintln(w, titleStyle.Render("KPIs"))
		renderKPIs(w, "selection", *result.KPIs)
		if result.Overall != nil {
			renderKPIs(w, "overall", *result.Overall)
		}
	}

	renderBuckets(w, "By age group", result.AgeGroups)
	renderBuckets(w, "By SMS reminder", result.Reminders)
	renderBuckets(w, "By week", result.Weeks)
	if result.Waiting != nil {
		renderBuckets(w, "By waiting time", result.Waiting.Bins)
		fmt.Fprintf(w, "%s %d valid, %d excluded\n",
			labelStyle.Render("waiting"), result.Waiting.ValidCount, result.Waiting.ExcludedCount)
	}

	if result.Outcomes != nil {
		fmt.Fprintln(w, titleStyle.Render("Waiting days by outcome"))
		fmt.Fprintf(w, "%s n=%d mean=%.1f median=%.1f\n", labelStyle.Render("attended"),
			result.Outcomes.Show.Count, result.Outcomes.Show.Mean, result.Outcomes.Show.Median)
		fmt.Fprintf(w, "%s n=%d mean=%.1f median=%.1f\n", labelStyle.Render("no-show"),
			result.Outcomes.NoShow.Count, result.Outcomes.NoShow.Mean, result.Outcomes.NoShow.Median)
	}

	if result.Insights != nil {
		fmt.Fprintln(w, titleStyle.Render("Insights"))
		if len(result.Messages) == 0 {
			fmt.Fprintln(w, insightStyle.Render("not enough data"))
		}
		for _, msg := range result.Messages {
			fmt.Fprintln(w, insightStyle.Render("- "+msg))
		}
	}
}

func renderKPIs(w io.Writer, label string, k models.KPISummary) {
	fmt.Fprintf(w, "%s %6d total %6d no-show  %s\n",
		labelStyle.Render(label), k.Total, k.NoShows, rateStyle.Render(fmt.Sprintf("%.1f%%", k.NoShowRate)))
}

func renderBuckets(w io.Writer, title string, buckets []models.Bucket) {
	if buckets == nil {
		return
	}
	fmt.Fprintln(w, titleStyle.Render(title))
	for _, b := range buckets {
		bar := strings.Repeat("#", int(b.Rate/2))
		fmt.Fprintf(w, "%s %6d %6.1f%% %s\n", labelStyle.Render(b.Key), b.Total, b.Rate, bar)
	}
}
