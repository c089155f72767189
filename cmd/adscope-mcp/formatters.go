package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/adscope/internal/models"
	"github.com/ternarybob/adscope/internal/services/ads"
)

// formatJob formats job status as markdown
func formatJob(job *models.Job) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Job %s\n\n", job.ID))
	sb.WriteString(fmt.Sprintf("**Status:** %s\n", job.Status))
	sb.WriteString(fmt.Sprintf("**Type:** %s\n", job.Type))
	sb.WriteString(fmt.Sprintf("**Query:** %s (limit %d, region %s)\n", job.Params.Query, job.Params.Limit, job.Params.Region))
	sb.WriteString(fmt.Sprintf("**Progress:** %.0f%% - %s\n", job.Progress.Percentage, job.Progress.Message))
	if job.ProviderUsed != "" {
		sb.WriteString(fmt.Sprintf("**Provider:** %s\n", job.ProviderUsed))
	}
	sb.WriteString(fmt.Sprintf("**Ads:** %d\n", len(job.Result)))
	sb.WriteString(fmt.Sprintf("**Created:** %s\n", job.CreatedAt.Format(time.RFC3339)))
	if job.CompletedAt != nil {
		sb.WriteString(fmt.Sprintf("**Completed:** %s\n", job.CompletedAt.Format(time.RFC3339)))
	}
	if job.Error != "" {
		sb.WriteString(fmt.Sprintf("\n**Error:** %s\n", job.Error))
	}
	return sb.String()
}

// formatResultsPage formats one page of ads as markdown
func formatResultsPage(page *ads.ResultsPage) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Ads for %s (page %d of %d, %d total)\n\n", page.JobID, page.Page, page.TotalPages, page.Total))

	if len(page.Ads) == 0 {
		sb.WriteString("No ads on this page.\n")
		return sb.String()
	}

	for i, ad := range page.Ads {
		n := (page.Page-1)*page.PageSize + i + 1
		sb.WriteString(formatAd(n, ad))
	}
	return sb.String()
}

func formatAd(n int, ad models.AdRecord) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("### %d. %s\n", n, ad.PageName))
	if ad.Headline != "" {
		sb.WriteString(fmt.Sprintf("**Headline:** %s\n", ad.Headline))
	}
	if ad.MediaType != "" {
		sb.WriteString(fmt.Sprintf("**Media:** %s\n", ad.MediaType))
	}
	if ad.CTA != "" {
		sb.WriteString(fmt.Sprintf("**CTA:** %s\n", ad.CTA))
	}
	sb.WriteString(fmt.Sprintf("**Active:** %t\n\n", ad.Active))

	// Text preview (first 300 chars)
	text := []rune(ad.AdText)
	if len(text) > 300 {
		text = append(text[:300], []rune("...")...)
	}
	sb.WriteString(string(text))
	sb.WriteString("\n\n---\n\n")
	return sb.String()
}

// formatWorkflow formats workflow status as markdown
func formatWorkflow(workflow *models.Workflow) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Workflow %s\n\n", workflow.ID))
	sb.WriteString(fmt.Sprintf("**Status:** %s\n", workflow.Status))
	sb.WriteString(fmt.Sprintf("**Progress:** step %d of %d (%.0f%%) - %s\n",
		workflow.Progress.CurrentStep, workflow.Progress.TotalSteps, workflow.Progress.Percentage, workflow.Progress.Message))
	sb.WriteString(fmt.Sprintf("**Credits used:** %d\n\n", workflow.CreditsUsed))

	sb.WriteString("## Pages\n\n")
	for _, page := range workflow.Pages {
		sb.WriteString(fmt.Sprintf("- **%s** %s: %s", page.Role, page.URL, page.Status))
		if page.Data != nil {
			sb.WriteString(fmt.Sprintf(" (%d ads via %s)", page.Data.AdsFound, page.Data.ProviderUsed))
		}
		if page.Error != "" {
			sb.WriteString(fmt.Sprintf(" - %s", page.Error))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\n**Analysis:** %s\n", workflow.Analysis.Status))
	if workflow.Error != "" {
		sb.WriteString(fmt.Sprintf("\n**Error:** %s\n", workflow.Error))
	}
	return sb.String()
}

// formatWorkflowResults formats the analysis of a workflow as markdown
func formatWorkflowResults(results *ads.WorkflowResults) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Competitor analysis %s\n\n", results.WorkflowID))
	sb.WriteString(fmt.Sprintf("**Status:** %s\n", results.Status))
	sb.WriteString(fmt.Sprintf("**Credits used:** %d\n\n", results.CreditsUsed))

	sb.WriteString("## Pages\n\n")
	for _, page := range results.Pages {
		found := 0
		if page.Data != nil {
			found = page.Data.AdsFound
		}
		sb.WriteString(fmt.Sprintf("- **%s** %s: %s, %d ads\n", page.Role, page.URL, page.Status, found))
	}

	analysis := results.Analysis
	sb.WriteString("\n## Analysis\n\n")
	if analysis.Data == nil {
		if analysis.Error != "" {
			sb.WriteString(fmt.Sprintf("Analysis %s: %s\n", analysis.Status, analysis.Error))
		} else {
			sb.WriteString(fmt.Sprintf("Analysis %s.\n", analysis.Status))
		}
		return sb.String()
	}

	sb.WriteString(analysis.Data.Summary)
	sb.WriteString("\n\n### Insights\n\n")
	for _, insight := range analysis.Data.Insights {
		sb.WriteString(fmt.Sprintf("- %s\n", insight))
	}
	sb.WriteString("\n### Recommendations\n\n")
	for _, rec := range analysis.Data.Recommendations {
		sb.WriteString(fmt.Sprintf("- %s\n", rec))
	}
	sb.WriteString(fmt.Sprintf("\n_Generated by %s_\n", analysis.Data.AIProvider))
	return sb.String()
}

func formatChatReply(reply *models.ChatReply) string {
	return fmt.Sprintf("%s\n\n_Answered by %s_\n", reply.Text, reply.AIProvider)
}
