package report

import (
	"fmt"
	"strings"

	"github.com/ternarybob/adscope/internal/models"
)

const maxAdsPerPage = 10

// Markdown builds the markdown report; the html and pdf renderers start from it
func Markdown(workflow *models.Workflow) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Competitor Ad Report\n\n")
	fmt.Fprintf(&sb, "**Workflow:** %s  \n", workflow.ID)
	fmt.Fprintf(&sb, "**Status:** %s  \n", workflow.Status)
	fmt.Fprintf(&sb, "**Created:** %s  \n", workflow.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	if workflow.CompletedAt != nil {
		fmt.Fprintf(&sb, "**Completed:** %s  \n", workflow.CompletedAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	fmt.Fprintf(&sb, "**AI credits used:** %d\n\n", workflow.CreditsUsed)

	sb.WriteString("## Pages\n\n")
	sb.WriteString("| Role | Page | Status | Ads | Provider |\n")
	sb.WriteString("|------|------|--------|-----|----------|\n")
	for _, page := range workflow.Pages {
		name, ads, provider := page.URL, 0, "-"
		if page.Data != nil {
			if page.Data.PageName != "" {
				name = page.Data.PageName
			}
			ads = page.Data.AdsFound
			provider = page.Data.ProviderUsed
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %d | %s |\n", page.Role, cell(name), page.Status, ads, provider)
	}
	sb.WriteString("\n")

	writeAnalysis(&sb, workflow.Analysis)

	for _, page := range workflow.Pages {
		if page.Data == nil || len(page.Data.Ads) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "## Ads: %s\n\n", page.Data.PageName)
		for i, ad := range page.Data.Ads {
			if i == maxAdsPerPage {
				fmt.Fprintf(&sb, "\n_%d more ads not shown._\n", len(page.Data.Ads)-maxAdsPerPage)
				break
			}
			fmt.Fprintf(&sb, "- %s\n", adLine(ad))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeAnalysis(sb *strings.Builder, task models.AnalysisTask) {
	sb.WriteString("## Analysis\n\n")
	switch {
	case task.Status == models.TaskStatusFailed:
		fmt.Fprintf(sb, "Analysis failed: %s\n\n", task.Error)
		return
	case task.Data == nil:
		sb.WriteString("Analysis pending.\n\n")
		return
	}

	data := task.Data
	sb.WriteString(data.Summary)
	sb.WriteString("\n\n")
	if len(data.Insights) > 0 {
		sb.WriteString("### Insights\n\n")
		for _, item := range data.Insights {
			fmt.Fprintf(sb, "- %s\n", item)
		}
		sb.WriteString("\n")
	}
	if len(data.Recommendations) > 0 {
		sb.WriteString("### Recommendations\n\n")
		for _, item := range data.Recommendations {
			fmt.Fprintf(sb, "- %s\n", item)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(sb, "_Generated by %s at %s._\n\n", data.AIProvider, data.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"))
}

func adLine(ad models.AdRecord) string {
	var parts []string
	if ad.Headline != "" {
		parts = append(parts, "**"+oneLine(ad.Headline)+"**")
	}
	if ad.AdText != "" {
		parts = append(parts, oneLine(ad.AdText))
	}
	if ad.CTA != "" {
		parts = append(parts, "("+ad.CTA+")")
	}
	if ad.MediaType != "" {
		parts = append(parts, "["+ad.MediaType+"]")
	}
	if len(parts) == 0 {
		return ad.ID
	}
	return strings.Join(parts, " ")
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 200 {
		s = string(r[:200]) + "..."
	}
	return s
}

// cell escapes the table separator
func cell(s string) string {
	return strings.ReplaceAll(oneLine(s), "|", "\\|")
}
