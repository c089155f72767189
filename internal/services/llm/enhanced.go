// -----------------------------------------------------------------------
// Enhanced fallback - rule-based analysis built from aggregate statistics
// -----------------------------------------------------------------------

package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/ternarybob/adscope/internal/models"
)

var stopwords = map[string]bool{
	"about": true, "after": true, "again": true, "also": true, "been": true, "before": true,
	"being": true, "both": true, "could": true, "does": true, "each": true, "every": true,
	"from": true, "have": true, "here": true, "into": true, "just": true, "like": true,
	"make": true, "more": true, "most": true, "much": true, "only": true, "other": true,
	"our": true, "over": true, "same": true, "should": true, "some": true, "such": true,
	"than": true, "that": true, "their": true, "them": true, "then": true, "there": true,
	"these": true, "they": true, "this": true, "those": true, "through": true, "very": true,
	"want": true, "what": true, "when": true, "where": true, "which": true, "while": true,
	"will": true, "with": true, "would": true, "your": true, "you're": true, "we're": true,
	"today": true, "now": true, "here's": true, "it's": true, "don't": true,
}

// pageStats is the per-page aggregate the rules work from
type pageStats struct {
	role      string
	name      string
	ads       int
	active    int
	media     map[string]int
	ctas      map[string]int
	topCTA    string
	videoRate float64
}

func collectStats(page models.PageAggregate) pageStats {
	s := pageStats{
		role:  page.Role,
		name:  orDefault(page.PageName, page.Role),
		ads:   len(page.Ads),
		media: make(map[string]int),
		ctas:  make(map[string]int),
	}
	for _, ad := range page.Ads {
		if ad.Active {
			s.active++
		}
		s.media[orDefault(ad.MediaType, "unknown")]++
		if ad.CTA != "" {
			s.ctas[ad.CTA]++
		}
	}
	s.topCTA = topKey(s.ctas)
	if s.ads > 0 {
		s.videoRate = float64(s.media["video"]) / float64(s.ads)
	}
	return s
}

// EnhancedAnalysis synthesises an analysis without any model. It never
// fails and never returns empty, so it always closes the analysis chain.
type EnhancedAnalysis struct{}

func (EnhancedAnalysis) Name() string   { return ProviderEnhanced }
func (EnhancedAnalysis) Terminal() bool { return true }

func (EnhancedAnalysis) Attempt(ctx context.Context, input models.AnalysisInput) (*models.AnalysisData, error) {
	return Enhance(input), nil
}

// Enhance builds the rule-based analysis for input
func Enhance(input models.AnalysisInput) *models.AnalysisData {
	total := input.TotalAds()
	stats := make([]pageStats, 0, len(input.Pages))
	for _, page := range input.Pages {
		stats = append(stats, collectStats(page))
	}

	data := &models.AnalysisData{
		Summary:         summarise(stats, total),
		Insights:        []string{},
		Recommendations: []string{},
	}

	if total == 0 {
		data.Insights = append(data.Insights,
			fmt.Sprintf("None of the %d pages returned ads from any provider.", len(stats)))
		data.Recommendations = append(data.Recommendations,
			"Confirm the page URLs point at public Facebook pages and retry the analysis.",
			"Check provider credentials so premium sources can be used.")
		return data
	}

	for _, s := range stats {
		share := float64(s.ads) / float64(total) * 100
		line := fmt.Sprintf("%s runs %d ads (%.0f%% share of voice", s.name, s.ads, share)
		if s.ads > 0 {
			line += fmt.Sprintf(", %d active, mostly %s", s.active, topKey(s.media))
		}
		line += ")."
		data.Insights = append(data.Insights, line)
	}

	if ctaLine := ctaInsight(stats); ctaLine != "" {
		data.Insights = append(data.Insights, ctaLine)
	}
	if themes := topThemes(input, 5); len(themes) > 0 {
		data.Insights = append(data.Insights, "Recurring themes: "+strings.Join(themes, ", ")+".")
	}

	data.Recommendations = recommend(stats)
	return data
}

func summarise(stats []pageStats, total int) string {
	if total == 0 {
		return fmt.Sprintf("No ads were found across %d pages, so this analysis covers page coverage only.", len(stats))
	}

	summary := fmt.Sprintf("Analysed %d ads across %d pages.", total, len(stats))
	if own := findRole(stats, models.RoleYourPage); own != nil {
		summary += fmt.Sprintf(" %s runs %d of them.", own.name, own.ads)
	}
	if leader := leadingCompetitor(stats); leader != nil && leader.ads > 0 {
		summary += fmt.Sprintf(" The most active competitor is %s with %d ads.", leader.name, leader.ads)
	}
	return summary
}

func recommend(stats []pageStats) []string {
	var recs []string
	own := findRole(stats, models.RoleYourPage)
	leader := leadingCompetitor(stats)

	switch {
	case own == nil:
	case own.ads == 0:
		recs = append(recs, "Your page has no ads in the library. Launch a baseline campaign before optimising creative.")
	case leader != nil && leader.ads > own.ads:
		recs = append(recs, fmt.Sprintf("Increase ad volume: %s runs %d ads against your %d.", leader.name, leader.ads, own.ads))
	}

	if own != nil && own.ads > 0 {
		maxVideo := 0.0
		for _, s := range stats {
			if s.role != models.RoleYourPage && s.videoRate > maxVideo {
				maxVideo = s.videoRate
			}
		}
		if maxVideo > own.videoRate {
			recs = append(recs, fmt.Sprintf("Test more video creative: competitors reach %.0f%% video against your %.0f%%.", maxVideo*100, own.videoRate*100))
		}
		if len(own.ctas) <= 1 {
			recs = append(recs, "Vary calls to action across ads to learn which intent converts best.")
		}
		if own.active*2 < own.ads {
			recs = append(recs, "Most of your ads are inactive. Refresh creative to keep a steady presence.")
		}
	}

	if len(recs) == 0 {
		recs = append(recs, "Keep monitoring competitor activity and rerun this analysis weekly.")
	}
	return recs
}

func ctaInsight(stats []pageStats) string {
	all := make(map[string]int)
	for _, s := range stats {
		for cta, n := range s.ctas {
			all[cta] += n
		}
	}
	if top := topKey(all); top != "" {
		return fmt.Sprintf("The most common call to action is %q (%d ads).", top, all[top])
	}
	return ""
}

// topThemes returns the most frequent non-stopword terms across all ad copy
func topThemes(input models.AnalysisInput, n int) []string {
	counts := make(map[string]int)
	for _, page := range input.Pages {
		for _, ad := range page.Ads {
			seen := make(map[string]bool)
			for _, word := range strings.FieldsFunc(strings.ToLower(ad.AdText+" "+ad.Headline), func(r rune) bool {
				return !unicode.IsLetter(r) && r != '\''
			}) {
				word = strings.Trim(word, "'")
				if len(word) < 4 || stopwords[word] || seen[word] {
					continue
				}
				seen[word] = true
				counts[word]++
			}
		}
	}

	type kv struct {
		word  string
		count int
	}
	ranked := make([]kv, 0, len(counts))
	for w, c := range counts {
		if c > 1 {
			ranked = append(ranked, kv{w, c})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})

	out := make([]string, 0, n)
	for i := 0; i < len(ranked) && i < n; i++ {
		out = append(out, ranked[i].word)
	}
	return out
}

func findRole(stats []pageStats, role string) *pageStats {
	for i := range stats {
		if stats[i].role == role {
			return &stats[i]
		}
	}
	return nil
}

func leadingCompetitor(stats []pageStats) *pageStats {
	var leader *pageStats
	for i := range stats {
		if stats[i].role == models.RoleYourPage {
			continue
		}
		if leader == nil || stats[i].ads > leader.ads {
			leader = &stats[i]
		}
	}
	return leader
}

// topKey returns the highest count key, ties broken alphabetically
func topKey(m map[string]int) string {
	best, bestN := "", 0
	for k, n := range m {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return best
}

// EnhancedChat answers from the stored analysis without a model
type EnhancedChat struct{}

func (EnhancedChat) Name() string   { return ProviderEnhanced }
func (EnhancedChat) Terminal() bool { return true }

func (EnhancedChat) Attempt(ctx context.Context, input models.ChatInput) (*models.ChatReply, error) {
	analysis := input.Analysis
	if analysis.IsEmpty() && input.Context != nil {
		analysis = Enhance(*input.Context)
	}

	var sb strings.Builder
	if analysis.IsEmpty() {
		sb.WriteString("No analysis is available yet. Run a competitor workflow first, then ask again.")
		return &models.ChatReply{Text: sb.String()}, nil
	}

	question := strings.ToLower(input.Message)
	sb.WriteString(analysis.Summary)

	switch {
	case containsAny(question, "recommend", "should", "improve", "next", "do "):
		writeList(&sb, "Recommendations", analysis.Recommendations)
	case containsAny(question, "competitor", "compare", "insight", "theme", "share"):
		writeList(&sb, "Insights", analysis.Insights)
	default:
		writeList(&sb, "Insights", analysis.Insights)
		writeList(&sb, "Recommendations", analysis.Recommendations)
	}
	return &models.ChatReply{Text: sb.String()}, nil
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("\n\n")
	sb.WriteString(title)
	sb.WriteString(":")
	for _, item := range items {
		sb.WriteString("\n- ")
		sb.WriteString(item)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
