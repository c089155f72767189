package scrapers

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/adscope/internal/models"
)

var (
	libraryIDPattern = regexp.MustCompile(`Library ID:?\s*(\d{6,})`)
	startedPattern   = regexp.MustCompile(`Started running on ([A-Z][a-z]{2} \d{1,2}, \d{4})`)
	imagePattern     = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
)

var ctaLabels = []string{
	"Learn More", "Shop Now", "Sign Up", "Download", "Book Now", "Contact Us",
	"Get Offer", "Subscribe", "Apply Now", "Watch More", "Send Message",
	"Order Now", "Get Quote", "Install Now", "Donate Now", "Get Directions",
}

const cardSelector = `[data-testid="ad-card"], [data-ad-id], div[role="article"]`

// ExtractAds turns a rendered Ad Library page into ad records.
// Structured ad cards are preferred; otherwise the page is converted to
// markdown and split on "Library ID" markers.
func ExtractAds(html, pageURL string) ([]models.AdRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	ads := extractCards(doc)
	if len(ads) > 0 {
		return ads, nil
	}

	converter := md.NewConverter(baseOf(pageURL), true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return nil, fmt.Errorf("convert html to markdown: %w", err)
	}
	return extractFromMarkdown(markdown), nil
}

func extractCards(doc *goquery.Document) []models.AdRecord {
	var ads []models.AdRecord
	seen := make(map[string]bool)

	doc.Find(cardSelector).Each(func(i int, card *goquery.Selection) {
		// Nested matches describe the same ad
		if card.ParentsFiltered(cardSelector).Length() > 0 {
			return
		}

		text := collapse(card.Text())
		id, _ := card.Attr("data-ad-id")
		if id == "" {
			if m := libraryIDPattern.FindStringSubmatch(text); m != nil {
				id = m[1]
			}
		}
		if id == "" || seen[id] {
			return
		}
		seen[id] = true

		ad := models.AdRecord{
			ID:          id,
			PageName:    firstText(card, `[data-testid="page-name"]`, "a"),
			AdText:      firstText(card, `[data-testid="ad-text"]`),
			CTA:         firstText(card, `[data-testid="cta"]`),
			MediaType:   cardMediaType(card),
			Active:      strings.Contains(text, "Active") && !strings.Contains(text, "Inactive"),
			SnapshotURL: "https://www.facebook.com/ads/library/?id=" + id,
			Platforms:   []string{"facebook"},
		}
		if href, ok := card.Find(`a[data-testid="landing"]`).Attr("href"); ok {
			ad.LandingURL = href
		}
		if ad.AdText == "" {
			ad.AdText = longestText(card)
		}
		if ad.CTA == "" {
			ad.CTA = findCTA(text)
		}
		ad.StartDate = parseStarted(text)
		ads = append(ads, ad)
	})

	return ads
}

func extractFromMarkdown(markdown string) []models.AdRecord {
	matches := libraryIDPattern.FindAllStringSubmatchIndex(markdown, -1)
	ads := make([]models.AdRecord, 0, len(matches))
	seen := make(map[string]bool)

	for i, m := range matches {
		end := len(markdown)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		chunk := markdown[m[0]:end]
		id := markdown[m[2]:m[3]]
		if seen[id] {
			continue
		}
		seen[id] = true

		images := len(imagePattern.FindAllString(chunk, -1))
		mediaType := "text"
		switch {
		case images > 1:
			mediaType = "carousel"
		case images == 1:
			mediaType = "image"
		}

		ads = append(ads, models.AdRecord{
			ID:          id,
			PageName:    pageNameFromChunk(chunk),
			AdText:      bodyFromChunk(chunk),
			CTA:         findCTA(chunk),
			MediaType:   mediaType,
			Active:      strings.Contains(chunk, "Active") && !strings.Contains(chunk, "Inactive"),
			StartDate:   parseStarted(chunk),
			SnapshotURL: "https://www.facebook.com/ads/library/?id=" + id,
			Platforms:   []string{"facebook"},
		})
	}

	return ads
}

func pageNameFromChunk(chunk string) string {
	lines := chunkLines(chunk)
	for i, line := range lines {
		if strings.EqualFold(line, "Sponsored") && i > 0 {
			return stripMarkdown(lines[i-1])
		}
	}
	return ""
}

func bodyFromChunk(chunk string) string {
	best := ""
	for _, line := range chunkLines(chunk) {
		if libraryIDPattern.MatchString(line) || startedPattern.MatchString(line) || imagePattern.MatchString(line) {
			continue
		}
		line = stripMarkdown(line)
		if len(line) > len(best) {
			best = line
		}
	}
	return best
}

func chunkLines(chunk string) []string {
	var out []string
	for _, line := range strings.Split(chunk, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func stripMarkdown(s string) string {
	s = strings.Trim(s, "*_#> ")
	if strings.HasPrefix(s, "[") {
		if end := strings.Index(s, "]("); end > 0 {
			s = s[1:end]
		}
	}
	return strings.TrimSpace(s)
}

func firstText(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if t := collapse(s.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

func longestText(card *goquery.Selection) string {
	best := ""
	card.Find("div, span, p").Each(func(i int, s *goquery.Selection) {
		if s.Children().Length() > 0 {
			return
		}
		t := collapse(s.Text())
		if libraryIDPattern.MatchString(t) || startedPattern.MatchString(t) {
			return
		}
		if len(t) > len(best) {
			best = t
		}
	})
	return best
}

func cardMediaType(card *goquery.Selection) string {
	if card.Find("video").Length() > 0 {
		return "video"
	}
	switch n := card.Find("img").Length(); {
	case n > 2:
		// page avatar plus several creatives
		return "carousel"
	case n > 0:
		return "image"
	}
	return "text"
}

func findCTA(text string) string {
	for _, label := range ctaLabels {
		if strings.Contains(text, label) {
			return label
		}
	}
	return ""
}

func parseStarted(text string) time.Time {
	if m := startedPattern.FindStringSubmatch(text); m != nil {
		if t, err := time.Parse("Jan 2, 2006", m[1]); err == nil {
			return t
		}
	}
	return time.Time{}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func baseOf(pageURL string) string {
	if i := strings.Index(pageURL, "://"); i >= 0 {
		if j := strings.Index(pageURL[i+3:], "/"); j >= 0 {
			return pageURL[:i+3+j]
		}
	}
	return pageURL
}
