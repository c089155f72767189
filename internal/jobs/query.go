package jobs

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ternarybob/adscope/internal/models"
)

var separators = regexp.MustCompile(`[-_.+]+`)

// reserved Facebook path segments that never name a page
var reservedSegments = map[string]bool{
	"pages": true, "pg": true, "people": true, "groups": true, "ads": true,
	"library": true, "profile.php": true, "watch": true, "events": true,
}

// DeriveQuery turns a page URL into the search term used by the scrape
// chain. It understands vanity URLs (facebook.com/nike), numeric profiles
// (profile.php?id=123), /pages/Name/123 and Ad Library links (?q=...).
// Non-Facebook URLs fall back to the second-level domain.
func DeriveQuery(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSpace(raw)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if !strings.HasSuffix(host, "facebook.com") && !strings.HasSuffix(host, "fb.com") {
		parts := strings.Split(host, ".")
		if len(parts) >= 2 {
			return parts[len(parts)-2]
		}
		return host
	}

	if q := u.Query().Get("q"); q != "" {
		return q
	}
	if id := u.Query().Get("id"); id != "" {
		return id
	}
	if id := u.Query().Get("view_all_page_id"); id != "" {
		return id
	}

	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(segments) >= 2 && (segments[0] == "pages" || segments[0] == "people" || segments[0] == "pg") {
		return humanise(segments[1])
	}
	for _, s := range segments {
		if !reservedSegments[strings.ToLower(s)] {
			return humanise(s)
		}
	}
	return host
}

func humanise(segment string) string {
	if decoded, err := url.PathUnescape(segment); err == nil {
		segment = decoded
	}
	return strings.TrimSpace(separators.ReplaceAllString(segment, " "))
}

// dominantPageName picks the page name that most ads carry, or fallback.
func dominantPageName(ads []models.AdRecord, fallback string) string {
	counts := make(map[string]int)
	best, bestN := "", 0
	for _, ad := range ads {
		if ad.PageName == "" {
			continue
		}
		counts[ad.PageName]++
		if n := counts[ad.PageName]; n > bestN {
			best, bestN = ad.PageName, n
		}
	}
	if best == "" {
		return fallback
	}
	return best
}
