package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"schoolcal/internal/domain"
)

// Stale action-link lines injected by previous feed generations; they
// are stripped before re-decorating so links never accumulate.
var (
	strippedLinkRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i) - Link: https?://[^/\s]*\.schoology\.com/(?:assignment|event|assessment)/\d+\S*`),
		regexp.MustCompile(`(?i) - Link: https?://[^/\s]*\.schoology\.com/course/\d+/materials/discussion/(?:view/)?\d+\S*`),
		regexp.MustCompile(`(?m)^(?:📝 Mark as Done|↩️ Unmark as Done): \S+$`),
	}
)

// glyphFor is the single decoration table mapping item type and status
// to the summary prefix.
func glyphFor(typ domain.ItemType, status domain.Status) string {
	switch typ {
	case domain.TypeAssignment:
		return status.Symbol()
	case domain.TypeDiscussion:
		if status.IsDone() {
			return "✅"
		}
		return "💬"
	case domain.TypeAssessment:
		return "🧪"
	case domain.TypeEvent:
		return "🗓"
	default:
		return "🤷"
	}
}

// DecorateSummary prepends the type/status glyph to the item summary.
func DecorateSummary(item *domain.Item, status domain.Status) {
	item.Summary = glyphFor(item.Type, status) + " " + item.Summary
}

// RewriteDescription strips previously injected action links, prepends a
// formatted due line, and appends a fresh mark/unmark link scoped to the
// item's occurrence token when one exists.
func RewriteDescription(item *domain.Item, status domain.Status, due time.Time, token, baseURL string) {
	desc := item.Description
	for _, re := range strippedLinkRes {
		desc = re.ReplaceAllString(desc, "")
	}

	if !due.IsZero() {
		desc = due.Format("📅 Mon, Jan 2 at 3:04 PM") + "\n\n" + desc
	}

	if item.ID != "" && (item.Type == domain.TypeAssignment || item.Type == domain.TypeDiscussion) {
		desc += "\n\n" + actionLink(item.ID, status, token, baseURL)
	}

	item.Description = collapseBlankRuns(desc)
}

// collapseBlankRuns squeezes stacked blank lines left behind when the
// text around a stripped or empty segment is joined back together.
func collapseBlankRuns(desc string) string {
	for strings.Contains(desc, "\n\n\n\n") {
		desc = strings.ReplaceAll(desc, "\n\n\n\n", "\n\n")
	}
	return desc
}

func actionLink(itemID string, status domain.Status, token, baseURL string) string {
	verb, label, icon := "mark-done", "Mark as Done", "📝"
	if status.IsDone() {
		verb, label, icon = "unmark-done", "Unmark as Done", "↩️"
	}
	u := fmt.Sprintf("%s/api/%s/%s", baseURL, verb, itemID)
	if token != "" {
		u += "?occ=" + token
	}
	return fmt.Sprintf("%s %s: %s", icon, label, u)
}
