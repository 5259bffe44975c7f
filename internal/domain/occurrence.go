package domain

import "time"

// Occurrence tokens identify one specific local date/time instance of a
// (possibly recurring) item. Tokens are minute precision everywhere; a
// token computed twice for the same physical instant is identical no
// matter what offset the input carried.

const occurrenceTokenLayout = "20060102T1504"

// OccurrenceToken returns the token for a due time, or "" when due is
// absent. All-day items should pass midnight local on their date.
func OccurrenceToken(due time.Time, loc *time.Location) string {
	if due.IsZero() {
		return ""
	}
	return due.In(loc).Format(occurrenceTokenLayout)
}

// NormalizeOccurrenceToken truncates tokens written by older builds at
// second precision down to minute precision.
func NormalizeOccurrenceToken(token string) string {
	if len(token) > len(occurrenceTokenLayout) {
		return token[:len(occurrenceTokenLayout)]
	}
	return token
}

// ManualMarkKey scopes a manual "done" mark to one occurrence of an item.
// Marks created before occurrence scoping existed have no token and key
// on the bare item id; both forms must keep working.
func ManualMarkKey(itemID, token string) string {
	if token == "" {
		return itemID
	}
	return itemID + "|" + token
}
