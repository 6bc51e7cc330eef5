package domain

import (
	"fmt"
	"strings"
	"time"
)

// QueryLogEntry records one asked question. Best-effort, write-only.
type QueryLogEntry struct {
	TenantID  TenantID  `json:"tenant_id"`
	Question  string    `json:"question"`
	Public    bool      `json:"public"` // asked through a share token
	Fallback  bool      `json:"fallback"`
	CreatedAt time.Time `json:"created_at"`
}

// AnalyticsRange selects the analytics window.
type AnalyticsRange string

const (
	AnalyticsRange7d  AnalyticsRange = "7d"
	AnalyticsRange30d AnalyticsRange = "30d"
	AnalyticsRangeAll AnalyticsRange = "all"
)

// TopQuestionsLimit is the size of the top question list.
const TopQuestionsLimit = 5

// ParseAnalyticsRange parses the range query parameter. Empty means 7d.
func ParseAnalyticsRange(s string) (AnalyticsRange, error) {
	switch AnalyticsRange(s) {
	case "":
		return AnalyticsRange7d, nil
	case AnalyticsRange7d, AnalyticsRange30d, AnalyticsRangeAll:
		return AnalyticsRange(s), nil
	default:
		return "", fmt.Errorf("%w: range must be 7d, 30d or all", ErrInvalidInput)
	}
}

// Since returns the window start, or nil for all time.
func (r AnalyticsRange) Since(now time.Time) *time.Time {
	var d time.Duration
	switch r {
	case AnalyticsRange7d:
		d = 7 * 24 * time.Hour
	case AnalyticsRange30d:
		d = 30 * 24 * time.Hour
	default:
		return nil
	}
	since := now.Add(-d)
	return &since
}

// QuestionCount is one entry in the top question list.
type QuestionCount struct {
	Question string `json:"question"`
	Count    int    `json:"count"`
}

// Analytics is the aggregated usage summary for a tenant.
type Analytics struct {
	Range      AnalyticsRange  `json:"range"`
	TotalRange int             `json:"totalRange"`
	TotalAll   int             `json:"totalAll"`
	Top        []QuestionCount `json:"top"`
}

// NormalizeQuestion is the grouping key for analytics: trimmed and lowercased.
func NormalizeQuestion(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
