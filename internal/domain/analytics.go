package domain

// CategoryCount is one bucket of a categorization breakdown.
type CategoryCount struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
	Count int    `json:"count"`
}

// CategorizationAnalytics summarises how resolved tickets were classified.
type CategorizationAnalytics struct {
	Total           int             `json:"total"`
	Categorized     int             `json:"categorized"`
	Uncategorized   int             `json:"uncategorized"`
	ByRootCause     []CategoryCount `json:"by_root_cause"`
	ByIssueCategory []CategoryCount `json:"by_issue_category"`
	ByServiceItem   []CategoryCount `json:"by_service_item"`
}
