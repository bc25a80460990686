package types

import "time"

// Session is an anonymous browser session identified by an opaque cookie.
type Session struct {
	SessionID  string    `json:"sessionId"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// SessionContext is everything the UI persists per session between turns:
// onboarding context, chat history, last suggestions and the last plan set.
type SessionContext struct {
	Context        map[string]any   `json:"context,omitempty"`
	History        []HistoryMessage `json:"history,omitempty"`
	Suggestions    []string         `json:"suggestions,omitempty"`
	Plans          []CoursePlan     `json:"plans,omitempty"`
	SelectedPlanID string           `json:"selectedPlanId,omitempty"`
}
