package models

import "time"

// ExpiryCandidate is a read-only projection of a membership whose plan ends
// on the scan's target date.
type ExpiryCandidate struct {
	MemberID    int       `json:"member_id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	PlanName    string    `json:"plan_name"`
	PlanEndDate time.Time `json:"plan_end_date"`
}

// ScanResult is the per-candidate outcome of one expiry scan pass.
type ScanResult struct {
	MemberID  int            `json:"member_id"`
	Channel   Channel        `json:"channel,omitempty"`
	Recipient string         `json:"recipient"` // masked
	Result    DispatchResult `json:"result"`
}

// ScanReport summarizes one expiry scan run.
type ScanReport struct {
	Checked  int          `json:"checked"`
	Expiring int          `json:"expiring"`
	Sent     int          `json:"sent"`
	Failed   int          `json:"failed"`
	Results  []ScanResult `json:"results"`
}
