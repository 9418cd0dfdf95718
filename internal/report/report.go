package report

import "github.com/john/modwatch/internal/classifier"

// Report is the outcome of one classification cycle for one user. Failed
// cycles carry an Error and no Result.
type Report struct {
	Timestamp string             `json:"timestamp"` // RFC3339, UTC
	Platform  string             `json:"platform"`
	Channel   string             `json:"channel"`
	Username  string             `json:"username"`
	Flagged   bool               `json:"flagged"`
	Result    *classifier.Result `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
}
