package reporter

import (
	"log"

	"github.com/john/modwatch/internal/report"
)

// Reporter formats flag decisions for the log sink. It holds no state beyond
// the alert threshold and performs no retries.
type Reporter struct {
	threshold int
}

// New creates a reporter that flags users whose mod_alert_level is strictly
// greater than threshold percent.
func New(threshold int) *Reporter {
	return &Reporter{threshold: threshold}
}

// Flagged reports whether a raw mod_alert_level string ("85%") exceeds the
// threshold. Values without a leading digit parse as 0 and are never flagged.
func (r *Reporter) Flagged(level string) bool {
	return AlertPercent(level) > r.threshold
}

// Emit writes the decision for one classification cycle to the log.
func (r *Reporter) Emit(rep report.Report) {
	if rep.Result == nil {
		log.Printf("Could not classify %s due to an error.", rep.Username)
		return
	}
	if rep.Flagged {
		log.Printf("%s flagged for mod attention with mod_alert_level: %s", rep.Username, rep.Result.ModAlertLevel)
	} else {
		log.Printf("%s is clear, mod_alert_level: %s", rep.Username, rep.Result.ModAlertLevel)
	}
}

// AlertPercent extracts the numeric prefix of a percentage-styled string.
// "85%" yields 85; a string with no leading digits yields 0.
func AlertPercent(raw string) int {
	n := 0
	parsed := false
	for _, c := range raw {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
		parsed = true
	}
	if !parsed {
		return 0
	}
	return n
}
