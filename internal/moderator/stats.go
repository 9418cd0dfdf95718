package moderator

import "sync/atomic"

// Stats counts moderation activity for the stats endpoint.
type Stats struct {
	Messages        atomic.Int64
	Classifications atomic.Int64
	Flagged         atomic.Int64
	Failures        atomic.Int64
}

// Snapshot is a plain copy of the counters, suitable for JSON encoding.
type Snapshot struct {
	Messages        int64 `json:"messages"`
	Classifications int64 `json:"classifications"`
	Flagged         int64 `json:"flagged"`
	Failures        int64 `json:"failures"`
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Messages:        s.Messages.Load(),
		Classifications: s.Classifications.Load(),
		Flagged:         s.Flagged.Load(),
		Failures:        s.Failures.Load(),
	}
}
