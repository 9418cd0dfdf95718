package moderator

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/john/modwatch/internal/buffer"
	"github.com/john/modwatch/internal/classifier"
	"github.com/john/modwatch/internal/message"
	"github.com/john/modwatch/internal/report"
	"github.com/john/modwatch/internal/reporter"
)

// Classifier scores a user's buffered messages. Implemented by
// classifier.Client; swapped out in tests.
type Classifier interface {
	Classify(ctx context.Context, messages []string) (*classifier.Result, error)
}

// Moderator consumes chat messages, accumulates per-user history, and starts
// a classification cycle once a user's buffer reaches the trigger length.
// While a cycle is outstanding for a user, further messages from that user
// are buffered but never start a second cycle. Every cycle, successful or
// not, ends by clearing the user's buffer.
type Moderator struct {
	store      *buffer.Store
	classifier Classifier
	reporter   *reporter.Reporter
	trigger    int
	stats      *Stats

	mu       sync.Mutex
	inFlight map[string]bool
	wg       sync.WaitGroup
}

// New creates a moderator. trigger is the buffer length that starts a cycle
// (the observed policy is 1: a user's first message of a cycle).
func New(store *buffer.Store, cls Classifier, rep *reporter.Reporter, trigger int, stats *Stats) *Moderator {
	return &Moderator{
		store:      store,
		classifier: cls,
		reporter:   rep,
		trigger:    trigger,
		stats:      stats,
		inFlight:   make(map[string]bool),
	}
}

// Start consumes messages until the context is cancelled. Completed cycle
// reports are sent to reportChan for archival.
func (m *Moderator) Start(ctx context.Context, messageChan <-chan message.Message, reportChan chan<- report.Report) error {
	for {
		select {
		case msg := <-messageChan:
			m.HandleMessage(ctx, msg, reportChan)

		case <-ctx.Done():
			log.Println("Moderator shutting down, waiting for outstanding classifications...")
			m.Wait()
			return ctx.Err()
		}
	}
}

// HandleMessage processes a single chat message. Self-sent messages are
// ignored entirely: no buffering, no classification.
func (m *Moderator) HandleMessage(ctx context.Context, msg message.Message, reportChan chan<- report.Report) {
	if msg.Self {
		return
	}
	m.stats.Messages.Add(1)

	// Append and the in-flight check happen under one lock so a concurrent
	// cycle completion (clear + flag reset) can't interleave between them.
	m.mu.Lock()
	n := m.store.Append(msg.Username, msg.Text)
	start := n == m.trigger && !m.inFlight[msg.Username]
	if start {
		m.inFlight[msg.Username] = true
	}
	m.mu.Unlock()

	if !start {
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.classify(ctx, msg, reportChan)
	}()
}

// Wait blocks until all outstanding classification cycles have completed.
func (m *Moderator) Wait() {
	m.wg.Wait()
}

// classify runs one classification cycle for the user behind msg.
func (m *Moderator) classify(ctx context.Context, msg message.Message, reportChan chan<- report.Report) {
	defer m.finishCycle(msg.Username)

	messages := m.store.Messages(msg.Username)

	rep := report.Report{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Platform:  msg.Platform,
		Channel:   msg.Channel,
		Username:  msg.Username,
	}

	result, err := m.classifier.Classify(ctx, messages)
	m.stats.Classifications.Add(1)
	if err != nil {
		log.Printf("Classification error for %s: %v", msg.Username, err)
		m.stats.Failures.Add(1)
		rep.Error = err.Error()
	} else {
		rep.Result = result
		rep.Flagged = m.reporter.Flagged(result.ModAlertLevel)
		if rep.Flagged {
			m.stats.Flagged.Add(1)
		}
	}

	m.reporter.Emit(rep)

	select {
	case reportChan <- rep:
	default:
		log.Printf("Warning: report queue full, dropping report for %s", msg.Username)
	}
}

// finishCycle clears the user's buffer and in-flight flag together, so the
// user's next message starts a fresh cycle.
func (m *Moderator) finishCycle(user string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store.Clear(user)
	delete(m.inFlight, user)
}
