package moderator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/john/modwatch/internal/buffer"
	"github.com/john/modwatch/internal/classifier"
	"github.com/john/modwatch/internal/message"
	"github.com/john/modwatch/internal/report"
	"github.com/john/modwatch/internal/reporter"
)

// fakeClassifier returns a canned result or error and records its calls.
type fakeClassifier struct {
	mu      sync.Mutex
	calls   [][]string
	result  *classifier.Result
	err     error
	release chan struct{} // when non-nil, Classify blocks until closed
}

func (f *fakeClassifier) Classify(ctx context.Context, messages []string) (*classifier.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, messages)
	f.mu.Unlock()

	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestModerator(cls Classifier) (*Moderator, *buffer.Store, *Stats) {
	store := buffer.New(5)
	stats := &Stats{}
	mod := New(store, cls, reporter.New(50), 1, stats)
	return mod, store, stats
}

func chatMessage(user, text string) message.Message {
	return message.Message{
		Platform:  "twitch",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Channel:   "somechannel",
		Username:  user,
		Text:      text,
	}
}

func TestFirstMessageTriggersClassification(t *testing.T) {
	cls := &fakeClassifier{result: &classifier.Result{ModAlertLevel: "20%"}}
	mod, store, stats := newTestModerator(cls)
	reportChan := make(chan report.Report, 1)

	mod.HandleMessage(context.Background(), chatMessage("alice", "hello everyone"), reportChan)
	mod.Wait()

	rep := <-reportChan
	assert.Equal(t, "alice", rep.Username)
	assert.False(t, rep.Flagged)
	require.NotNil(t, rep.Result)
	assert.Equal(t, "20%", rep.Result.ModAlertLevel)

	require.Equal(t, 1, cls.callCount())
	assert.Equal(t, []string{"hello everyone"}, cls.calls[0])

	// Cycle completion clears the buffer
	assert.Nil(t, store.Messages("alice"))
	assert.Equal(t, int64(1), stats.Classifications.Load())
	assert.Equal(t, int64(0), stats.Flagged.Load())
}

func TestHighAlertLevelFlagsUser(t *testing.T) {
	cls := &fakeClassifier{result: &classifier.Result{
		ModAlertLevel: "85%",
		Problems:      []string{"High toxicity"},
	}}
	mod, _, stats := newTestModerator(cls)
	reportChan := make(chan report.Report, 1)

	mod.HandleMessage(context.Background(), chatMessage("bob", "you are all terrible"), reportChan)
	mod.Wait()

	rep := <-reportChan
	assert.True(t, rep.Flagged)
	assert.Equal(t, "85%", rep.Result.ModAlertLevel)
	assert.Equal(t, int64(1), stats.Flagged.Load())
}

func TestClassifierFailureDegradesToErrorReport(t *testing.T) {
	cls := &fakeClassifier{err: errors.New("connection refused")}
	mod, store, stats := newTestModerator(cls)
	reportChan := make(chan report.Report, 1)

	mod.HandleMessage(context.Background(), chatMessage("carol", "hi"), reportChan)
	mod.Wait()

	rep := <-reportChan
	assert.Nil(t, rep.Result)
	assert.False(t, rep.Flagged)
	assert.Contains(t, rep.Error, "connection refused")

	// Failed cycles still clear the buffer so the next message starts fresh
	assert.Nil(t, store.Messages("carol"))
	assert.Equal(t, int64(1), stats.Failures.Load())
}

func TestSelfMessagesAreIgnored(t *testing.T) {
	cls := &fakeClassifier{result: &classifier.Result{ModAlertLevel: "0%"}}
	mod, store, stats := newTestModerator(cls)
	reportChan := make(chan report.Report, 1)

	msg := chatMessage("modwatchbot", "thanks for the follow!")
	msg.Self = true
	mod.HandleMessage(context.Background(), msg, reportChan)
	mod.Wait()

	assert.Equal(t, 0, cls.callCount())
	assert.Nil(t, store.Messages("modwatchbot"))
	assert.Equal(t, int64(0), stats.Messages.Load())
	assert.Empty(t, reportChan)
}

func TestMessagesDuringInFlightCycleDoNotRetrigger(t *testing.T) {
	release := make(chan struct{})
	cls := &fakeClassifier{
		result:  &classifier.Result{ModAlertLevel: "10%"},
		release: release,
	}
	mod, store, _ := newTestModerator(cls)
	reportChan := make(chan report.Report, 2)

	ctx := context.Background()
	mod.HandleMessage(ctx, chatMessage("dave", "one"), reportChan)

	// More messages arrive while dave's classification is outstanding
	for i := 0; i < 8; i++ {
		mod.HandleMessage(ctx, chatMessage("dave", fmt.Sprintf("extra %d", i)), reportChan)
	}

	// Buffer stays bounded and no second cycle starts
	assert.LessOrEqual(t, store.Len("dave"), 5)
	assert.Eventually(t, func() bool { return cls.callCount() == 1 },
		time.Second, 5*time.Millisecond)

	close(release)
	mod.Wait()

	// Cycle end discards everything buffered during the call
	assert.Nil(t, store.Messages("dave"))
	assert.Len(t, reportChan, 1)
}

func TestNextMessageAfterCycleStartsFreshCycle(t *testing.T) {
	cls := &fakeClassifier{result: &classifier.Result{ModAlertLevel: "10%"}}
	mod, _, _ := newTestModerator(cls)
	reportChan := make(chan report.Report, 2)

	ctx := context.Background()
	mod.HandleMessage(ctx, chatMessage("erin", "first cycle"), reportChan)
	mod.Wait()
	mod.HandleMessage(ctx, chatMessage("erin", "second cycle"), reportChan)
	mod.Wait()

	require.Equal(t, 2, cls.callCount())
	assert.Equal(t, []string{"first cycle"}, cls.calls[0])
	assert.Equal(t, []string{"second cycle"}, cls.calls[1])
}

func TestUsersAreIndependent(t *testing.T) {
	release := make(chan struct{})
	cls := &fakeClassifier{
		result:  &classifier.Result{ModAlertLevel: "10%"},
		release: release,
	}
	mod, _, _ := newTestModerator(cls)
	reportChan := make(chan report.Report, 4)

	ctx := context.Background()
	mod.HandleMessage(ctx, chatMessage("frank", "hello"), reportChan)
	mod.HandleMessage(ctx, chatMessage("grace", "hello"), reportChan)

	// A cycle outstanding for frank does not stop grace's cycle
	assert.Eventually(t, func() bool { return cls.callCount() == 2 },
		time.Second, 5*time.Millisecond)

	close(release)
	mod.Wait()
	assert.Len(t, reportChan, 2)
}

func TestStartConsumesUntilCancelled(t *testing.T) {
	cls := &fakeClassifier{result: &classifier.Result{ModAlertLevel: "20%"}}
	mod, _, _ := newTestModerator(cls)

	messageChan := make(chan message.Message, 1)
	reportChan := make(chan report.Report, 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- mod.Start(ctx, messageChan, reportChan)
	}()

	messageChan <- chatMessage("alice", "hello everyone")
	rep := <-reportChan
	assert.Equal(t, "alice", rep.Username)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
