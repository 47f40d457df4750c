package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiqalab/redteam-console/config"
	"github.com/aiqalab/redteam-console/models"
)

func newTestCoordinator(replies ReplyProvider, sink ConversationSink, broadcast WebSocketBroadcaster) *GlobalCoordinator {
	cfg := &config.Config{
		TickInterval: 5 * time.Millisecond,
		ThinkDelay:   0,
		ReplyTimeout: time.Second,
	}
	notifier := NewNotifier(broadcast)
	return NewGlobalCoordinator(cfg, replies, sink, broadcast, notifier, func() string { return "system" }, nil)
}

func registerClient(g *GlobalCoordinator, id string, maxMessages int, prompts ...string) {
	g.Register(models.Client{
		ID:          id,
		Name:        "Client " + id,
		MaxMessages: maxMessages,
		TestCases:   testCases(prompts...),
	})
}

func TestStartAllGuards(t *testing.T) {
	t.Run("no API key", func(t *testing.T) {
		replies := newMockReplyProvider()
		replies.setAvailable(false)
		g := newTestCoordinator(replies, &memorySink{}, &recordingBroadcaster{})
		registerClient(g, "c1", 5, "p1")

		assert.ErrorIs(t, g.StartAll(), ErrAPIKeyNotConfigured)
	})

	t.Run("no clients", func(t *testing.T) {
		g := newTestCoordinator(newMockReplyProvider(), &memorySink{}, &recordingBroadcaster{})

		assert.ErrorIs(t, g.StartAll(), ErrNoClients)
	})

	t.Run("all at limit", func(t *testing.T) {
		g := newTestCoordinator(newMockReplyProvider(), &memorySink{}, &recordingBroadcaster{})
		registerClient(g, "c1", 0, "p1")

		assert.ErrorIs(t, g.StartAll(), ErrAllClientsAtLimit)
	})
}

func TestRunCompletesAndFiresTerminalOnce(t *testing.T) {
	replies := newMockReplyProvider()
	sink := &memorySink{}
	broadcast := &recordingBroadcaster{}
	g := newTestCoordinator(replies, sink, broadcast)
	registerClient(g, "c1", 2, "p1", "p2")
	registerClient(g, "c2", 3, "p1", "p2", "p3")

	require.NoError(t, g.StartAll())
	assert.Equal(t, ModeOn, g.Mode())

	// The run switches itself off when the last client reaches its ceiling
	assert.Eventually(t, func() bool {
		return g.Mode() == ModeOff
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 5, g.TotalMessages())
	assert.Equal(t, 5, sink.count())
	assert.Equal(t, 1, broadcast.countOf("all_tests_complete"))
	assert.Equal(t, 2, broadcast.countOf("client_completed"))

	for _, status := range g.Status() {
		assert.True(t, status.AtLimit)
	}
}

func TestStopAllLeavesCountsIntact(t *testing.T) {
	replies := newMockReplyProvider()
	g := newTestCoordinator(replies, &memorySink{}, &recordingBroadcaster{})
	registerClient(g, "c1", 1000, "p1")

	require.NoError(t, g.StartAll())
	assert.Eventually(t, func() bool {
		return g.TotalMessages() >= 1
	}, time.Second, 5*time.Millisecond)

	g.StopAll()
	assert.Equal(t, ModeOff, g.Mode())

	counted := g.TotalMessages()
	assert.GreaterOrEqual(t, counted, 1)

	// No new exchanges after stop
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, counted, g.TotalMessages())
}

func TestClearAllResetsCounters(t *testing.T) {
	g := newTestCoordinator(newMockReplyProvider(), &memorySink{}, &recordingBroadcaster{})
	registerClient(g, "c1", 2, "p1")

	require.NoError(t, g.StartAll())
	assert.Eventually(t, func() bool {
		return g.Mode() == ModeOff
	}, time.Second, 5*time.Millisecond)

	g.ClearAll()

	assert.Equal(t, 0, g.TotalMessages())
	for _, status := range g.Status() {
		assert.Equal(t, 0, status.MessageCount)
		assert.False(t, status.AtLimit)
	}

	// A cleared run can start again and completes again
	require.NoError(t, g.StartAll())
	assert.Eventually(t, func() bool {
		return g.Mode() == ModeOff
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, g.TotalMessages())
}

func TestTerminalNoticeFiresAgainAfterRestart(t *testing.T) {
	broadcast := &recordingBroadcaster{}
	g := newTestCoordinator(newMockReplyProvider(), &memorySink{}, broadcast)
	registerClient(g, "c1", 1, "p1")

	require.NoError(t, g.StartAll())
	assert.Eventually(t, func() bool {
		return broadcast.countOf("all_tests_complete") == 1
	}, time.Second, 5*time.Millisecond)

	g.ClearAll()
	require.NoError(t, g.StartAll())

	assert.Eventually(t, func() bool {
		return broadcast.countOf("all_tests_complete") == 2
	}, time.Second, 5*time.Millisecond)
}

func TestManualAdvanceSharesGuards(t *testing.T) {
	g := newTestCoordinator(newMockReplyProvider(), &memorySink{}, &recordingBroadcaster{})
	registerClient(g, "c1", 1, "p1")

	outcome, err := g.AdvanceClient(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, AdvanceCompleted, outcome)

	outcome, err = g.AdvanceClient(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, AdvanceLimitReached, outcome)

	_, err = g.AdvanceClient(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestSingleClientControls(t *testing.T) {
	g := newTestCoordinator(newMockReplyProvider(), &memorySink{}, &recordingBroadcaster{})
	registerClient(g, "c1", 2, "p1")

	require.NoError(t, g.StartClient("c1"))
	assert.Equal(t, ModeOff, g.Mode()) // single start does not flip the global mode

	assert.Eventually(t, func() bool {
		for _, s := range g.Status() {
			if s.ClientID == "c1" && s.AtLimit {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, g.ResetClient("c1"))
	for _, s := range g.Status() {
		if s.ClientID == "c1" {
			assert.Equal(t, 0, s.MessageCount)
		}
	}

	assert.ErrorIs(t, g.StartClient("missing"), ErrClientNotFound)
	assert.ErrorIs(t, g.StopClient("missing"), ErrClientNotFound)
}

func TestDisposeStopsRuntime(t *testing.T) {
	g := newTestCoordinator(newMockReplyProvider(), &memorySink{}, &recordingBroadcaster{})
	registerClient(g, "c1", 1000, "p1")

	require.NoError(t, g.StartClient("c1"))
	g.Dispose("c1")

	assert.Empty(t, g.Status())
	_, err := g.AdvanceClient(context.Background(), "c1")
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestRegisterExistingUpdatesConfig(t *testing.T) {
	g := newTestCoordinator(newMockReplyProvider(), &memorySink{}, &recordingBroadcaster{})
	registerClient(g, "c1", 1, "p1")

	outcome, err := g.AdvanceClient(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, AdvanceCompleted, outcome)

	// Re-registering with a higher ceiling keeps the count
	registerClient(g, "c1", 3, "p1")

	status := g.Status()
	require.Len(t, status, 1)
	assert.Equal(t, 1, status[0].MessageCount)
	assert.Equal(t, 3, status[0].MaxMessages)
	assert.False(t, status[0].AtLimit)
}
