package services

import (
	"context"
	"sync"

	"github.com/aiqalab/redteam-console/models"
)

// mockReplyProvider is a scriptable in-memory ReplyProvider.
type mockReplyProvider struct {
	mu          sync.Mutex
	available   bool
	replyFunc   func(prompt string) (string, error)
	paraFunc    func(tc models.TestCase) string
	replyCalls  []string
	replyDelay  chan struct{} // when non-nil, Reply blocks until it receives
	historySeen [][]models.ChatTurn
}

func newMockReplyProvider() *mockReplyProvider {
	return &mockReplyProvider{
		available: true,
		replyFunc: func(prompt string) (string, error) {
			return "reply to: " + prompt, nil
		},
	}
}

func (m *mockReplyProvider) Reply(ctx context.Context, systemPrompt string, history []models.ChatTurn, prompt string) (string, error) {
	m.mu.Lock()
	m.replyCalls = append(m.replyCalls, prompt)
	m.historySeen = append(m.historySeen, history)
	delay := m.replyDelay
	fn := m.replyFunc
	m.mu.Unlock()

	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return fn(prompt)
}

func (m *mockReplyProvider) Paraphrase(ctx context.Context, tc models.TestCase) string {
	m.mu.Lock()
	fn := m.paraFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(tc)
	}
	return tc.TestPrompt
}

func (m *mockReplyProvider) IsAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

func (m *mockReplyProvider) setAvailable(v bool) {
	m.mu.Lock()
	m.available = v
	m.mu.Unlock()
}

func (m *mockReplyProvider) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.replyCalls))
	copy(out, m.replyCalls)
	return out
}

// memorySink records saved conversations and can be scripted to fail.
type memorySink struct {
	mu    sync.Mutex
	saved []models.Conversation
	err   error
}

func (s *memorySink) SaveConversation(conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, *conv)
	return nil
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func (s *memorySink) all() []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Conversation, len(s.saved))
	copy(out, s.saved)
	return out
}

// recordingBroadcaster captures hub broadcasts.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

type broadcastEvent struct {
	msgType string
	data    interface{}
}

func (b *recordingBroadcaster) BroadcastToAll(msgType string, data interface{}) {
	b.mu.Lock()
	b.events = append(b.events, broadcastEvent{msgType: msgType, data: data})
	b.mu.Unlock()
}

func (b *recordingBroadcaster) countOf(msgType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.msgType == msgType {
			n++
		}
	}
	return n
}

// recordingObserver captures count notifications.
type recordingObserver struct {
	mu      sync.Mutex
	updates []int
}

func (o *recordingObserver) OnClientMessageCountChange(clientID string, count int) {
	o.mu.Lock()
	o.updates = append(o.updates, count)
	o.mu.Unlock()
}

func (o *recordingObserver) last() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.updates) == 0 {
		return 0
	}
	return o.updates[len(o.updates)-1]
}

func testCases(prompts ...string) []models.TestCase {
	out := make([]models.TestCase, 0, len(prompts))
	for i, p := range prompts {
		out = append(out, models.TestCase{
			ID:         "tc-" + string(rune('a'+i)),
			AttackType: "prompt_injection",
			Category:   "jailbreak",
			TestPrompt: p,
		})
	}
	return out
}
