package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aiqalab/redteam-console/models"
	"github.com/aiqalab/redteam-console/utils"
)

// AdvanceOutcome reports what a call to Advance did.
type AdvanceOutcome int

const (
	// AdvanceCompleted - one full customer/service exchange ran
	AdvanceCompleted AdvanceOutcome = iota
	// AdvanceLimitReached - the client is at its message ceiling, nothing ran
	AdvanceLimitReached
	// AdvanceBusy - an exchange was already in flight, nothing ran
	AdvanceBusy
)

// String returns the string representation of the outcome
func (o AdvanceOutcome) String() string {
	switch o {
	case AdvanceCompleted:
		return "completed"
	case AdvanceLimitReached:
		return "limit_reached"
	case AdvanceBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// ConversationRunner drives one client's conversation with the agent under
// test. It owns the client's in-session transcript and customer-message
// counter exclusively; nothing else mutates them.
type ConversationRunner struct {
	mu            sync.Mutex
	client        models.Client
	selector      *PromptSelector
	replies       ReplyProvider
	sink          ConversationSink
	observer      CountObserver
	notifier      *Notifier
	logger        *utils.Logger
	systemPrompt  func() string
	thinkDelay    time.Duration
	replyTimeout  time.Duration
	messages      []models.Message
	customerCount int
	sending       bool
}

// RunnerOptions bundles the collaborators a runner needs.
type RunnerOptions struct {
	Selector     *PromptSelector
	Replies      ReplyProvider
	Sink         ConversationSink
	Observer     CountObserver
	Notifier     *Notifier
	Logger       *utils.Logger
	SystemPrompt func() string
	ThinkDelay   time.Duration
	ReplyTimeout time.Duration
}

// NewConversationRunner creates a runner for the given client.
func NewConversationRunner(client models.Client, opts RunnerOptions) *ConversationRunner {
	if opts.Logger == nil {
		opts.Logger = utils.GetLogger()
	}
	if opts.SystemPrompt == nil {
		opts.SystemPrompt = func() string { return "" }
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = 30 * time.Second
	}
	return &ConversationRunner{
		client:       client,
		selector:     opts.Selector,
		replies:      opts.Replies,
		sink:         opts.Sink,
		observer:     opts.Observer,
		notifier:     opts.Notifier,
		logger:       opts.Logger,
		systemPrompt: opts.SystemPrompt,
		thinkDelay:   opts.ThinkDelay,
		replyTimeout: opts.ReplyTimeout,
	}
}

// Advance attempts one customer/service exchange. Guards are checked in
// order: limit first, then busy. The busy flag is held for the whole
// exchange and released unconditionally, so a failed reply can never leave
// the client stuck in "sending".
func (r *ConversationRunner) Advance(ctx context.Context) AdvanceOutcome {
	r.mu.Lock()
	if r.customerCount >= r.client.MaxMessages {
		r.mu.Unlock()
		return AdvanceLimitReached
	}
	if r.sending {
		r.mu.Unlock()
		return AdvanceBusy
	}
	r.sending = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.sending = false
		r.mu.Unlock()
	}()

	// Selection may call the upstream API under the random-generation
	// strategy; it runs outside the lock, protected by the busy flag.
	prompt, testCaseID := r.selector.Next(ctx)

	r.mu.Lock()
	r.appendLocked(prompt, models.SenderCustomer)
	r.customerCount++
	count := r.customerCount
	clientID := r.client.ID
	r.mu.Unlock()

	// Think-time pause before the reply, as a human operator would see.
	if r.thinkDelay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(r.thinkDelay):
		}
	}

	replyCtx, cancel := context.WithTimeout(context.Background(), r.replyTimeout)
	reply, err := r.replies.Reply(replyCtx, r.systemPrompt(), nil, prompt)
	cancel()
	if err != nil {
		r.logger.WithSource("conversation_runner").Warn("Reply failed, substituting fallback", map[string]interface{}{
			"client_id": clientID,
			"error":     err.Error(),
		})
		reply = FallbackServiceReply
	}

	r.mu.Lock()
	r.appendLocked(reply, models.SenderService)
	r.mu.Unlock()

	r.persist(clientID, testCaseID, prompt, reply)

	if r.observer != nil {
		r.observer.OnClientMessageCountChange(clientID, count)
	}

	return AdvanceCompleted
}

// appendLocked appends a message to the transcript. Caller must hold the lock.
func (r *ConversationRunner) appendLocked(content, sender string) {
	r.messages = append(r.messages, models.Message{
		ID:        uuid.New().String(),
		Content:   content,
		Sender:    sender,
		Timestamp: time.Now(),
	})
}

// persist writes the exchange, best-effort. A failed write is logged and
// surfaced but never halts the loop; that one record is accepted as lost.
func (r *ConversationRunner) persist(clientID, testCaseID, prompt, reply string) {
	if r.sink == nil {
		return
	}
	err := r.sink.SaveConversation(&models.Conversation{
		ClientID:        clientID,
		TestCaseID:      testCaseID,
		CustomerMessage: prompt,
		ServiceResponse: reply,
		TestMode:        models.TestModeMultiClient,
	})
	if err != nil {
		r.logger.WithSource("conversation_runner").Error("Failed to persist exchange", err, map[string]interface{}{
			"client_id": clientID,
		})
		if r.notifier != nil {
			r.notifier.Notify("warning", "Save failed",
				"An exchange could not be written to storage; the conversation continues.",
				map[string]interface{}{"client_id": clientID})
		}
	}
}

// Reset clears the transcript, counter, and round-robin history.
func (r *ConversationRunner) Reset() {
	r.mu.Lock()
	r.messages = nil
	r.customerCount = 0
	r.mu.Unlock()

	if r.selector != nil {
		r.selector.Reset()
	}

	if r.observer != nil {
		r.observer.OnClientMessageCountChange(r.ClientID(), 0)
	}
}

// UpdateClient applies an edited client configuration and refreshes the
// selector pool. The counter and transcript are kept.
func (r *ConversationRunner) UpdateClient(client models.Client) {
	r.mu.Lock()
	r.client = client
	r.mu.Unlock()

	if r.selector != nil {
		r.selector.SetPool(client.TestCases, client.UseRandomGeneration)
	}
}

// ClientID returns the owning client's ID.
func (r *ConversationRunner) ClientID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.ID
}

// MessageCount returns the current customer-message count.
func (r *ConversationRunner) MessageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.customerCount
}

// MaxMessages returns the client's current message ceiling.
func (r *ConversationRunner) MaxMessages() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.MaxMessages
}

// AtLimit reports whether the client has reached its message ceiling.
func (r *ConversationRunner) AtLimit() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.customerCount >= r.client.MaxMessages
}

// IsSending reports whether an exchange is currently in flight.
func (r *ConversationRunner) IsSending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sending
}

// Transcript returns a copy of the in-session message list and the current
// customer-message count.
func (r *ConversationRunner) Transcript() ([]models.Message, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Message, len(r.messages))
	copy(out, r.messages)
	return out, r.customerCount
}
