package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aiqalab/redteam-console/config"
	"github.com/aiqalab/redteam-console/models"
	"github.com/aiqalab/redteam-console/utils"
)

var (
	// ErrAPIKeyNotConfigured is returned when a global start is requested
	// without upstream API credentials.
	ErrAPIKeyNotConfigured = errors.New("chat API key is not configured")
	// ErrNoClients is returned when a global start finds no registered clients.
	ErrNoClients = errors.New("no clients are configured")
	// ErrAllClientsAtLimit is returned when every registered client has
	// already hit its message ceiling.
	ErrAllClientsAtLimit = errors.New("all clients have reached their message limits")
	// ErrClientNotFound is returned for operations on an unknown client ID.
	ErrClientNotFound = errors.New("client not found")
)

// GlobalMode describes whether continuous testing is active.
type GlobalMode int

const (
	// ModeOff - continuous testing stopped
	ModeOff GlobalMode = iota
	// ModeOn - continuous testing active
	ModeOn
)

// String returns the string representation of the mode
func (m GlobalMode) String() string {
	if m == ModeOn {
		return "on"
	}
	return "off"
}

type clientRuntime struct {
	client    models.Client
	runner    *ConversationRunner
	scheduler *ClientScheduler
}

// GlobalCoordinator owns the per-client runtimes and the on/off switch for
// continuous testing. It aggregates message counts, announces per-client
// completion, and fires the all-tests-complete notice exactly once per run.
type GlobalCoordinator struct {
	mu            sync.Mutex
	cfg           *config.Config
	replies       ReplyProvider
	sink          ConversationSink
	broadcast     WebSocketBroadcaster
	notifier      *Notifier
	logger        *utils.Logger
	systemPrompt  func() string
	runtimes      map[string]*clientRuntime
	stats         map[string]int
	completed     map[string]bool
	mode          GlobalMode
	terminalFired bool
}

// NewGlobalCoordinator creates the coordinator. Clients are attached with
// Register as they are loaded or created.
func NewGlobalCoordinator(cfg *config.Config, replies ReplyProvider, sink ConversationSink, broadcast WebSocketBroadcaster, notifier *Notifier, systemPrompt func() string, logger *utils.Logger) *GlobalCoordinator {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &GlobalCoordinator{
		cfg:          cfg,
		replies:      replies,
		sink:         sink,
		broadcast:    broadcast,
		notifier:     notifier,
		logger:       logger.WithSource("coordinator"),
		systemPrompt: systemPrompt,
		runtimes:     make(map[string]*clientRuntime),
		stats:        make(map[string]int),
		completed:    make(map[string]bool),
	}
}

// Register builds and attaches a runtime for a client. Registering an
// existing ID replaces its configuration in place, keeping counters.
func (g *GlobalCoordinator) Register(client models.Client) {
	g.mu.Lock()
	if rt, ok := g.runtimes[client.ID]; ok {
		g.mu.Unlock()
		rt.runner.UpdateClient(client)
		g.mu.Lock()
		rt.client = client
		g.mu.Unlock()
		return
	}

	selector := NewPromptSelector(client.TestCases, client.UseRandomGeneration, g.replies, time.Now().UnixNano())
	runner := NewConversationRunner(client, RunnerOptions{
		Selector:     selector,
		Replies:      g.replies,
		Sink:         g.sink,
		Observer:     g,
		Notifier:     g.notifier,
		Logger:       g.logger,
		SystemPrompt: g.systemPrompt,
		ThinkDelay:   g.cfg.ThinkDelay,
		ReplyTimeout: g.cfg.ReplyTimeout,
	})
	scheduler := NewClientScheduler(runner, g.cfg.TickInterval, g.logger, g.onClientExhausted)

	g.runtimes[client.ID] = &clientRuntime{client: client, runner: runner, scheduler: scheduler}
	g.stats[client.ID] = 0
	g.mu.Unlock()
}

// Dispose stops and removes a client's runtime.
func (g *GlobalCoordinator) Dispose(clientID string) {
	g.mu.Lock()
	rt, ok := g.runtimes[clientID]
	if ok {
		delete(g.runtimes, clientID)
		delete(g.stats, clientID)
		delete(g.completed, clientID)
	}
	g.mu.Unlock()

	if ok {
		rt.scheduler.Stop()
	}
}

// StartAll turns continuous testing on for every client that still has
// headroom. Guards run in order: credentials, at least one client, at
// least one client below its ceiling.
func (g *GlobalCoordinator) StartAll() error {
	if !g.replies.IsAvailable() {
		return ErrAPIKeyNotConfigured
	}

	g.mu.Lock()
	if len(g.runtimes) == 0 {
		g.mu.Unlock()
		return ErrNoClients
	}

	startable := make([]*clientRuntime, 0, len(g.runtimes))
	for _, rt := range g.runtimes {
		if !rt.runner.AtLimit() {
			startable = append(startable, rt)
		}
	}
	if len(startable) == 0 {
		g.mu.Unlock()
		return ErrAllClientsAtLimit
	}

	g.mode = ModeOn
	g.terminalFired = false
	g.completed = make(map[string]bool)
	g.mu.Unlock()

	for _, rt := range startable {
		rt.scheduler.Rearm()
		if err := rt.scheduler.Start(); err != nil {
			g.logger.Warn("Client skipped at start", map[string]interface{}{
				"client_id": rt.client.ID,
				"reason":    err.Error(),
			})
		}
	}

	g.logger.Info("Continuous testing started", map[string]interface{}{
		"clients": len(startable),
	})
	if g.notifier != nil {
		g.notifier.Notify("info", "Testing started",
			"Continuous testing is running.",
			map[string]interface{}{"clients": len(startable)})
	}
	return nil
}

// StopAll turns continuous testing off. In-flight exchanges complete and
// persist; no new ticks fire.
func (g *GlobalCoordinator) StopAll() {
	g.mu.Lock()
	g.mode = ModeOff
	rts := g.runtimesLocked()
	g.mu.Unlock()

	for _, rt := range rts {
		rt.scheduler.Stop()
	}

	g.logger.Info("Continuous testing stopped", nil)
	if g.notifier != nil {
		g.notifier.Notify("info", "Testing stopped", "Continuous testing has been stopped.", nil)
	}
}

// StartClient starts a single client's scheduler without touching the
// global mode.
func (g *GlobalCoordinator) StartClient(clientID string) error {
	if !g.replies.IsAvailable() {
		return ErrAPIKeyNotConfigured
	}
	rt, err := g.runtime(clientID)
	if err != nil {
		return err
	}
	rt.scheduler.Rearm()
	return rt.scheduler.Start()
}

// StopClient stops a single client's scheduler.
func (g *GlobalCoordinator) StopClient(clientID string) error {
	rt, err := g.runtime(clientID)
	if err != nil {
		return err
	}
	rt.scheduler.Stop()
	return nil
}

// AdvanceClient runs one manual exchange for a client, sharing the
// runner's limit and busy guards with the scheduler.
func (g *GlobalCoordinator) AdvanceClient(ctx context.Context, clientID string) (AdvanceOutcome, error) {
	if !g.replies.IsAvailable() {
		return 0, ErrAPIKeyNotConfigured
	}
	rt, err := g.runtime(clientID)
	if err != nil {
		return 0, err
	}
	return rt.runner.Advance(ctx), nil
}

// ResetClient clears one client's transcript, counter, and round-robin
// history, and re-arms its scheduler.
func (g *GlobalCoordinator) ResetClient(clientID string) error {
	rt, err := g.runtime(clientID)
	if err != nil {
		return err
	}
	rt.scheduler.Stop()
	rt.runner.Reset()
	rt.scheduler.Rearm()

	g.mu.Lock()
	delete(g.completed, clientID)
	g.mu.Unlock()
	return nil
}

// ClearAll stops everything and resets every client's counters.
func (g *GlobalCoordinator) ClearAll() {
	g.StopAll()

	g.mu.Lock()
	rts := g.runtimesLocked()
	g.completed = make(map[string]bool)
	g.terminalFired = false
	g.mu.Unlock()

	for _, rt := range rts {
		rt.runner.Reset()
		rt.scheduler.Rearm()
	}
}

// Transcript returns a client's in-session message list.
func (g *GlobalCoordinator) Transcript(clientID string) ([]models.Message, error) {
	rt, err := g.runtime(clientID)
	if err != nil {
		return nil, err
	}
	msgs, _ := rt.runner.Transcript()
	return msgs, nil
}

// Mode returns the current global mode.
func (g *GlobalCoordinator) Mode() GlobalMode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// Status returns a snapshot of every client's live state.
func (g *GlobalCoordinator) Status() []models.ClientStatus {
	g.mu.Lock()
	rts := g.runtimesLocked()
	g.mu.Unlock()

	out := make([]models.ClientStatus, 0, len(rts))
	for _, rt := range rts {
		out = append(out, models.ClientStatus{
			ClientID:     rt.client.ID,
			Name:         rt.client.Name,
			State:        rt.scheduler.State(),
			MessageCount: rt.runner.MessageCount(),
			MaxMessages:  rt.runner.MaxMessages(),
			AtLimit:      rt.runner.AtLimit(),
		})
	}
	return out
}

// TotalMessages returns the sum of customer messages across all clients.
func (g *GlobalCoordinator) TotalMessages() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := 0
	for _, n := range g.stats {
		total += n
	}
	return total
}

// OnClientMessageCountChange receives count updates from runners. It keeps
// the aggregate stats current, announces per-client completion while the
// global mode is on, and when the last active client reaches its ceiling
// fires the all-tests-complete notice exactly once and switches off.
func (g *GlobalCoordinator) OnClientMessageCountChange(clientID string, count int) {
	g.mu.Lock()
	if _, ok := g.runtimes[clientID]; !ok {
		g.mu.Unlock()
		return
	}
	g.stats[clientID] = count

	var completedClient *clientRuntime
	rt := g.runtimes[clientID]
	if g.mode == ModeOn && rt.runner.AtLimit() && !g.completed[clientID] {
		g.completed[clientID] = true
		completedClient = rt
	}

	// The all-complete check reads live counts, so clients that finished
	// before this run is judged still count as done.
	terminal := false
	if g.mode == ModeOn && !g.terminalFired {
		terminal = true
		for _, other := range g.runtimes {
			if !other.runner.AtLimit() {
				terminal = false
				break
			}
		}
		if terminal {
			g.terminalFired = true
			g.mode = ModeOff
		}
	}
	rts := g.runtimesLocked()
	g.mu.Unlock()

	if g.broadcast != nil {
		g.broadcast.BroadcastToAll("stats_update", map[string]interface{}{
			"client_id": clientID,
			"count":     count,
		})
	}

	if completedClient != nil {
		g.logger.Info("Client completed its test run", map[string]interface{}{
			"client_id": clientID,
			"messages":  count,
		})
		if g.broadcast != nil {
			g.broadcast.BroadcastToAll("client_completed", map[string]interface{}{
				"client_id": clientID,
				"name":      completedClient.client.Name,
			})
		}
		if g.notifier != nil {
			g.notifier.Notify("success", "Client finished",
				completedClient.client.Name+" has reached its message limit.",
				map[string]interface{}{"client_id": clientID})
		}
	}

	if terminal {
		for _, other := range rts {
			other.scheduler.Stop()
		}
		g.logger.Info("All clients completed, continuous testing switched off", nil)
		if g.broadcast != nil {
			g.broadcast.BroadcastToAll("all_tests_complete", map[string]interface{}{
				"clients": len(rts),
			})
		}
		if g.notifier != nil {
			g.notifier.Notify("success", "All tests complete",
				"Every client has reached its message limit. Continuous testing is now off.", nil)
		}
	}
}

func (g *GlobalCoordinator) onClientExhausted(clientID string) {
	g.logger.Debug("Client scheduler exhausted", map[string]interface{}{
		"client_id": clientID,
	})
}

func (g *GlobalCoordinator) runtime(clientID string) (*clientRuntime, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rt, ok := g.runtimes[clientID]
	if !ok {
		return nil, ErrClientNotFound
	}
	return rt, nil
}

// runtimesLocked snapshots the runtime list. Caller must hold the lock.
func (g *GlobalCoordinator) runtimesLocked() []*clientRuntime {
	out := make([]*clientRuntime, 0, len(g.runtimes))
	for _, rt := range g.runtimes {
		out = append(out, rt)
	}
	return out
}
