package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aiqalab/redteam-console/utils"
)

// ErrLimitReached is returned when a start is requested for a client that
// has already exhausted its message ceiling.
var ErrLimitReached = errors.New("client has reached its message limit")

// SchedulerState describes a client scheduler's lifecycle.
type SchedulerState int

const (
	// SchedulerIdle - no ticker running
	SchedulerIdle SchedulerState = iota
	// SchedulerRunning - ticker loop active
	SchedulerRunning
	// SchedulerExhausted - stopped because the message ceiling was hit
	SchedulerExhausted
)

// String returns the string representation of the state
func (s SchedulerState) String() string {
	switch s {
	case SchedulerIdle:
		return "idle"
	case SchedulerRunning:
		return "running"
	case SchedulerExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// ClientScheduler runs one client's conversation on a fixed cadence. Each
// scheduler owns a single goroutine; ticks that land while an exchange is
// still in flight are skipped, never queued.
type ClientScheduler struct {
	mu          sync.Mutex
	runner      *ConversationRunner
	interval    time.Duration
	logger      *utils.Logger
	state       SchedulerState
	stop        chan struct{}
	onExhausted func(clientID string)
}

// NewClientScheduler creates a scheduler around a runner. onExhausted is
// invoked once, from the scheduler goroutine, when the client hits its
// ceiling; it may be nil.
func NewClientScheduler(runner *ConversationRunner, interval time.Duration, logger *utils.Logger, onExhausted func(clientID string)) *ClientScheduler {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &ClientScheduler{
		runner:      runner,
		interval:    interval,
		logger:      logger,
		state:       SchedulerIdle,
		onExhausted: onExhausted,
	}
}

// Start launches the tick loop. Starting an already-running scheduler is a
// no-op; starting a client already at its ceiling returns ErrLimitReached.
// The first exchange runs immediately, before the first tick.
func (s *ClientScheduler) Start() error {
	s.mu.Lock()
	if s.state == SchedulerRunning {
		s.mu.Unlock()
		return nil
	}
	if s.runner.AtLimit() {
		s.state = SchedulerExhausted
		s.mu.Unlock()
		return ErrLimitReached
	}
	s.state = SchedulerRunning
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	go s.loop(stop)
	return nil
}

// Stop halts the tick loop. An in-flight exchange completes on its own;
// Stop does not wait for it. Stopping an idle scheduler is a no-op.
func (s *ClientScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SchedulerRunning {
		return
	}
	close(s.stop)
	s.state = SchedulerIdle
}

// State returns the scheduler's current state name. A running scheduler
// with an exchange in flight reports "sending".
func (s *ClientScheduler) State() string {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if state == SchedulerRunning && s.runner.IsSending() {
		return "sending"
	}
	return state.String()
}

// Rearm returns an exhausted scheduler to idle so it can be started again
// after a reset or a raised ceiling.
func (s *ClientScheduler) Rearm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SchedulerExhausted {
		s.state = SchedulerIdle
	}
}

func (s *ClientScheduler) loop(stop chan struct{}) {
	// Advance takes a background context so an exchange already past its
	// guards finishes and persists even if Stop fires mid-flight.
	if s.tick(stop) {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if s.tick(stop) {
				return
			}
		}
	}
}

// tick runs one advance and returns true when the loop should exit.
func (s *ClientScheduler) tick(stop chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
	}

	outcome := s.runner.Advance(context.Background())
	switch outcome {
	case AdvanceLimitReached:
		s.exhaust()
		return true
	case AdvanceBusy:
		s.logger.WithSource("client_scheduler").Debug("Tick skipped, exchange in flight", map[string]interface{}{
			"client_id": s.runner.ClientID(),
		})
	}

	if s.runner.AtLimit() {
		s.exhaust()
		return true
	}
	return false
}

func (s *ClientScheduler) exhaust() {
	s.mu.Lock()
	fire := s.state == SchedulerRunning
	if fire {
		close(s.stop)
	}
	s.state = SchedulerExhausted
	s.mu.Unlock()

	if fire && s.onExhausted != nil {
		s.onExhausted(s.runner.ClientID())
	}
}
