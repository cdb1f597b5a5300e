// Package cleanup provides an ordered, fail-safe registry of teardown
// actions. Every exit path of a deployment session (normal return, error,
// operator interrupt) converges on draining the same ledger, so resources are
// released exactly once and in reverse order of acquisition.
package cleanup

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Action is a registered teardown step. Actions must be idempotent.
type Action struct {
	name string
	fn   func()
}

// Ledger holds teardown actions and runs them LIFO. Safe for concurrent use;
// overlapping Run calls drain each action exactly once.
type Ledger struct {
	logger *logrus.Logger

	mu      sync.Mutex
	actions []*Action
	drained bool
}

func NewLedger(logger *logrus.Logger) *Ledger {
	return &Ledger{logger: logger}
}

// Register appends an action. Later registrations run earlier on drain.
func (l *Ledger) Register(name string, fn func()) *Action {
	a := &Action{name: name, fn: fn}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions, a)
	return a
}

// Unregister removes a previously registered action, for the case where a
// generic early action is replaced by a more specific one once more context
// (such as the job id) is known. Unknown actions are ignored.
func (l *Ledger) Unregister(a *Action) {
	if a == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, cur := range l.actions {
		if cur == a {
			l.actions = append(l.actions[:i], l.actions[i+1:]...)
			return
		}
	}
}

// Run executes all registered actions in reverse registration order. A
// panicking action is logged and does not stop the remaining actions.
// Subsequent Run calls are no-ops.
func (l *Ledger) Run() {
	l.mu.Lock()
	if l.drained {
		l.mu.Unlock()
		return
	}
	l.drained = true
	actions := l.actions
	l.actions = nil
	l.mu.Unlock()

	for i := len(actions) - 1; i >= 0; i-- {
		l.runOne(actions[i])
	}
}

func (l *Ledger) runOne(a *Action) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Errorf("cleanup action %q failed: %v", a.name, r)
		}
	}()
	l.logger.Debugf("running cleanup action %q", a.name)
	a.fn()
}
