package testutil

import (
	"sync"

	"github.com/mcoot/fourinarow/internal/model"
)

// RecordingNotifier captures session notifications in arrival order
type RecordingNotifier struct {
	mu      sync.Mutex
	Started []*model.Session
	Updates []model.SessionUpdate
	Ended   []model.SessionEnd
}

func (n *RecordingNotifier) SessionStarted(s *model.Session) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Started = append(n.Started, s)
}

func (n *RecordingNotifier) BoardUpdated(u model.SessionUpdate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Updates = append(n.Updates, u)
}

func (n *RecordingNotifier) SessionEnded(e model.SessionEnd) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Ended = append(n.Ended, e)
}

// StartedCount returns how many sessions were started
func (n *RecordingNotifier) StartedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Started)
}

// LastStarted returns the most recently started session, or nil
func (n *RecordingNotifier) LastStarted() *model.Session {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.Started) == 0 {
		return nil
	}
	return n.Started[len(n.Started)-1]
}

// EndedCount returns how many sessions ended
func (n *RecordingNotifier) EndedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Ended)
}

// LastEnded returns the most recent end notification, or nil
func (n *RecordingNotifier) LastEnded() *model.SessionEnd {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.Ended) == 0 {
		return nil
	}
	e := n.Ended[len(n.Ended)-1]
	return &e
}

// UpdateCount returns how many board updates were seen
func (n *RecordingNotifier) UpdateCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Updates)
}
