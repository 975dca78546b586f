// Package eventstore implements the Event Store (spec.md §4.11, §9): an
// append-only per-user event log paired with the per-user bandit registry,
// with a single per-user lock guarding impression resolution, click
// recording, and score reads so a request always sees a consistent state.
package eventstore

import (
	"sync"
	"time"

	"github.com/hyperifyio/answerengine/internal/bandit"
	"github.com/hyperifyio/answerengine/internal/model"
)

type userState struct {
	mu     sync.Mutex
	events []model.UserEvent
	bandit *bandit.Bandit
}

// Store holds per-user state behind a registry lock that is only held long
// enough to look up (or create) a user's entry; the entry's own lock then
// guards that user's events and bandit together.
type Store struct {
	registryMu sync.Mutex
	users      map[string]*userState
	now        func() time.Time
}

func New() *Store {
	return &Store{users: map[string]*userState{}}
}

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

func (s *Store) userFor(userID string) *userState {
	s.registryMu.Lock()
	defer s.registryMu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		u = &userState{bandit: bandit.New()}
		s.users[userID] = u
	}
	return u
}

// ResolveAndScore resolves any pending impressions older than
// pendingImpressionTimeout and returns the resulting arm scores, atomically
// with respect to concurrent clicks and resolutions for the same user. Call
// this at the start of a request that needs bandit scores.
func (s *Store) ResolveAndScore(userID string, pendingImpressionTimeout time.Duration) map[string]float64 {
	u := s.userFor(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.bandit.ResolvePendingImpressions(pendingImpressionTimeout, s.clock())
	return u.bandit.Scores()
}

// RecordPendingImpression registers arms shown to userID for sourceID in
// response to queryID.
func (s *Store) RecordPendingImpression(userID string, arms []string, queryID, sourceID string) {
	u := s.userFor(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.bandit.RecordPendingImpression(arms, queryID, sourceID, s.clock())
}

// AppendEvent appends a user interaction event and, for source and citation
// click events, resolves the bandit credit for that event from its source
// features in the same locked section.
func (s *Store) AppendEvent(event model.UserEvent) {
	u := s.userFor(event.UserID)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.events = append(u.events, event)

	switch event.EventType {
	case model.SourceClicked, model.CitationClicked:
		u.bandit.RecordClick(armsFromMeta(event.Meta), event.SourceID)
	}
}

// armsFromMeta derives the content-feature arms a click should credit from
// an event's metadata: a single source's features, or the union of
// AllSourceFeatures when the event covers more than one (e.g. a citation
// that draws on several sources at once).
func armsFromMeta(meta model.EventMeta) []string {
	if meta.Features != nil {
		return meta.Features.Arms()
	}
	var arms []string
	for _, f := range meta.AllSourceFeatures {
		arms = append(arms, f.Arms()...)
	}
	return arms
}

// Events returns a copy of userID's event log, oldest first.
func (s *Store) Events(userID string) []model.UserEvent {
	u := s.userFor(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]model.UserEvent{}, u.events...)
}

// Reset deletes all state for userID: the event log and the bandit
// registry entry, restoring a flat prior on next use.
func (s *Store) Reset(userID string) {
	s.registryMu.Lock()
	defer s.registryMu.Unlock()
	delete(s.users, userID)
}

// TopK returns userID's k highest-scoring bandit arms.
func (s *Store) TopK(userID string, k int) []model.ArmScore {
	u := s.userFor(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.bandit.TopK(k)
}

// InteractionCount returns the number of events recorded for userID.
func (s *Store) InteractionCount(userID string) int {
	u := s.userFor(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.events)
}
