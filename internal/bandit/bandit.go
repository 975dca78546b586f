// Package bandit implements the per-user multi-armed bandit (spec.md §4.8):
// a deterministic Beta-mean point estimate over content-feature arms, with
// pending-impression bookkeeping so clicks and timeouts both resolve into
// fractional credit. No randomness is injected anywhere — Thompson sampling
// is approximated by always taking the distribution's mean, which keeps
// scoring reproducible across requests.
package bandit

import (
	"sort"
	"sync"
	"time"

	"github.com/hyperifyio/answerengine/internal/model"
)

// Bandit holds the per-arm statistics and pending impressions for a single
// user. Callers serialize access through a per-user lock held by the caller
// (see internal/eventstore), since an impression's resolution and a new
// request's read must be atomic with respect to each other.
type Bandit struct {
	mu      sync.Mutex
	arms    map[string]model.ArmStats
	pending []model.PendingImpression
}

// New returns an empty bandit. Arms are untracked until first touched by an
// impression resolution or a click (spec.md §4.8): Scores only reports arms
// that have actually accrued credit, not the full arm space.
func New() *Bandit {
	return &Bandit{arms: map[string]model.ArmStats{}}
}

// RecordPendingImpression registers that the given arms were shown to the
// user for sourceID in response to queryID, pending resolution by either a
// click or a timeout.
func (b *Bandit) RecordPendingImpression(arms []string, queryID, sourceID string, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, model.PendingImpression{
		Arms:      append([]string{}, arms...),
		QueryID:   queryID,
		SourceID:  sourceID,
		Timestamp: at,
	})
}

// RecordClick credits a fractional success of 1/len(arms) to arms, the
// content-feature arms the caller attributes this click to (spec.md §4.8).
// If sourceID matches a pending impression, that impression is resolved and
// removed (crediting its own arms when the caller supplies none); otherwise,
// when sourceID is empty or unresolved, a pending impression with the exact
// same arm set is resolved instead. If neither resolves a pending
// impression, arms are credited directly — a click can arrive with no prior
// recorded impression (e.g. a client-supplied event), and spec.md §4.8
// requires it still produce credit.
func (b *Bandit) RecordClick(arms []string, sourceID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.findPending(sourceID, arms); i >= 0 {
		p := b.pending[i]
		credit := arms
		if len(credit) == 0 {
			credit = p.Arms
		}
		b.creditArms(credit, true)
		b.pending = append(b.pending[:i], b.pending[i+1:]...)
		return
	}
	b.creditArms(arms, true)
}

// findPending locates a pending impression by sourceID, falling back to an
// exact arm-set match when sourceID is empty or does not resolve one. Must
// be called with b.mu held.
func (b *Bandit) findPending(sourceID string, arms []string) int {
	if sourceID != "" {
		for i, p := range b.pending {
			if p.SourceID == sourceID {
				return i
			}
		}
	}
	if len(arms) > 0 {
		for i, p := range b.pending {
			if sameArmSet(p.Arms, arms) {
				return i
			}
		}
	}
	return -1
}

func sameArmSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, arm := range a {
		counts[arm]++
	}
	for _, arm := range b {
		counts[arm]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}

// ResolvePendingImpressions credits a fractional failure to every pending
// impression older than timeout, removing it from the pending list. Called
// at the start of a request, before new arm scores are read, so that stale
// impressions never leak into an indefinite future.
func (b *Bandit) ResolvePendingImpressions(timeout time.Duration, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var remaining []model.PendingImpression
	for _, p := range b.pending {
		if now.Sub(p.Timestamp) >= timeout {
			b.creditArms(p.Arms, false)
			continue
		}
		remaining = append(remaining, p)
	}
	b.pending = remaining
}

// creditArms applies fractional credit (1/len(arms)) to each arm's success
// or failure count. Must be called with b.mu held.
func (b *Bandit) creditArms(arms []string, success bool) {
	if len(arms) == 0 {
		return
	}
	credit := 1.0 / float64(len(arms))
	for _, arm := range arms {
		stats := b.arms[arm]
		if success {
			stats.Successes += credit
		} else {
			stats.Failures += credit
		}
		b.arms[arm] = stats
	}
}

// Scores returns the deterministic Beta-mean point estimate for every arm:
// (successes + 1) / (successes + failures + 2), the Beta(1,1) prior plus
// observed credit.
func (b *Bandit) Scores() map[string]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]float64, len(b.arms))
	for arm, stats := range b.arms {
		out[arm] = (stats.Successes + 1) / (stats.Successes + stats.Failures + 2)
	}
	return out
}

// TopK returns the k arms with the highest score, ties broken by arm name
// for determinism.
func (b *Bandit) TopK(k int) []model.ArmScore {
	scores := b.Scores()
	out := make([]model.ArmScore, 0, len(scores))
	for arm, score := range scores {
		out = append(out, model.ArmScore{Arm: arm, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Arm < out[j].Arm
	})
	if k > 0 && k < len(out) {
		out = out[:k]
	}
	return out
}
