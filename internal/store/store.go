// Package store holds the process-wide Config Store: the mutable Admin
// layer and the one-off rule queue, guarded by a single lock so that a
// snapshot read always observes a consistent (Admin, OneOffQueue) pair.
//
// Grounded on the teacher's internal/chaos/controller.go, which guards a
// single Config+Stats pair behind one sync.RWMutex; this store applies
// the same discipline to the Admin layer and one-off queue instead.
package store

import (
	"sync"
	"time"

	"github.com/CSroseX/lowdown/internal/settings"
)

// OneOffRule is a layer consumed by exactly one matching request.
type OneOffRule struct {
	Layer     settings.Layer
	CreatedAt time.Time
}

// Mirror is an optional sink that observes Admin mutations, e.g. to
// persist the Admin layer outside the process (see RedisMirror).
// Mirror writes never hold the Store's lock: Store calls them after
// releasing it, so MergeAdmin/ResetAdmin return only once the mirror
// write has finished, but concurrent reads are not delayed by it.
type Mirror interface {
	SaveAdmin(l settings.Layer)
}

// Store is the process-wide Config Store described in spec §4.2. A
// single sync.RWMutex guards both the Admin layer and the one-off
// queue: readers take RLock, every mutation (including the
// scan-and-remove in TryConsumeOneOff) takes the full Lock.
type Store struct {
	mu      sync.RWMutex
	admin   settings.Layer
	oneoffs []OneOffRule
	clock   func() time.Time
	mirror  Mirror
}

// New creates an empty Config Store: Admin starts empty (inherits
// everything from Defaults+Env) and the one-off queue starts empty.
func New() *Store {
	return &Store{
		admin: make(settings.Layer),
		clock: time.Now,
	}
}

// SetMirror attaches an optional external mirror. Not safe to call
// concurrently with other Store methods; call it once during startup.
func (s *Store) SetMirror(m Mirror) { s.mirror = m }

// ReadSnapshot returns a consistent, independent copy of the current
// Admin layer and one-off queue. Safe for concurrent use with every
// other Store method.
func (s *Store) ReadSnapshot() (settings.Layer, []OneOffRule) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.admin.Clone(), append([]OneOffRule(nil), s.oneoffs...)
}

// MergeAdmin overlays the non-absent keys of l onto the Admin layer.
// Keys absent from l are left untouched in Admin.
func (s *Store) MergeAdmin(l settings.Layer) settings.Layer {
	s.mu.Lock()
	s.admin = settings.Merge(s.admin, l)
	effective := s.admin.Clone()
	s.mu.Unlock()
	s.notifyMirror(effective)
	return effective
}

// ResetAdmin replaces the Admin layer wholesale with l (which may be
// empty, clearing every override).
func (s *Store) ResetAdmin(l settings.Layer) settings.Layer {
	s.mu.Lock()
	s.admin = l.Clone()
	effective := s.admin.Clone()
	s.mu.Unlock()
	s.notifyMirror(effective)
	return effective
}

// PushOneOff appends a new one-off rule to the queue and returns it.
func (s *Store) PushOneOff(l settings.Layer) OneOffRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule := OneOffRule{Layer: l.Clone(), CreatedAt: s.clock()}
	s.oneoffs = append(s.oneoffs, rule)
	return rule
}

// TryConsumeOneOff scans the one-off queue in insertion order and
// removes+returns the first rule for which matches returns true. The
// scan and the removal happen inside a single write-lock critical
// section, so two concurrent requests racing the same rule can never
// both observe it: exactly one TryConsumeOneOff call sees ok=true for a
// given rule.
func (s *Store) TryConsumeOneOff(matches func(settings.Layer) bool) (OneOffRule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rule := range s.oneoffs {
		if matches(rule.Layer) {
			s.oneoffs = append(s.oneoffs[:i:i], s.oneoffs[i+1:]...)
			return rule, true
		}
	}
	return OneOffRule{}, false
}

func (s *Store) notifyMirror(effective settings.Layer) {
	if s.mirror == nil {
		return
	}
	s.mirror.SaveAdmin(effective)
}
