package memstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const (
	defaultTTL    = 14 * 24 * time.Hour
	sweepInterval = time.Minute
)

type session struct {
	values  map[string][]byte
	expires time.Time
}

// Store keeps session values in memory for development and tests. Nothing
// survives a restart. Like the redis store, a session expires ttl after its
// last write; expired sessions are swept on writes.
type Store struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
	data      map[string]*session
}

// New returns a store whose sessions live ttl after their last write. A ttl
// of zero or less means fourteen days.
func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{ttl: ttl, now: time.Now, data: map[string]*session{}}
}

// live returns the session or nil when it is missing or expired. Callers hold mu.
func (s *Store) live(sid string, now time.Time) *session {
	sess, ok := s.data[sid]
	if !ok {
		return nil
	}
	if !now.Before(sess.expires) {
		delete(s.data, sid)
		return nil
	}
	return sess
}

func (s *Store) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now
	for sid, sess := range s.data {
		if !now.Before(sess.expires) {
			delete(s.data, sid)
		}
	}
}

func (s *Store) Get(_ context.Context, sid, key string, dst any) (bool, error) {
	s.mu.Lock()
	var raw []byte
	ok := false
	if sess := s.live(sid, s.now()); sess != nil {
		raw, ok = sess.values[key]
	}
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (s *Store) Set(_ context.Context, sid, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	sess := s.live(sid, now)
	if sess == nil {
		sess = &session{values: map[string][]byte{}}
		s.data[sid] = sess
	}
	sess.values[key] = raw
	sess.expires = now.Add(s.ttl)
	return nil
}

func (s *Store) Delete(_ context.Context, sid string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.live(sid, s.now())
	if sess == nil {
		return nil
	}
	for _, k := range keys {
		delete(sess.values, k)
	}
	if len(sess.values) == 0 {
		delete(s.data, sid)
	}
	return nil
}

// Len reports how many sessions are held, expired ones included until swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
