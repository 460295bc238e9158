package store

import (
	"sync"
	"time"

	"cliprelay/internal/model"
)

const (
	DefaultPairingTTL    = 120 * time.Second
	DefaultSweepInterval = 60 * time.Second
	DefaultFileTTL       = 60 * time.Second
	DefaultMaxFileBytes  = 5 << 20
)

// Store holds the relay's shared mutable state: pairing tokens, the
// revocation deny-set, offline text queues and transient files. All of it
// is in-memory; nothing survives a restart.
type Store struct {
	mu sync.RWMutex

	tokens  map[string]model.PairingToken
	revoked map[string]map[string]struct{}
	queues  map[string][][]byte
	files   map[string]model.FileRecord

	now          func() time.Time
	pairingTTL   time.Duration
	fileTTL      time.Duration
	maxFileBytes int64
}

type Options struct {
	Now           func() time.Time
	PairingTTL    time.Duration
	FileTTL       time.Duration
	MaxFileBytes  int64
	SweepInterval time.Duration // 0 disables the background sweep
}

func New() *Store {
	return NewWithOptions(Options{SweepInterval: DefaultSweepInterval})
}

func NewWithOptions(opts Options) *Store {
	s := &Store{
		tokens:       make(map[string]model.PairingToken),
		revoked:      make(map[string]map[string]struct{}),
		queues:       make(map[string][][]byte),
		files:        make(map[string]model.FileRecord),
		now:          opts.Now,
		pairingTTL:   opts.PairingTTL,
		fileTTL:      opts.FileTTL,
		maxFileBytes: opts.MaxFileBytes,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.pairingTTL <= 0 {
		s.pairingTTL = DefaultPairingTTL
	}
	if s.fileTTL <= 0 {
		s.fileTTL = DefaultFileTTL
	}
	if s.maxFileBytes <= 0 {
		s.maxFileBytes = DefaultMaxFileBytes
	}

	if opts.SweepInterval > 0 {
		go s.sweep(opts.SweepInterval)
	}
	return s
}

func (s *Store) nowMillis() int64 {
	return s.now().UnixMilli()
}

// sweep purges expired tokens and files on a fixed interval. Memory
// hygiene only: consumption and retrieval re-check expiry themselves.
func (s *Store) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		s.sweepOnce()
	}
}

func (s *Store) sweepOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowMillis()
	for tok, pt := range s.tokens {
		if now >= pt.ExpiresAt {
			delete(s.tokens, tok)
		}
	}
	for id, rec := range s.files {
		if now >= rec.ExpiresAt {
			delete(s.files, id)
		}
	}
}

// Revoke adds the device to the permanent deny-set. There is no unrevoke.
func (s *Store) Revoke(userID, deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.revoked[userID]
	if set == nil {
		set = make(map[string]struct{})
		s.revoked[userID] = set
	}
	set[deviceID] = struct{}{}
}

func (s *Store) IsRevoked(userID, deviceID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.revoked[userID][deviceID]
	return ok
}
