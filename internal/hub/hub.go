package hub

import (
	"sync"

	"cliprelay/internal/model"
)

// Writer is the transport half of a device connection. Writes are
// best-effort; a failing writer is closed and detached.
type Writer interface {
	Write(message []byte) error
	Close() error
}

// Session is one device's registry entry. Writer is nil while the device
// is known but disconnected; the record itself survives disconnect so the
// offline queue has an addressee.
type Session struct {
	UserID   string
	DeviceID string
	Platform string
	Name     string
	Rules    model.Rules
	LastSeen int64
	Writer   Writer
}

func (s *Session) Connected() bool { return s.Writer != nil }

func (s *Session) Identity() model.Identity {
	return model.Identity{DeviceID: s.DeviceID, Platform: s.Platform, Name: s.Name}
}

// Hub is the session registry: the authoritative mapping of account to
// device sessions. At most one live connection exists per (userID,
// deviceID) at any instant.
type Hub struct {
	mu      sync.RWMutex
	devices map[string]map[string]*Session
}

func New() *Hub {
	return &Hub{devices: make(map[string]map[string]*Session)}
}

// Register installs the session as the live entry for its (userID,
// deviceID) slot. A prior live connection in the same slot is force-closed
// before the new one takes over, so a stale handle never lingers to
// receive duplicate deliveries.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	set := h.devices[s.UserID]
	if set == nil {
		set = make(map[string]*Session)
		h.devices[s.UserID] = set
	}
	var evicted Writer
	if prev, ok := set[s.DeviceID]; ok && prev.Writer != nil && prev.Writer != s.Writer {
		evicted = prev.Writer
	}
	set[s.DeviceID] = s
	h.mu.Unlock()

	if evicted != nil {
		_ = evicted.Close()
	}
}

// Disconnect detaches w from its slot, keeping the device record for
// later offline queueing. It is a no-op when w no longer owns the slot,
// which happens after a duplicate registration evicted it.
func (h *Hub) Disconnect(userID, deviceID string, w Writer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.devices[userID][deviceID]
	if !ok || s.Writer != w {
		return false
	}
	s.Writer = nil
	return true
}

// Remove drops the device record entirely. Used on revocation; the empty
// account is garbage-collected.
func (h *Hub) Remove(userID, deviceID string) (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.devices[userID]
	s, ok := set[deviceID]
	if !ok {
		return nil, false
	}
	delete(set, deviceID)
	if len(set) == 0 {
		delete(h.devices, userID)
	}
	return s, true
}

// Touch records inbound activity for the device.
func (h *Hub) Touch(userID, deviceID string, now int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.devices[userID][deviceID]; ok {
		s.LastSeen = now
	}
}

// UpdateRules merges a partial rules update into the device's policy and
// returns the merged result.
func (h *Hub) UpdateRules(userID, deviceID string, patch model.RulePatch) (model.Rules, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.devices[userID][deviceID]
	if !ok {
		return model.Rules{}, false
	}
	s.Rules = s.Rules.Apply(patch)
	return s.Rules, true
}

// Get returns a copy of the device's session.
func (h *Hub) Get(userID, deviceID string) (Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s, ok := h.devices[userID][deviceID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Snapshot returns point-in-time copies of every device record of the
// account, connected or not. Safe to iterate while peers disconnect.
func (h *Hub) Snapshot(userID string) []Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.devices[userID]
	result := make([]Session, 0, len(set))
	for _, s := range set {
		result = append(result, *s)
	}
	return result
}

// Presence builds the device-list rows for the account: only currently
// open connections appear, flagged through isRevoked.
func (h *Hub) Presence(userID string, isRevoked func(deviceID string) bool) []model.PresenceEntry {
	snapshot := h.Snapshot(userID)
	result := make([]model.PresenceEntry, 0, len(snapshot))
	for _, s := range snapshot {
		if !s.Connected() {
			continue
		}
		result = append(result, model.PresenceEntry{
			DeviceID: s.DeviceID,
			Platform: s.Platform,
			Name:     s.Name,
			Rules:    s.Rules,
			LastSeen: s.LastSeen,
			Revoked:  isRevoked(s.DeviceID),
		})
	}
	return result
}

// Broadcast sends the message to every open connection of the account,
// best-effort. Failed writers are closed and detached.
func (h *Hub) Broadcast(userID string, message []byte) {
	snapshot := h.Snapshot(userID)

	for _, s := range snapshot {
		if !s.Connected() {
			continue
		}
		if err := s.Writer.Write(message); err != nil {
			_ = s.Writer.Close()
			h.Disconnect(s.UserID, s.DeviceID, s.Writer)
		}
	}
}
