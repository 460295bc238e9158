package store

// The offline queue holds undelivered text frames per (userID, deviceID),
// append-only until flushed. Only text clipboard messages are ever queued;
// images and files to an offline peer are dropped at the relay.

func queueKey(userID, deviceID string) string {
	return userID + "|" + deviceID
}

// Enqueue appends a pre-marshaled frame to the device's backlog.
func (s *Store) Enqueue(userID, deviceID string, frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := queueKey(userID, deviceID)
	s.queues[key] = append(s.queues[key], frame)
}

// FlushQueue removes and returns the device's backlog in enqueue order.
// The caller delivers; a frame is flushed exactly once.
func (s *Store) FlushQueue(userID, deviceID string) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := queueKey(userID, deviceID)
	frames := s.queues[key]
	if frames == nil {
		return nil
	}
	delete(s.queues, key)
	return frames
}

// DropQueue discards the device's backlog. Used on revocation, which makes
// the backlog undeliverable.
func (s *Store) DropQueue(userID, deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.queues, queueKey(userID, deviceID))
}

// QueueLen reports the device's pending backlog size.
func (s *Store) QueueLen(userID, deviceID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.queues[queueKey(userID, deviceID)])
}
