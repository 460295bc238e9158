package store

import (
	"errors"

	"cliprelay/internal/model"
	"github.com/google/uuid"
)

var ErrFileTooLarge = errors.New("file exceeds size cap")

// PutFile stores an offered file transiently and returns its record. The
// record lives until its TTL elapses or the first successful download.
func (s *Store) PutFile(ownerUserID, ownerDeviceID, name, mime string, data []byte) (model.FileRecord, error) {
	if int64(len(data)) > s.maxFileBytes {
		return model.FileRecord{}, ErrFileTooLarge
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := model.FileRecord{
		ID:            uuid.NewString(),
		OwnerUserID:   ownerUserID,
		OwnerDeviceID: ownerDeviceID,
		Name:          name,
		Mime:          mime,
		Size:          int64(len(data)),
		Bytes:         data,
		ExpiresAt:     s.nowMillis() + s.fileTTL.Milliseconds(),
	}
	s.files[rec.ID] = rec
	return rec, nil
}

// TakeFile returns the record and deletes it, permitting at most one
// successful download. Expiry is checked lazily here, so a record past
// its TTL is gone even if the sweep never ran.
func (s *Store) TakeFile(id string) (model.FileRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.files[id]
	if !ok {
		return model.FileRecord{}, false
	}
	delete(s.files, id)
	if s.nowMillis() >= rec.ExpiresAt {
		return model.FileRecord{}, false
	}
	return rec, true
}

// MaxFileBytes is the configured cap on a single stored file.
func (s *Store) MaxFileBytes() int64 {
	return s.maxFileBytes
}
