package relay

import (
	"encoding/json"

	"cliprelay/internal/hub"
	"cliprelay/internal/model"
	"cliprelay/internal/store"
)

// Message type tags pushed by the engine.
const (
	TypeClipSync      = "CLIP_SYNC"
	TypeFileSync      = "FILE_SYNC"
	TypeDeviceList    = "DEVICE_LIST"
	TypeDeviceRevoked = "DEVICE_REVOKED"
)

type deviceRevoked struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Engine fans clipboard and file events out to the eligible peer devices
// of an account, consulting each peer's rules and the revocation set, and
// falling back to the offline queue for text.
type Engine struct {
	Hub   *hub.Hub
	Store *store.Store
}

// RelayClip forwards a clipboard update from the sender to its account
// peers. Open peers whose rules allow the content type get the envelope
// immediately; known offline peers get text queued and everything else
// dropped.
func (e *Engine) RelayClip(sender hub.Session, contentType, payload string, timestamp int64) {
	envelope := model.ClipSync{
		Type:        TypeClipSync,
		From:        sender.Identity(),
		ContentType: contentType,
		Timestamp:   timestamp,
		Payload:     payload,
	}
	frame, err := json.Marshal(envelope)
	if err != nil {
		return
	}

	for _, peer := range e.Hub.Snapshot(sender.UserID) {
		if peer.DeviceID == sender.DeviceID {
			continue
		}
		if !peer.Rules.Allows(contentType) {
			continue
		}
		if e.deliver(peer, frame) {
			continue
		}
		if contentType == model.ContentText {
			e.Store.Enqueue(peer.UserID, peer.DeviceID, frame)
		}
	}
}

// deliver writes the frame to an open peer, detaching the writer on
// failure so the frame can be queued instead. Reports success.
func (e *Engine) deliver(peer hub.Session, frame []byte) bool {
	if !peer.Connected() {
		return false
	}
	if err := peer.Writer.Write(frame); err != nil {
		_ = peer.Writer.Close()
		e.Hub.Disconnect(peer.UserID, peer.DeviceID, peer.Writer)
		return false
	}
	return true
}

// OfferFile stores the offered bytes transiently and announces the file,
// metadata only, to open peers whose file rule allows it. The bytes are
// never pushed over the relay channel; peers pull them by id.
func (e *Engine) OfferFile(sender hub.Session, name, mime string, data []byte) (model.FileRecord, error) {
	rec, err := e.Store.PutFile(sender.UserID, sender.DeviceID, name, mime, data)
	if err != nil {
		return model.FileRecord{}, err
	}

	announcement := model.FileSync{
		Type:   TypeFileSync,
		From:   sender.Identity(),
		FileID: rec.ID,
		Name:   rec.Name,
		Size:   rec.Size,
		Mime:   rec.Mime,
	}
	frame, err := json.Marshal(announcement)
	if err != nil {
		return rec, nil
	}

	for _, peer := range e.Hub.Snapshot(sender.UserID) {
		if peer.DeviceID == sender.DeviceID {
			continue
		}
		if !peer.Rules.File {
			continue
		}
		e.deliver(peer, frame)
	}
	return rec, nil
}

// FlushQueue delivers the device's offline backlog in enqueue order over
// its live connection.
func (e *Engine) FlushQueue(s hub.Session) {
	if !s.Connected() {
		return
	}
	for _, frame := range e.Store.FlushQueue(s.UserID, s.DeviceID) {
		if err := s.Writer.Write(frame); err != nil {
			return
		}
	}
}

// PublishPresence rebuilds the account's device list and pushes it to
// every open connection, best-effort.
func (e *Engine) PublishPresence(userID string) {
	list := model.DeviceList{
		Type: TypeDeviceList,
		Devices: e.Hub.Presence(userID, func(deviceID string) bool {
			return e.Store.IsRevoked(userID, deviceID)
		}),
	}
	frame, err := json.Marshal(list)
	if err != nil {
		return
	}
	e.Hub.Broadcast(userID, frame)
}

// RevokeDevice marks the device permanently denied, force-closes its live
// connection if any, drops its backlog and rebroadcasts presence.
func (e *Engine) RevokeDevice(userID, deviceID string) {
	e.Store.Revoke(userID, deviceID)
	e.Store.DropQueue(userID, deviceID)

	if s, ok := e.Hub.Remove(userID, deviceID); ok && s.Connected() {
		frame, err := json.Marshal(deviceRevoked{Type: TypeDeviceRevoked, Message: "Device revoked"})
		if err == nil {
			_ = s.Writer.Write(frame)
		}
		_ = s.Writer.Close()
	}

	e.PublishPresence(userID)
}
