package relay

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cliprelay/internal/hub"
	"cliprelay/internal/model"
	"cliprelay/internal/store"
)

type fakeWriter struct {
	frames []string
	closed bool
	fail   bool
}

func (w *fakeWriter) Write(message []byte) error {
	if w.fail {
		return assert.AnError
	}
	w.frames = append(w.frames, string(message))
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func (w *fakeWriter) typed(t *testing.T) []map[string]any {
	t.Helper()
	result := make([]map[string]any, 0, len(w.frames))
	for _, f := range w.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(f), &m))
		result = append(result, m)
	}
	return result
}

func newEngine() (*Engine, *hub.Hub, *store.Store) {
	h := hub.New()
	s := store.NewWithOptions(store.Options{})
	return &Engine{Hub: h, Store: s}, h, s
}

func register(h *hub.Hub, userID, deviceID, platform string, w hub.Writer) hub.Session {
	s := &hub.Session{
		UserID:   userID,
		DeviceID: deviceID,
		Platform: platform,
		Name:     deviceID,
		Rules:    model.DefaultRules(platform),
		Writer:   w,
	}
	h.Register(s)
	return *s
}

func TestRelayClip_DeliversToOpenPeer(t *testing.T) {
	e, h, _ := newEngine()
	wA := &fakeWriter{}
	wB := &fakeWriter{}
	sender := register(h, "u1", "d1", "macos", wA)
	register(h, "u1", "d2", "linux", wB)

	e.RelayClip(sender, model.ContentText, "hello", 1234)

	require.Len(t, wB.frames, 1)
	frame := wB.typed(t)[0]
	assert.Equal(t, TypeClipSync, frame["type"])
	assert.Equal(t, "hello", frame["payload"])
	assert.Equal(t, "text", frame["contentType"])
	from := frame["from"].(map[string]any)
	assert.Equal(t, "d1", from["deviceId"])

	assert.Empty(t, wA.frames, "sender must not receive its own update")
}

func TestRelayClip_RuleFiltering(t *testing.T) {
	e, h, _ := newEngine()
	wB := &fakeWriter{}
	sender := register(h, "u1", "d1", "macos", &fakeWriter{})
	register(h, "u1", "d2", "linux", wB)

	off := false
	_, ok := h.UpdateRules("u1", "d2", model.RulePatch{Image: &off})
	require.True(t, ok)

	e.RelayClip(sender, model.ContentImage, "pixels", 1)
	assert.Empty(t, wB.frames, "peer with image disabled must receive nothing")

	e.RelayClip(sender, model.ContentText, "words", 2)
	require.Len(t, wB.frames, 1)
	assert.Equal(t, "words", wB.typed(t)[0]["payload"])
}

func TestRelayClip_QueuesTextForOfflinePeer(t *testing.T) {
	e, h, st := newEngine()
	wB := &fakeWriter{}
	sender := register(h, "u1", "d1", "macos", &fakeWriter{})
	register(h, "u1", "d2", "linux", wB)
	h.Disconnect("u1", "d2", wB)

	e.RelayClip(sender, model.ContentText, "offline-msg", 1)
	e.RelayClip(sender, model.ContentImage, "pixels", 2)

	assert.Equal(t, 1, st.QueueLen("u1", "d2"), "only text is queued")

	frames := st.FlushQueue("u1", "d2")
	require.Len(t, frames, 1)
	var m map[string]any
	require.NoError(t, json.Unmarshal(frames[0], &m))
	assert.Equal(t, "offline-msg", m["payload"])
}

func TestRelayClip_FailedWriteFallsBackToQueue(t *testing.T) {
	e, h, st := newEngine()
	wB := &fakeWriter{fail: true}
	sender := register(h, "u1", "d1", "macos", &fakeWriter{})
	register(h, "u1", "d2", "linux", wB)

	e.RelayClip(sender, model.ContentText, "hello", 1)

	assert.True(t, wB.closed, "failed writer must be closed")
	assert.Equal(t, 1, st.QueueLen("u1", "d2"))
	if s, _ := h.Get("u1", "d2"); s.Connected() {
		t.Fatalf("expected failed writer to be detached")
	}
}

func TestOfferFile_AnnouncesMetadataOnly(t *testing.T) {
	e, h, _ := newEngine()
	wB := &fakeWriter{}
	wC := &fakeWriter{}
	sender := register(h, "u1", "d1", "macos", &fakeWriter{})
	register(h, "u1", "d2", "linux", wB)
	register(h, "u1", "d3", "android", wC)

	rec, err := e.OfferFile(sender, "notes.txt", "text/plain", []byte("contents"))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)

	require.Len(t, wB.frames, 1)
	frame := wB.typed(t)[0]
	assert.Equal(t, TypeFileSync, frame["type"])
	assert.Equal(t, rec.ID, frame["fileId"])
	assert.Equal(t, "notes.txt", frame["name"])
	assert.Equal(t, float64(8), frame["size"])
	assert.NotContains(t, wB.frames[0], "contents", "bytes never ride the relay channel")

	assert.Empty(t, wC.frames, "android defaults to file disabled")
}

func TestOfferFile_SizeCap(t *testing.T) {
	h := hub.New()
	st := store.NewWithOptions(store.Options{MaxFileBytes: 4})
	e := &Engine{Hub: h, Store: st}
	sender := register(h, "u1", "d1", "macos", &fakeWriter{})

	_, err := e.OfferFile(sender, "big.bin", "application/octet-stream", []byte("12345"))
	assert.ErrorIs(t, err, store.ErrFileTooLarge)
}

func TestFlushQueue_PreservesOrder(t *testing.T) {
	e, h, st := newEngine()
	st.Enqueue("u1", "d2", []byte(`{"payload":"one"}`))
	st.Enqueue("u1", "d2", []byte(`{"payload":"two"}`))

	wB := &fakeWriter{}
	sess := register(h, "u1", "d2", "linux", wB)
	e.FlushQueue(sess)

	require.Len(t, wB.frames, 2)
	assert.Contains(t, wB.frames[0], "one")
	assert.Contains(t, wB.frames[1], "two")

	e.FlushQueue(sess)
	assert.Len(t, wB.frames, 2, "flush delivers exactly once")
}

func TestPublishPresence(t *testing.T) {
	e, h, st := newEngine()
	wA := &fakeWriter{}
	register(h, "u1", "d1", "macos", wA)
	register(h, "u1", "d2", "linux", &fakeWriter{})
	st.Revoke("u1", "d2")

	e.PublishPresence("u1")

	require.Len(t, wA.frames, 1)
	frame := wA.typed(t)[0]
	assert.Equal(t, TypeDeviceList, frame["type"])
	devices := frame["devices"].([]any)
	require.Len(t, devices, 2)
	for _, d := range devices {
		entry := d.(map[string]any)
		if entry["deviceId"] == "d2" {
			assert.Equal(t, true, entry["revoked"])
		} else {
			assert.Equal(t, false, entry["revoked"])
		}
	}
}

func TestRevokeDevice_ClosesLiveSession(t *testing.T) {
	e, h, st := newEngine()
	wA := &fakeWriter{}
	wB := &fakeWriter{}
	register(h, "u1", "d1", "macos", wA)
	register(h, "u1", "d2", "linux", wB)
	st.Enqueue("u1", "d2", []byte("stale"))

	e.RevokeDevice("u1", "d2")

	assert.True(t, st.IsRevoked("u1", "d2"))
	assert.True(t, wB.closed, "live session must be force-closed")
	require.NotEmpty(t, wB.frames)
	assert.Contains(t, wB.frames[len(wB.frames)-1], TypeDeviceRevoked)
	assert.Equal(t, 0, st.QueueLen("u1", "d2"))

	if _, ok := h.Get("u1", "d2"); ok {
		t.Fatalf("expected revoked device record to be removed")
	}

	// survivors see the shrunken list
	require.NotEmpty(t, wA.frames)
	assert.Contains(t, wA.frames[len(wA.frames)-1], TypeDeviceList)
}
