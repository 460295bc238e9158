package model

// Content types a clipboard update may carry. Delivery rules are keyed by
// these.
const (
	ContentText  = "text"
	ContentImage = "image"
	ContentFile  = "file"
)

// Identity is the public identity of a device, as exposed to its peers in
// relay envelopes.
type Identity struct {
	DeviceID string `json:"deviceId"`
	Platform string `json:"platform"`
	Name     string `json:"name"`
}

// PresenceEntry is one row of a DEVICE_LIST payload.
type PresenceEntry struct {
	DeviceID string `json:"deviceId"`
	Platform string `json:"platform"`
	Name     string `json:"name"`
	Rules    Rules  `json:"rules"`
	LastSeen int64  `json:"lastSeen"`
	Revoked  bool   `json:"revoked"`
}

// DeviceList is the presence payload pushed to every open connection of an
// account whenever membership, rules or revocations change.
type DeviceList struct {
	Type    string          `json:"type"`
	Devices []PresenceEntry `json:"devices"`
}

// ClipSync is the relay envelope for a clipboard update. Payload is opaque
// to the relay; whatever the sender supplied is forwarded verbatim.
type ClipSync struct {
	Type        string   `json:"type"`
	From        Identity `json:"from"`
	ContentType string   `json:"contentType"`
	Timestamp   int64    `json:"timestamp"`
	Payload     string   `json:"payload"`
}

// FileSync is the metadata-only announcement of an offered file. The bytes
// themselves are fetched out of band via GET /file/{id}.
type FileSync struct {
	Type   string   `json:"type"`
	From   Identity `json:"from"`
	FileID string   `json:"fileId"`
	Name   string   `json:"name"`
	Size   int64    `json:"size"`
	Mime   string   `json:"mime"`
}

// PairingToken is a single-use, time-bound credential binding a new device
// to an account.
type PairingToken struct {
	Token     string
	UserID    string
	ExpiresAt int64
}

// FileRecord is a transiently stored file. Deleted on first successful
// download or on TTL expiry, whichever comes first.
type FileRecord struct {
	ID            string
	OwnerUserID   string
	OwnerDeviceID string
	Name          string
	Mime          string
	Size          int64
	Bytes         []byte
	ExpiresAt     int64
}
