package model

// Rules is a device's per-content-type delivery policy. A disabled content
// type is never relayed to the device.
type Rules struct {
	Text  bool `json:"text"`
	Image bool `json:"image"`
	File  bool `json:"file"`
}

// RulePatch is a partial rules update. Only non-nil fields change.
type RulePatch struct {
	Text  *bool `json:"text,omitempty"`
	Image *bool `json:"image,omitempty"`
	File  *bool `json:"file,omitempty"`
}

// DefaultRules returns the rules a device starts with at authentication.
// Text is always on. File transfer is off for android, where background
// file handling is unreliable.
func DefaultRules(platform string) Rules {
	return Rules{
		Text:  true,
		Image: true,
		File:  platform != "android",
	}
}

// Apply merges a partial update into the rules, shallow: only supplied
// keys change.
func (r Rules) Apply(p RulePatch) Rules {
	if p.Text != nil {
		r.Text = *p.Text
	}
	if p.Image != nil {
		r.Image = *p.Image
	}
	if p.File != nil {
		r.File = *p.File
	}
	return r
}

// Allows reports whether the given content type may be delivered to the
// device. Unknown content types are never delivered.
func (r Rules) Allows(contentType string) bool {
	switch contentType {
	case ContentText:
		return r.Text
	case ContentImage:
		return r.Image
	case ContentFile:
		return r.File
	}
	return false
}
