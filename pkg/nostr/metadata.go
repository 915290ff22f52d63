package nostr

import (
	"encoding/json"
	"fmt"
)

// Metadata is the profile content of a kind-0 event.
type Metadata struct {
	Name        string `json:"name,omitempty"`
	About       string `json:"about,omitempty"`
	Picture     string `json:"picture,omitempty"`
	Banner      string `json:"banner,omitempty"`
	NIP05       string `json:"nip05,omitempty"`
	LUD16       string `json:"lud16,omitempty"`
	LUD06       string `json:"lud06,omitempty"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Website     string `json:"website,omitempty"`
}

// MetadataUpdate is an explicit field-update set for profile metadata. Only
// non-nil fields replace the stored value; nil leaves a field unchanged, and
// a pointer to "" clears it.
type MetadataUpdate struct {
	Name        *string
	About       *string
	Picture     *string
	Banner      *string
	NIP05       *string
	LUD16       *string
	LUD06       *string
	Username    *string
	DisplayName *string
	Website     *string
}

// apply overlays the update onto base and returns the result.
func (u MetadataUpdate) apply(base Metadata) Metadata {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&base.Name, u.Name)
	set(&base.About, u.About)
	set(&base.Picture, u.Picture)
	set(&base.Banner, u.Banner)
	set(&base.NIP05, u.NIP05)
	set(&base.LUD16, u.LUD16)
	set(&base.LUD06, u.LUD06)
	set(&base.Username, u.Username)
	set(&base.DisplayName, u.DisplayName)
	set(&base.Website, u.Website)
	return base
}

// ParseMetadata decodes the profile content of a kind-0 event.
func ParseMetadata(ev *Event) (*Metadata, error) {
	if ev.Kind != KindProfileMetadata {
		return nil, fmt.Errorf("nostr: event kind %d is not profile metadata", ev.Kind)
	}
	var m Metadata
	if err := json.Unmarshal([]byte(ev.Content), &m); err != nil {
		return nil, fmt.Errorf("nostr: decode profile metadata: %w", err)
	}
	return &m, nil
}

// String is a convenience for building MetadataUpdate literals.
func String(s string) *string { return &s }
