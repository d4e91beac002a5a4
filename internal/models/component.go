package models

import "time"

// ComponentKind enumerates the reusable pieces a combination is assembled from.
type ComponentKind string

const (
	KindMediaAsset  ComponentKind = "media_asset"
	KindHeadline    ComponentKind = "headline"
	KindBody        ComponentKind = "body"
	KindDescription ComponentKind = "description"
	KindCTA         ComponentKind = "cta"
)

// Media types for media asset components.
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// Metadata keys used on components.
const (
	MetaUploadRef  = "upload_ref"
	MetaUploadKind = "upload_kind"
)

// Component is one piece of ad content. Text and media are immutable; Metadata is the only
// mutable part and caches the platform upload reference so media is never uploaded twice.
type Component struct {
	ID        string            `json:"id"`
	AccountID string            `json:"account_id"`
	Kind      ComponentKind     `json:"kind"`
	Text      string            `json:"text,omitempty"`
	MediaType string            `json:"media_type,omitempty"`
	MediaURL  string            `json:"media_url,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// UploadRef returns the cached platform media reference, or "" when none is stored.
func (c *Component) UploadRef() string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata[MetaUploadRef]
}

// SetUploadRef records the platform media reference and its kind.
func (c *Component) SetUploadRef(kind, ref string) {
	if c.Metadata == nil {
		c.Metadata = make(map[string]string, 2)
	}
	c.Metadata[MetaUploadRef] = ref
	c.Metadata[MetaUploadKind] = kind
}

// Clone returns a copy with its own metadata map.
func (c Component) Clone() Component {
	out := c
	if c.Metadata != nil {
		out.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
