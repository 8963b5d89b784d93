package browser

import (
	"time"

	"github.com/google/uuid"
)

// DOMRect describes viewport-relative element bounds.
type DOMRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the rect area in square pixels.
func (r DOMRect) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Center returns the midpoint of the rect in viewport coordinates.
func (r DOMRect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// ElementRecord is one interactive element as seen in a single extraction pass.
// Index values are 1-based and only meaningful within the snapshot that
// produced them.
type ElementRecord struct {
	Index        int               `json:"index"`
	TagName      string            `json:"tagName"`
	TextContent  string            `json:"textContent,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	BoundingRect DOMRect           `json:"boundingRect"`
	IsVisible    bool              `json:"isVisible"`
	IsScrollable bool              `json:"isScrollable"`
	CSSSelector  string            `json:"cssSelector,omitempty"`
	XPath        string            `json:"xpath,omitempty"`
}

// PageIdentity pairs the page URL with a cheap content fingerprint. The
// fingerprint only answers "did anything obviously change"; it is not a
// content hash.
type PageIdentity struct {
	URL         string `json:"url"`
	Fingerprint uint64 `json:"fingerprint"`
}

// ExtractionSnapshot is the immutable result of one extraction pass. Snapshots
// are replaced wholesale, never patched, so concurrent readers always observe
// a consistent element list.
type ExtractionSnapshot struct {
	ID             uuid.UUID       `json:"id"`
	Elements       []ElementRecord `json:"elements"`
	Page           PageIdentity    `json:"page"`
	Title          string          `json:"title,omitempty"`
	ViewportWidth  int             `json:"viewportWidth"`
	ViewportHeight int             `json:"viewportHeight"`
	TakenAt        time.Time       `json:"takenAt"`
}

// Element returns the record for a 1-based index, or false when the index is
// not part of this snapshot.
func (s *ExtractionSnapshot) Element(index int) (ElementRecord, bool) {
	if s == nil || index < 1 || index > len(s.Elements) {
		return ElementRecord{}, false
	}
	return s.Elements[index-1], true
}

// TabInfo is tab metadata as reported by the transport.
type TabInfo struct {
	Index  int    `json:"index"`
	Handle string `json:"handle"`
	URL    string `json:"url"`
	Title  string `json:"title,omitempty"`
}

// PageInfo carries page and scroll geometry captured alongside a state request.
type PageInfo struct {
	ViewportWidth  int `json:"viewportWidth"`
	ViewportHeight int `json:"viewportHeight"`
	PageWidth      int `json:"pageWidth"`
	PageHeight     int `json:"pageHeight"`
	ScrollX        int `json:"scrollX"`
	ScrollY        int `json:"scrollY"`
	PixelsAbove    int `json:"pixelsAbove"`
	PixelsBelow    int `json:"pixelsBelow"`
}

// DropdownOption is one option read from a native select or a custom
// role-based dropdown.
type DropdownOption struct {
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
}

// BrowserState is the full answer to a RequestState intent: a fresh snapshot,
// page text, tab list, geometry, and optionally a screenshot.
type BrowserState struct {
	Snapshot     *ExtractionSnapshot `json:"snapshot"`
	URL          string              `json:"url"`
	Title        string              `json:"title,omitempty"`
	Text         string              `json:"text,omitempty"`
	Tabs         []TabInfo           `json:"tabs,omitempty"`
	PageInfo     PageInfo            `json:"pageInfo"`
	Screenshot   []byte              `json:"-"`
	RecentEvents []string            `json:"recentEvents,omitempty"`
	Errors       []string            `json:"errors,omitempty"`
}

// Cookie is the transport-level cookie representation.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}
