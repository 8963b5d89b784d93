package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ExtractorConfig tunes the extraction pass. Visibility thresholds are
// deliberately configurable; no specific cutoff is load-bearing for
// correctness.
type ExtractorConfig struct {
	// MaxElements caps the walk so a pathological page cannot blow up the
	// script round-trip.
	MaxElements int

	// MaxTextLength bounds per-element text content.
	MaxTextLength int

	// MinVisibleArea is the minimum rect area (px²) for IsVisible.
	MinVisibleArea float64

	// OpacityCutoff marks elements at or below this computed opacity as not
	// visible.
	OpacityCutoff float64
}

// DefaultExtractorConfig returns the extraction defaults.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		MaxElements:    400,
		MaxTextLength:  300,
		MinVisibleArea: 1,
		OpacityCutoff:  0,
	}
}

// Extractor turns a live page into an ExtractionSnapshot through a single
// script round-trip. Per-element round-trips are avoided on purpose: each
// round-trip is a latency and failure-mode risk on this transport.
type Extractor struct {
	cfg ExtractorConfig
}

// NewExtractor creates an extractor with the given config, filling zero
// fields from defaults.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	def := DefaultExtractorConfig()
	if cfg.MaxElements <= 0 {
		cfg.MaxElements = def.MaxElements
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = def.MaxTextLength
	}
	if cfg.MinVisibleArea <= 0 {
		cfg.MinVisibleArea = def.MinVisibleArea
	}
	return &Extractor{cfg: cfg}
}

// extractionPayload mirrors the script's return value.
type extractionPayload struct {
	URL            string           `json:"url"`
	Title          string           `json:"title"`
	ViewportWidth  int              `json:"viewport_width"`
	ViewportHeight int              `json:"viewport_height"`
	Elements       []elementPayload `json:"elements"`
}

type elementPayload struct {
	Index        int               `json:"index"`
	TagName      string            `json:"tag_name"`
	TextContent  string            `json:"text_content"`
	Attributes   map[string]string `json:"attributes"`
	BoundingRect DOMRect           `json:"bounding_rect"`
	IsVisible    bool              `json:"is_visible"`
	IsScrollable bool              `json:"is_scrollable"`
	XPath        string            `json:"xpath"`
	CSSSelector  string            `json:"css_selector"`
}

// Extract runs one extraction pass against the transport.
func (e *Extractor) Extract(ctx context.Context, t Transport) (*ExtractionSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := t.RunScript(extractionScript,
		e.cfg.MaxElements, e.cfg.MaxTextLength, e.cfg.MinVisibleArea, e.cfg.OpacityCutoff)
	if err != nil {
		return nil, &ExtractionError{Reason: "script injection failed", Cause: err}
	}

	payload, err := decodeExtractionPayload(raw)
	if err != nil {
		return nil, err
	}

	elements := make([]ElementRecord, 0, len(payload.Elements))
	for _, el := range payload.Elements {
		if el.TagName == "" {
			return nil, &ExtractionError{Reason: fmt.Sprintf("element %d has no tag name", el.Index)}
		}
		// The script already applies the area threshold; re-check here so a
		// malformed payload can never mark a zero-area element visible.
		visible := el.IsVisible && el.BoundingRect.Area() >= e.cfg.MinVisibleArea
		elements = append(elements, ElementRecord{
			Index:        el.Index,
			TagName:      el.TagName,
			TextContent:  el.TextContent,
			Attributes:   el.Attributes,
			BoundingRect: el.BoundingRect,
			IsVisible:    visible,
			IsScrollable: el.IsScrollable,
			XPath:        el.XPath,
			CSSSelector:  el.CSSSelector,
		})
	}
	if err := validateIndices(elements); err != nil {
		return nil, err
	}

	return &ExtractionSnapshot{
		ID:       uuid.New(),
		Elements: elements,
		Page: PageIdentity{
			URL:         payload.URL,
			Fingerprint: fingerprint(payload.URL, elements),
		},
		Title:          payload.Title,
		ViewportWidth:  payload.ViewportWidth,
		ViewportHeight: payload.ViewportHeight,
		TakenAt:        time.Now(),
	}, nil
}

// decodeExtractionPayload converts the transport's loosely typed script
// result into the typed payload by round-tripping through JSON.
func decodeExtractionPayload(raw any) (*extractionPayload, error) {
	if raw == nil {
		return nil, &ExtractionError{Reason: "script returned no data"}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, &ExtractionError{Reason: "script result not serializable", Cause: err}
	}
	var payload extractionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &ExtractionError{Reason: "malformed extraction payload", Cause: err}
	}
	if payload.URL == "" {
		return nil, &ExtractionError{Reason: "extraction payload missing page url"}
	}
	return &payload, nil
}

// validateIndices enforces the snapshot invariant: indices are a contiguous
// 1-based sequence with no gaps or repeats.
func validateIndices(elements []ElementRecord) error {
	for i, el := range elements {
		if el.Index != i+1 {
			return &ExtractionError{Reason: fmt.Sprintf("non-contiguous element index %d at position %d", el.Index, i)}
		}
	}
	return nil
}

// fingerprint computes the cheap page identity hash: element count plus an
// FNV-1a digest of tags, attributes, and text prefixes. It only needs to be
// stable across repeated extractions of an unchanged page.
func fingerprint(url string, elements []ElementRecord) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d", url, len(elements))
	for _, el := range elements {
		fmt.Fprintf(h, "|%s", el.TagName)
		keys := make([]string, 0, len(el.Attributes))
		for k := range el.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(h, ";%s=%s", k, el.Attributes[k])
		}
		text := el.TextContent
		if len(text) > 80 {
			text = text[:80]
		}
		fmt.Fprintf(h, "#%s", text)
	}
	return h.Sum64()
}
