package browser

import "time"

// IntentType identifies the abstract action a host wants performed.
type IntentType string

const (
	IntentNavigate             IntentType = "navigate"
	IntentClickElement         IntentType = "click_element"
	IntentClickCoordinate      IntentType = "click_coordinate"
	IntentTypeText             IntentType = "type_text"
	IntentScroll               IntentType = "scroll"
	IntentScrollToText         IntentType = "scroll_to_text"
	IntentScreenshot           IntentType = "screenshot"
	IntentSwitchTab            IntentType = "switch_tab"
	IntentCloseTab             IntentType = "close_tab"
	IntentGoBack               IntentType = "go_back"
	IntentGoForward            IntentType = "go_forward"
	IntentRefresh              IntentType = "refresh"
	IntentWait                 IntentType = "wait"
	IntentSendKeys             IntentType = "send_keys"
	IntentGetDropdownOptions   IntentType = "get_dropdown_options"
	IntentSelectDropdownOption IntentType = "select_dropdown_option"
	IntentUploadFile           IntentType = "upload_file"
	IntentRequestState         IntentType = "request_state"
)

// ScrollDirection is the axis and sign of a scroll intent.
type ScrollDirection string

const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

// Intent is one abstract action requested by the host. Only the fields
// relevant to Type are set; use the constructors below.
type Intent struct {
	Type IntentType

	// Navigate
	URL    string
	NewTab bool

	// Index-resolved intents (ClickElement, TypeText, dropdowns, upload, scroll target)
	Index int

	// TypeText, ScrollToText, SendKeys, SelectDropdownOption
	Text string

	// ClickCoordinate
	X, Y float64

	// Scroll
	Direction ScrollDirection
	Pixels    int

	// SwitchTab
	TabIndex int

	// Wait
	Duration time.Duration

	// UploadFile
	FilePath string
}

// Class buckets intents for retry and timeout policy. Navigation-class
// intents get the page-load timeout; everything else gets the command
// timeout.
func (i Intent) Class() ActionClass {
	switch i.Type {
	case IntentNavigate, IntentGoBack, IntentGoForward, IntentRefresh, IntentSwitchTab, IntentCloseTab:
		return ClassNavigation
	default:
		return ClassInteraction
	}
}

// NeedsIndex reports whether the intent references an element by snapshot
// index and therefore requires cache resolution before dispatch.
func (i Intent) NeedsIndex() bool {
	switch i.Type {
	case IntentClickElement, IntentTypeText, IntentGetDropdownOptions, IntentSelectDropdownOption, IntentUploadFile:
		return true
	}
	return false
}

// ActionClass groups intents that share a retry/timeout policy.
type ActionClass string

const (
	ClassNavigation  ActionClass = "navigation"
	ClassInteraction ActionClass = "interaction"
)

func Navigate(url string) Intent        { return Intent{Type: IntentNavigate, URL: url} }
func NavigateNewTab(url string) Intent  { return Intent{Type: IntentNavigate, URL: url, NewTab: true} }
func ClickElement(index int) Intent     { return Intent{Type: IntentClickElement, Index: index} }
func ClickCoordinate(x, y float64) Intent {
	return Intent{Type: IntentClickCoordinate, X: x, Y: y}
}
func TypeText(index int, text string) Intent {
	return Intent{Type: IntentTypeText, Index: index, Text: text}
}
func Scroll(direction ScrollDirection, pixels int) Intent {
	return Intent{Type: IntentScroll, Direction: direction, Pixels: pixels}
}

// ScrollElement scrolls inside the element at index instead of the window.
func ScrollElement(index int, direction ScrollDirection, pixels int) Intent {
	return Intent{Type: IntentScroll, Index: index, Direction: direction, Pixels: pixels}
}
func ScrollToText(text string) Intent { return Intent{Type: IntentScrollToText, Text: text} }
func Screenshot() Intent              { return Intent{Type: IntentScreenshot} }
func SwitchTab(index int) Intent      { return Intent{Type: IntentSwitchTab, TabIndex: index} }
func CloseTab() Intent                { return Intent{Type: IntentCloseTab} }
func GoBack() Intent                  { return Intent{Type: IntentGoBack} }
func GoForward() Intent               { return Intent{Type: IntentGoForward} }
func Refresh() Intent                 { return Intent{Type: IntentRefresh} }
func Wait(d time.Duration) Intent     { return Intent{Type: IntentWait, Duration: d} }
func SendKeys(combo string) Intent    { return Intent{Type: IntentSendKeys, Text: combo} }
func GetDropdownOptions(index int) Intent {
	return Intent{Type: IntentGetDropdownOptions, Index: index}
}
func SelectDropdownOption(index int, option string) Intent {
	return Intent{Type: IntentSelectDropdownOption, Index: index, Text: option}
}
func UploadFile(index int, path string) Intent {
	return Intent{Type: IntentUploadFile, Index: index, FilePath: path}
}
func RequestState() Intent { return Intent{Type: IntentRequestState} }

// Point is a resolved viewport coordinate an action was executed at.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Outcome is the typed success payload of one dispatched intent. Fields are
// populated per intent type; failures are returned as errors, never encoded
// here.
type Outcome struct {
	Intent IntentType `json:"intent"`

	// ClickElement, ClickCoordinate, TypeText
	ClickedAt *Point `json:"clickedAt,omitempty"`

	// TypeText: value read back from the focused element after typing.
	TypedValue string `json:"typedValue,omitempty"`

	// Screenshot
	Screenshot []byte `json:"-"`

	// GetDropdownOptions
	DropdownType string           `json:"dropdownType,omitempty"`
	Options      []DropdownOption `json:"options,omitempty"`

	// SelectDropdownOption
	Message string `json:"message,omitempty"`

	// SwitchTab, CloseTab: the tab that ended up focused.
	ActiveTab *TabInfo `json:"activeTab,omitempty"`

	// RequestState
	State *BrowserState `json:"state,omitempty"`
}
