// Package status tracks the lifecycle phase and last value of named
// entities. Phases come from a fixed vocabulary that renders as an
// "icon title" pair; unknown phases pass through as literal text so
// callers can never fail by reporting a status.
package status

import "fmt"

// Phase identifies a lifecycle state in the status vocabulary.
type Phase string

// Phases used directly by the coordination core. The full rendering
// vocabulary in phaseContent covers many more.
const (
	PhasePending    Phase = "pending"
	PhaseIdle       Phase = "idle"
	PhaseRunning    Phase = "running"
	PhaseProcessing Phase = "processing"
	PhaseSuccess    Phase = "success"
	PhaseComplete   Phase = "complete"
	PhaseError      Phase = "error"
	PhaseFailure    Phase = "failure"
	PhaseCancelled  Phase = "cancelled"
	PhaseWaiting    Phase = "waiting"
)

// rendering holds the display form of a known phase.
type rendering struct {
	Title string
	Icon  string
}

// phaseContent is the fixed status vocabulary. Unknown phases render
// as their raw string instead.
var phaseContent = map[Phase]rendering{
	"aborted":       {"Aborted", "⛔️"},
	"cancelled":     {"Cancelled", "❌"},
	"cleaning":      {"Cleaning", "🧹"},
	"compiling":     {"Compiling", "🔨"},
	"complete":      {"Complete", "✅"},
	"connecting":    {"Connecting", "🔗"},
	"deleting":      {"Deleting", "🗑"},
	"disconnecting": {"Disconnecting", "🔌"},
	"downloading":   {"Downloading", "⬇️"},
	"error":         {"Error", "❗️"},
	"exporting":     {"Exporting", "📤"},
	"failure":       {"Failure", "❌"},
	"finished":      {"Finished", "🎉"},
	"idle":          {"Idle", "🕛"},
	"importing":     {"Importing", "📥"},
	"installing":    {"Installing", "🔧"},
	"loading":       {"Loading", "⏳"},
	"paused":        {"Paused", "⏸"},
	"pending":       {"Pending", "🕒"},
	"processing":    {"Processing", "⚙️"},
	"progress":      {"Progress", "🔄"},
	"receiving":     {"Receiving", "📩"},
	"refreshing":    {"Refreshing", "🔄"},
	"rendering":     {"Rendering", "🎨"},
	"restarting":    {"Restarting", "🔄"},
	"resuming":      {"Resuming", "▶️"},
	"running":       {"Running", "🏃"},
	"saving":        {"Saving", "💾"},
	"scanning":      {"Scanning", "🔍"},
	"sending":       {"Sending", "📤"},
	"size":          {"Size", "📐"},
	"started":       {"Started", "🚀"},
	"success":       {"Success", "✅"},
	"syncing":       {"Syncing", "🔄"},
	"uninstalling":  {"Uninstalling", "🔧"},
	"updating":      {"Updating", "🔃"},
	"uploading":     {"Uploading", "⬆️"},
	"validating":    {"Validating", "✅"},
	"verifying":     {"Verifying", "✅"},
	"waiting":       {"Waiting", "⌛️"},
}

// Known reports whether the phase is part of the fixed vocabulary.
func (p Phase) Known() bool {
	_, ok := phaseContent[p]
	return ok
}

// Render returns the display form of the phase: "icon title" for
// vocabulary entries, the raw string otherwise.
func (p Phase) Render() string {
	if r, ok := phaseContent[p]; ok {
		return r.Icon + " " + r.Title
	}
	return string(p)
}

// Title returns the title of a vocabulary phase, or the raw string
// for unknown phases.
func (p Phase) Title() string {
	if r, ok := phaseContent[p]; ok {
		return r.Title
	}
	return string(p)
}

// Rendered is the observable output of a status item: the rendered
// phase plus the rendered value.
type Rendered struct {
	Status string `json:"status"`
	Value  string `json:"value"`
}

// String returns the rendered status followed by the rendered value.
func (r Rendered) String() string {
	return r.Status + " " + r.Value
}

// Item records the current phase and last value of one named entity.
// Setting a status never fails: unknown phases degrade to literal text.
type Item struct {
	name     string
	phase    Phase
	value    any
	rendered Rendered
}

// NewItem creates a status item for the named entity. An empty phase
// defaults to pending.
func NewItem(name string, phase Phase, value any) *Item {
	if phase == "" {
		phase = PhasePending
	}
	it := &Item{name: name}
	it.Set(phase, value)
	return it
}

// Name returns the entity name this item tracks.
func (it *Item) Name() string {
	return it.name
}

// Phase returns the current phase.
func (it *Item) Phase() Phase {
	return it.phase
}

// Value returns the last recorded value.
func (it *Item) Value() any {
	return it.value
}

// Set records a new phase and value and returns the rendered status.
// A value that names a vocabulary phase renders as that phase's title.
func (it *Item) Set(phase Phase, value any) Rendered {
	it.phase = phase
	it.value = value
	it.rendered = Rendered{
		Status: phase.Render(),
		Value:  renderValue(value),
	}
	return it.rendered
}

// Get returns the last rendered status.
func (it *Item) Get() Rendered {
	return it.rendered
}

// String returns the rendered status and value.
func (it *Item) String() string {
	return it.rendered.String()
}

// Equal compares two items by rendered value only, ignoring phase.
// Lifecycle noise is excluded so payloads can be compared directly.
func (it *Item) Equal(other *Item) bool {
	if other == nil {
		return false
	}
	return it.rendered.Value == other.rendered.Value
}

// EqualValue compares the item's rendered value against an arbitrary
// value rendered the same way.
func (it *Item) EqualValue(value any) bool {
	return it.rendered.Value == renderValue(value)
}

// Less orders two items by rendered value.
func (it *Item) Less(other *Item) bool {
	if other == nil {
		return false
	}
	return it.rendered.Value < other.rendered.Value
}

// renderValue converts a status value to its display form. Strings
// that name a vocabulary phase render as that phase's title, so a
// value of "success" displays as "Success".
func renderValue(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		if r, found := phaseContent[Phase(s)]; found {
			return r.Title
		}
		return s
	}
	if p, ok := value.(Phase); ok {
		return p.Title()
	}
	return fmt.Sprint(value)
}
