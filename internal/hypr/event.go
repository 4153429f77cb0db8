package hypr

import (
	"fmt"
	"strconv"
)

// Event is one decoded line from the event socket.
// The set of implementations is closed; see the *Event types below.
type Event interface {
	// Name is the wire name preceding ">>".
	Name() string
	// Payload is the wire form following ">>".
	Payload() string
}

// Line re-encodes e into its wire form, without the trailing newline.
func Line(e Event) string {
	return e.Name() + ">>" + e.Payload()
}

// Address is a window address as carried on the event socket (bare hex).
type Address uint64

func (a Address) String() string {
	return strconv.FormatUint(uint64(a), 16)
}

// MarshalText renders the address the way the command socket does ("0x…").
func (a Address) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("0x%x", uint64(a))), nil
}

// ScreenCastOwner distinguishes whole-monitor from single-window casts.
type ScreenCastOwner int

const (
	ScreenCastMonitor ScreenCastOwner = iota
	ScreenCastWindow
)

func (o ScreenCastOwner) String() string {
	if o == ScreenCastWindow {
		return "window"
	}
	return "monitor"
}

func (o ScreenCastOwner) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

type WorkspaceEvent struct {
	Workspace string `json:"name"`
}

type FocusedMonitorEvent struct {
	Monitor   string `json:"monitor"`
	Workspace string `json:"workspace"`
}

type ActiveWindowEvent struct {
	Class string `json:"class"`
	Title string `json:"title"`
}

// ActiveWindowV2Event carries a nil Address when focus left all windows.
type ActiveWindowV2Event struct {
	Address *Address `json:"address"`
}

type FullscreenEvent struct {
	Active bool `json:"active"`
}

type MonitorRemovedEvent struct {
	Monitor string `json:"monitor"`
}

type MonitorAddedEvent struct {
	Monitor string `json:"monitor"`
}

type CreateWorkspaceEvent struct {
	Workspace string `json:"name"`
}

type DestroyWorkspaceEvent struct {
	Workspace string `json:"name"`
}

type MoveWorkspaceEvent struct {
	Workspace string `json:"workspace"`
	Monitor   string `json:"monitor"`
}

type ActiveLayoutEvent struct {
	Keyboard string `json:"keyboard_name"`
	Layout   string `json:"layout_name"`
}

type OpenWindowEvent struct {
	Address   Address `json:"address"`
	Workspace string  `json:"workspace"`
	Class     string  `json:"class"`
	Title     string  `json:"title"`
}

type CloseWindowEvent struct {
	Address Address `json:"address"`
}

type MoveWindowEvent struct {
	Address   Address `json:"address"`
	Workspace string  `json:"workspace"`
}

type OpenLayerEvent struct {
	Namespace string `json:"name"`
}

type CloseLayerEvent struct {
	Namespace string `json:"name"`
}

type SubmapEvent struct {
	Submap string `json:"name"`
}

type ChangeFloatingModeEvent struct {
	Address  Address `json:"address"`
	Floating bool    `json:"active"`
}

type UrgentEvent struct {
	Address Address `json:"address"`
}

type MinimizeEvent struct {
	Address   Address `json:"address"`
	Minimized bool    `json:"active"`
}

type ScreenCastEvent struct {
	Active bool            `json:"state"`
	Owner  ScreenCastOwner `json:"owner"`
}

type WindowTitleEvent struct {
	Address Address `json:"address"`
}

func (WorkspaceEvent) Name() string          { return "workspace" }
func (FocusedMonitorEvent) Name() string     { return "focusedmon" }
func (ActiveWindowEvent) Name() string       { return "activewindow" }
func (ActiveWindowV2Event) Name() string     { return "activewindowv2" }
func (FullscreenEvent) Name() string         { return "fullscreen" }
func (MonitorRemovedEvent) Name() string     { return "monitorremoved" }
func (MonitorAddedEvent) Name() string       { return "monitoradded" }
func (CreateWorkspaceEvent) Name() string    { return "createworkspace" }
func (DestroyWorkspaceEvent) Name() string   { return "destroyworkspace" }
func (MoveWorkspaceEvent) Name() string      { return "moveworkspace" }
func (ActiveLayoutEvent) Name() string       { return "activelayout" }
func (OpenWindowEvent) Name() string         { return "openwindow" }
func (CloseWindowEvent) Name() string        { return "closewindow" }
func (MoveWindowEvent) Name() string         { return "movewindow" }
func (OpenLayerEvent) Name() string          { return "openlayer" }
func (CloseLayerEvent) Name() string         { return "closelayer" }
func (SubmapEvent) Name() string             { return "submap" }
func (ChangeFloatingModeEvent) Name() string { return "changefloatingmode" }
func (UrgentEvent) Name() string             { return "urgent" }
func (MinimizeEvent) Name() string           { return "minimize" }
func (ScreenCastEvent) Name() string         { return "screencast" }
func (WindowTitleEvent) Name() string        { return "windowtitle" }

func (e WorkspaceEvent) Payload() string      { return e.Workspace }
func (e FocusedMonitorEvent) Payload() string { return e.Monitor + "," + e.Workspace }
func (e ActiveWindowEvent) Payload() string   { return e.Class + "," + e.Title }
func (e ActiveWindowV2Event) Payload() string {
	if e.Address == nil {
		return ","
	}
	return e.Address.String()
}
func (e FullscreenEvent) Payload() string       { return encodeBool(e.Active) }
func (e MonitorRemovedEvent) Payload() string   { return e.Monitor }
func (e MonitorAddedEvent) Payload() string     { return e.Monitor }
func (e CreateWorkspaceEvent) Payload() string  { return e.Workspace }
func (e DestroyWorkspaceEvent) Payload() string { return e.Workspace }
func (e MoveWorkspaceEvent) Payload() string    { return e.Workspace + "," + e.Monitor }
func (e ActiveLayoutEvent) Payload() string     { return e.Keyboard + "," + e.Layout }
func (e OpenWindowEvent) Payload() string {
	return e.Address.String() + "," + e.Workspace + "," + e.Class + "," + e.Title
}
func (e CloseWindowEvent) Payload() string { return e.Address.String() }
func (e MoveWindowEvent) Payload() string  { return e.Address.String() + "," + e.Workspace }
func (e OpenLayerEvent) Payload() string   { return e.Namespace }
func (e CloseLayerEvent) Payload() string  { return e.Namespace }
func (e SubmapEvent) Payload() string      { return e.Submap }
func (e ChangeFloatingModeEvent) Payload() string {
	return e.Address.String() + "," + encodeBool(e.Floating)
}
func (e UrgentEvent) Payload() string { return e.Address.String() }
func (e MinimizeEvent) Payload() string {
	return e.Address.String() + "," + encodeBool(e.Minimized)
}
func (e ScreenCastEvent) Payload() string {
	owner := "0"
	if e.Owner == ScreenCastWindow {
		owner = "1"
	}
	return encodeBool(e.Active) + "," + owner
}
func (e WindowTitleEvent) Payload() string { return e.Address.String() }

func encodeBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
