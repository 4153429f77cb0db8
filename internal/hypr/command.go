package hypr

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Command pairs a structured-reply command name with its reply shape T.
type Command[T any] struct {
	name string
}

// Name is the command sent after the "j/" preamble.
func (c Command[T]) Name() string {
	return c.name
}

// Decode parses a fully drained reply body into T.
func (c Command[T]) Decode(body []byte) (T, error) {
	var reply T
	if err := json.Unmarshal(body, &reply); err != nil {
		var zero T
		return zero, &ReplyError{Command: c.name, Body: body, Err: err}
	}
	return reply, nil
}

// DecodeGeneric validates body against T and returns its untyped JSON form,
// preserving fields T does not model.
func (c Command[T]) DecodeGeneric(body []byte) (any, error) {
	if _, err := c.Decode(body); err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(body, &generic); err != nil {
		return nil, &ReplyError{Command: c.name, Body: body, Err: err}
	}
	return generic, nil
}

// Descriptor is the untyped view of a Command used by the script bridge.
type Descriptor interface {
	Name() string
	DecodeGeneric(body []byte) (any, error)
}

var (
	Workspaces      = Command[[]Workspace]{name: "workspaces"}
	ActiveWorkspace = Command[Workspace]{name: "activeworkspace"}
	Devices         = Command[DeviceList]{name: "devices"}
	ActiveWindow    = Command[Window]{name: "activewindow"}
	Clients         = Command[[]Window]{name: "clients"}
	Monitors        = Command[[]Monitor]{name: "monitors"}
)

var descriptors = map[string]Descriptor{
	Workspaces.Name():      Workspaces,
	ActiveWorkspace.Name(): ActiveWorkspace,
	Devices.Name():         Devices,
	ActiveWindow.Name():    ActiveWindow,
	Clients.Name():         Clients,
	Monitors.Name():        Monitors,
}

// LookupCommand resolves a command name for callers that only know it at runtime.
func LookupCommand(name string) (Descriptor, bool) {
	d, ok := descriptors[strings.TrimSpace(name)]
	return d, ok
}

// CommandNames lists the known command names in sorted order.
func CommandNames() []string {
	names := make([]string, 0, len(descriptors))
	for name := range descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReplyError reports a reply body that did not match the command's shape.
type ReplyError struct {
	Command string
	Body    []byte
	Err     error
}

func (e *ReplyError) Error() string {
	body := string(e.Body)
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return fmt.Sprintf("decode %s reply: %v (body %q)", e.Command, e.Err, body)
}

func (e *ReplyError) Unwrap() error {
	return e.Err
}

// WorkspaceRef is the short workspace form embedded in other replies.
type WorkspaceRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Workspace struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Monitor         string `json:"monitor"`
	MonitorID       int    `json:"monitorID"`
	Windows         int    `json:"windows"`
	HasFullscreen   bool   `json:"hasfullscreen"`
	LastWindow      string `json:"lastwindow"`
	LastWindowTitle string `json:"lastwindowtitle"`
}

// Window is one client as reported by activewindow and clients.
// activewindow replies with an empty object when nothing is focused.
type Window struct {
	Address      string       `json:"address"`
	Mapped       bool         `json:"mapped"`
	Hidden       bool         `json:"hidden"`
	At           [2]int       `json:"at"`
	Size         [2]int       `json:"size"`
	Workspace    WorkspaceRef `json:"workspace"`
	Floating     bool         `json:"floating"`
	Monitor      int          `json:"monitor"`
	Class        string       `json:"class"`
	Title        string       `json:"title"`
	InitialClass string       `json:"initialClass"`
	InitialTitle string       `json:"initialTitle"`
	PID          int          `json:"pid"`
	XWayland     bool         `json:"xwayland"`
	Pinned       bool         `json:"pinned"`
}

type Monitor struct {
	ID              int          `json:"id"`
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	Width           int          `json:"width"`
	Height          int          `json:"height"`
	RefreshRate     float64      `json:"refreshRate"`
	X               int          `json:"x"`
	Y               int          `json:"y"`
	ActiveWorkspace WorkspaceRef `json:"activeWorkspace"`
	Scale           float64      `json:"scale"`
	Focused         bool         `json:"focused"`
	DPMSStatus      bool         `json:"dpmsStatus"`
}

type DeviceList struct {
	Mice      []Mouse       `json:"mice"`
	Keyboards []Keyboard    `json:"keyboards"`
	Tablets   []InputDevice `json:"tablets"`
	Touch     []InputDevice `json:"touch"`
	Switches  []InputDevice `json:"switches"`
}

type Mouse struct {
	Address      string  `json:"address"`
	Name         string  `json:"name"`
	DefaultSpeed float64 `json:"defaultSpeed"`
}

type Keyboard struct {
	Address      string `json:"address"`
	Name         string `json:"name"`
	Rules        string `json:"rules"`
	Model        string `json:"model"`
	Layout       string `json:"layout"`
	Variant      string `json:"variant"`
	Options      string `json:"options"`
	ActiveKeymap string `json:"active_keymap"`
	Main         bool   `json:"main"`
}

type InputDevice struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// FocusedMonitor returns the focused monitor, or the first one as a fallback.
func FocusedMonitor(monitors []Monitor) (Monitor, error) {
	for _, mon := range monitors {
		if mon.Focused {
			return mon, nil
		}
	}
	if len(monitors) == 0 {
		return Monitor{}, fmt.Errorf("monitors reply listed no outputs")
	}
	return monitors[0], nil
}
