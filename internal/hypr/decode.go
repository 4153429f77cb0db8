package hypr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnknownEvent marks lines whose NAME is not in the known set.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrMalformedEvent marks lines that violate the framing or field rules.
	ErrMalformedEvent = errors.New("malformed event")
)

const eventSeparator = ">>"

// DecodeError describes why one event line could not be decoded.
// It is non-fatal for the stream: the next line can still be read.
type DecodeError struct {
	Line   string
	Name   string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("decode event line %q: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("decode event %q: %s", e.Name, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err came from ParseEvent rather than I/O.
func IsDecodeError(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}

type decodeFunc func(fields []string) (Event, error)

type eventSpec struct {
	fields int
	decode decodeFunc
}

// eventSpecs fixes the comma-split field count per NAME; the last field keeps
// any embedded commas.
var eventSpecs = map[string]eventSpec{
	"workspace": {1, func(f []string) (Event, error) {
		return WorkspaceEvent{Workspace: f[0]}, nil
	}},
	"focusedmon": {2, func(f []string) (Event, error) {
		return FocusedMonitorEvent{Monitor: f[0], Workspace: f[1]}, nil
	}},
	"activewindow": {2, func(f []string) (Event, error) {
		return ActiveWindowEvent{Class: f[0], Title: f[1]}, nil
	}},
	"activewindowv2": {1, func(f []string) (Event, error) {
		addr, err := parseOptionalAddress(f[0])
		if err != nil {
			return nil, err
		}
		return ActiveWindowV2Event{Address: addr}, nil
	}},
	"fullscreen": {1, func(f []string) (Event, error) {
		active, err := parseBool(f[0])
		if err != nil {
			return nil, err
		}
		return FullscreenEvent{Active: active}, nil
	}},
	"monitorremoved": {1, func(f []string) (Event, error) {
		return MonitorRemovedEvent{Monitor: f[0]}, nil
	}},
	"monitoradded": {1, func(f []string) (Event, error) {
		return MonitorAddedEvent{Monitor: f[0]}, nil
	}},
	"createworkspace": {1, func(f []string) (Event, error) {
		return CreateWorkspaceEvent{Workspace: f[0]}, nil
	}},
	"destroyworkspace": {1, func(f []string) (Event, error) {
		return DestroyWorkspaceEvent{Workspace: f[0]}, nil
	}},
	"moveworkspace": {2, func(f []string) (Event, error) {
		return MoveWorkspaceEvent{Workspace: f[0], Monitor: f[1]}, nil
	}},
	"activelayout": {2, func(f []string) (Event, error) {
		return ActiveLayoutEvent{Keyboard: f[0], Layout: f[1]}, nil
	}},
	"openwindow": {4, func(f []string) (Event, error) {
		addr, err := parseAddress(f[0])
		if err != nil {
			return nil, err
		}
		return OpenWindowEvent{Address: addr, Workspace: f[1], Class: f[2], Title: f[3]}, nil
	}},
	"closewindow": {1, func(f []string) (Event, error) {
		addr, err := parseAddress(f[0])
		if err != nil {
			return nil, err
		}
		return CloseWindowEvent{Address: addr}, nil
	}},
	"movewindow": {2, func(f []string) (Event, error) {
		addr, err := parseAddress(f[0])
		if err != nil {
			return nil, err
		}
		return MoveWindowEvent{Address: addr, Workspace: f[1]}, nil
	}},
	"openlayer": {1, func(f []string) (Event, error) {
		return OpenLayerEvent{Namespace: f[0]}, nil
	}},
	"closelayer": {1, func(f []string) (Event, error) {
		return CloseLayerEvent{Namespace: f[0]}, nil
	}},
	"submap": {1, func(f []string) (Event, error) {
		return SubmapEvent{Submap: f[0]}, nil
	}},
	"changefloatingmode": {2, func(f []string) (Event, error) {
		addr, err := parseAddress(f[0])
		if err != nil {
			return nil, err
		}
		floating, err := parseBool(f[1])
		if err != nil {
			return nil, err
		}
		return ChangeFloatingModeEvent{Address: addr, Floating: floating}, nil
	}},
	"urgent": {1, func(f []string) (Event, error) {
		addr, err := parseAddress(f[0])
		if err != nil {
			return nil, err
		}
		return UrgentEvent{Address: addr}, nil
	}},
	"minimize": {2, func(f []string) (Event, error) {
		addr, err := parseAddress(f[0])
		if err != nil {
			return nil, err
		}
		minimized, err := parseBool(f[1])
		if err != nil {
			return nil, err
		}
		return MinimizeEvent{Address: addr, Minimized: minimized}, nil
	}},
	"screencast": {2, func(f []string) (Event, error) {
		active, err := parseBool(f[0])
		if err != nil {
			return nil, err
		}
		var owner ScreenCastOwner
		switch f[1] {
		case "0":
			owner = ScreenCastMonitor
		case "1":
			owner = ScreenCastWindow
		default:
			return nil, fmt.Errorf("invalid screencast owner %q", f[1])
		}
		return ScreenCastEvent{Active: active, Owner: owner}, nil
	}},
	"windowtitle": {1, func(f []string) (Event, error) {
		addr, err := parseAddress(f[0])
		if err != nil {
			return nil, err
		}
		return WindowTitleEvent{Address: addr}, nil
	}},
}

// KnownEvents lists every decodable event name.
func KnownEvents() []string {
	names := make([]string, 0, len(eventSpecs))
	for name := range eventSpecs {
		names = append(names, name)
	}
	return names
}

// ParseEvent decodes one NAME>>PAYLOAD line. A trailing newline is tolerated.
func ParseEvent(line string) (Event, error) {
	line = strings.TrimRight(line, "\r\n")

	name, payload, ok := strings.Cut(line, eventSeparator)
	if !ok {
		return nil, &DecodeError{Line: line, Reason: `missing ">>" separator`, Err: ErrMalformedEvent}
	}

	spec, known := eventSpecs[name]
	if !known {
		return nil, &DecodeError{Line: line, Name: name, Reason: "unknown event name", Err: ErrUnknownEvent}
	}

	fields := strings.SplitN(payload, ",", spec.fields)
	if len(fields) != spec.fields {
		return nil, &DecodeError{
			Line:   line,
			Name:   name,
			Reason: fmt.Sprintf("expected %d fields, got %d", spec.fields, len(fields)),
			Err:    ErrMalformedEvent,
		}
	}

	event, err := spec.decode(fields)
	if err != nil {
		return nil, &DecodeError{Line: line, Name: name, Reason: err.Error(), Err: ErrMalformedEvent}
	}
	return event, nil
}

func parseAddress(field string) (Address, error) {
	v, err := strconv.ParseUint(field, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", field)
	}
	return Address(v), nil
}

// parseOptionalAddress maps the literal "," placeholder to no address.
func parseOptionalAddress(field string) (*Address, error) {
	if field == "," {
		return nil, nil
	}
	addr, err := parseAddress(field)
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func parseBool(field string) (bool, error) {
	switch field {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", field)
	}
}
