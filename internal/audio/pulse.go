// Package audio reads PulseAudio sink and source telemetry.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	applicationName = "crabshell"
	volumeNorm      = 0x10000
)

// ErrNoDevice is returned when no device matches a lookup.
var ErrNoDevice = errors.New("no matching audio device")

// Kind distinguishes playback sinks from capture sources.
type Kind string

const (
	KindSink   Kind = "sink"
	KindSource Kind = "source"
)

// Device describes one Pulse sink or source.
type Device struct {
	Kind        Kind    `json:"kind"`
	Index       uint32  `json:"index"`
	ID          string  `json:"id"`
	Description string  `json:"description"`
	State       string  `json:"state"`
	Available   bool    `json:"available"`
	Muted       bool    `json:"muted"`
	Default     bool    `json:"default"`
	Volume      float64 `json:"volume"`
	Channels    int     `json:"channels"`
}

// Pulse queries the Pulse server. Each call opens its own connection, so
// a Pulse value is safe to share between goroutines.
type Pulse struct {
	appName string
}

func NewPulse() *Pulse {
	return &Pulse{appName: applicationName}
}

// Sinks lists playback devices with default/volume metadata.
func (p *Pulse) Sinks(_ context.Context) ([]Device, error) {
	client, err := p.connect()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSink, err := client.DefaultSink()
	if err != nil {
		return nil, fmt.Errorf("read default sink: %w", err)
	}

	var infos pulseproto.GetSinkInfoListReply
	if err := client.RawRequest(&pulseproto.GetSinkInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sinks: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for _, sink := range infos {
		if sink == nil {
			continue
		}
		devices = append(devices, Device{
			Kind:        KindSink,
			Index:       sink.SinkIndex,
			ID:          sink.SinkName,
			Description: sink.Device,
			State:       stateString(sink.State),
			Available:   sinkAvailable(sink),
			Muted:       sink.Mute,
			Default:     sink.SinkName == defaultSink.ID(),
			Volume:      averageVolume(sink.ChannelVolumes),
			Channels:    len(sink.ChannelVolumes),
		})
	}
	return devices, nil
}

// Sources lists capture devices with default/volume metadata.
func (p *Pulse) Sources(_ context.Context) ([]Device, error) {
	client, err := p.connect()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var infos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for _, source := range infos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			Kind:        KindSource,
			Index:       source.SourceIndex,
			ID:          source.SourceName,
			Description: source.Device,
			State:       stateString(source.State),
			Available:   sourceAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultSource.ID(),
			Volume:      averageVolume(source.ChannelVolumes),
			Channels:    len(source.ChannelVolumes),
		})
	}
	return devices, nil
}

// Ping reports whether the Pulse server accepts connections.
func (p *Pulse) Ping(_ context.Context) error {
	client, err := p.connect()
	if err != nil {
		return err
	}
	client.Close()
	return nil
}

func (p *Pulse) connect() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(p.appName),
		pulse.ClientApplicationIconName("audio-card"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// Default returns the device flagged as default.
func Default(devices []Device) (Device, error) {
	for _, dev := range devices {
		if dev.Default {
			return dev, nil
		}
	}
	return Device{}, ErrNoDevice
}

// Find resolves a search term against devices. An empty term or "default"
// selects the default device; otherwise the first id/description match wins.
func Find(devices []Device, term string) (Device, error) {
	term = strings.TrimSpace(strings.ToLower(term))
	if term == "" || term == "default" {
		return Default(devices)
	}
	for _, dev := range devices {
		if deviceMatches(dev, term) {
			return dev, nil
		}
	}
	return Device{}, fmt.Errorf("%w: %q", ErrNoDevice, term)
}

// deviceMatches reports whether a search term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(device.ID)
	desc := strings.ToLower(device.Description)
	return strings.Contains(id, term) || strings.Contains(desc, term)
}

// averageVolume maps raw channel volumes to a linear level where 1.0 is 100%.
func averageVolume(channels []uint32) float64 {
	if len(channels) == 0 {
		return 0
	}
	var sum uint64
	for _, v := range channels {
		sum += uint64(v)
	}
	return float64(sum) / float64(len(channels)) / volumeNorm
}

// stateString maps Pulse sink/source state constants to readable values.
func stateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// PulseAudio values: unknown=0, no=1, yes=2.
func portAvailable(available uint32) bool {
	return available == 0 || available == 2
}

func sinkAvailable(sink *pulseproto.GetSinkInfoReply) bool {
	for _, port := range sink.Ports {
		if port.Name == sink.ActivePortName {
			return portAvailable(port.Available)
		}
	}
	return true
}

func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	if len(source.Ports) == 0 {
		return true
	}
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		return portAvailable(port.Available)
	}
	return true
}
