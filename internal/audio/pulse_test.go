package audio

import (
	"context"
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func testDevices() []Device {
	return []Device{
		{Kind: KindSink, ID: "alsa_output.pci-analog", Description: "Built-in Audio", Available: true},
		{Kind: KindSink, ID: "bluez_output.headset", Description: "Sony WH-1000XM6", Available: true, Default: true},
	}
}

func TestDefaultPicksFlaggedDevice(t *testing.T) {
	dev, err := Default(testDevices())
	require.NoError(t, err)
	require.Equal(t, "bluez_output.headset", dev.ID)

	_, err = Default([]Device{{ID: "x"}})
	require.ErrorIs(t, err, ErrNoDevice)
}

func TestFindMatchesIDAndDescription(t *testing.T) {
	devices := testDevices()

	dev, err := Find(devices, "")
	require.NoError(t, err)
	require.True(t, dev.Default)

	dev, err = Find(devices, "  Default ")
	require.NoError(t, err)
	require.True(t, dev.Default)

	dev, err = Find(devices, "built-in")
	require.NoError(t, err)
	require.Equal(t, "alsa_output.pci-analog", dev.ID)

	dev, err = Find(devices, "SONY")
	require.NoError(t, err)
	require.Equal(t, "bluez_output.headset", dev.ID)

	_, err = Find(devices, "missing")
	require.ErrorIs(t, err, ErrNoDevice)
	require.Contains(t, err.Error(), "missing")
}

func TestDeviceMatchesByIDAndDescription(t *testing.T) {
	dev := Device{ID: "alsa_input.usb-elgato", Description: "Elgato Wave 3 Mono"}
	require.True(t, deviceMatches(dev, "elgato"))
	require.True(t, deviceMatches(dev, "wave 3"))
	require.False(t, deviceMatches(dev, "missing"))
	require.False(t, deviceMatches(dev, ""))
}

func TestAverageVolume(t *testing.T) {
	require.Zero(t, averageVolume(nil))
	require.InDelta(t, 1.0, averageVolume([]uint32{volumeNorm, volumeNorm}), 1e-9)
	require.InDelta(t, 0.75, averageVolume([]uint32{volumeNorm, volumeNorm / 2}), 1e-9)
}

func TestSinksFailWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := NewPulse().Sinks(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "connect pulse server")
}

func TestSourcesAndPingFailWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := NewPulse().Sources(context.Background())
	require.Error(t, err)
	require.Error(t, NewPulse().Ping(context.Background()))
}

func TestStateString(t *testing.T) {
	require.Equal(t, "running", stateString(0))
	require.Equal(t, "idle", stateString(1))
	require.Equal(t, "suspended", stateString(2))
	require.Equal(t, "unknown(99)", stateString(99))
}

func TestSourceAvailable(t *testing.T) {
	require.False(t, sourceAvailable(nil))
	require.True(t, sourceAvailable(&pulseproto.GetSourceInfoReply{})) // no ports => available

	available := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setPorts(t, available, []testPort{{name: "mic", available: 2}})
	require.True(t, sourceAvailable(available))

	notAvailable := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setPorts(t, notAvailable, []testPort{{name: "mic", available: 1}})
	require.False(t, sourceAvailable(notAvailable))
}

func TestSinkAvailable(t *testing.T) {
	require.True(t, sinkAvailable(&pulseproto.GetSinkInfoReply{}))

	unplugged := &pulseproto.GetSinkInfoReply{ActivePortName: "headphones"}
	setPorts(t, unplugged, []testPort{{name: "speaker", available: 2}, {name: "headphones", available: 1}})
	require.False(t, sinkAvailable(unplugged))

	unknown := &pulseproto.GetSinkInfoReply{ActivePortName: "speaker"}
	setPorts(t, unknown, []testPort{{name: "speaker", available: 0}})
	require.True(t, sinkAvailable(unknown))
}

type testPort struct {
	name      string
	available uint32
}

// setPorts fills the Ports field of a sink or source reply without naming
// the port struct type.
func setPorts(t *testing.T, reply any, ports []testPort) {
	t.Helper()

	field := reflect.ValueOf(reply).Elem().FieldByName("Ports")
	require.True(t, field.IsValid())
	sliceValue := reflect.MakeSlice(field.Type(), len(ports), len(ports))

	for i, port := range ports {
		item := sliceValue.Index(i)
		item.FieldByName("Name").SetString(port.name)
		item.FieldByName("Available").SetUint(uint64(port.available))
	}
	field.Set(sliceValue)
}
