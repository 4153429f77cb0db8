package sysinfo

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func requireLinux(t *testing.T) {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("reads /proc")
	}
}

func TestCPUReportsEveryCore(t *testing.T) {
	requireLinux(t)
	s := New()

	first, err := s.CPU(context.Background())
	require.NoError(t, err)
	require.Positive(t, first.Cores)

	time.Sleep(50 * time.Millisecond)
	second, err := s.CPU(context.Background())
	require.NoError(t, err)
	require.Len(t, second.PerCore, second.Cores)
	require.GreaterOrEqual(t, second.Usage, 0.0)
	require.LessOrEqual(t, second.Usage, 100.0)
}

func TestMemoryIsConsistent(t *testing.T) {
	requireLinux(t)

	m, err := New().Memory(context.Background())
	require.NoError(t, err)
	require.Positive(t, m.Total)
	require.LessOrEqual(t, m.Available, m.Total)
	require.LessOrEqual(t, m.SwapUsed, m.SwapTotal)
	require.InDelta(t, 50.0, m.UsedPercent, 50.0)
}

func TestLoadAndHost(t *testing.T) {
	requireLinux(t)
	s := New()

	avg, err := s.Load(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, avg.One, 0.0)

	h, err := s.Host(context.Background())
	require.NoError(t, err)
	require.Equal(t, "linux", h.OS)
	require.NotEmpty(t, h.KernelVersion)
	require.Positive(t, h.BootTime)

	up, err := s.Uptime(context.Background())
	require.NoError(t, err)
	require.Positive(t, up)
}
