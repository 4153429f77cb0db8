// Package sysinfo samples host CPU, memory, load and uptime figures.
package sysinfo

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// CPU usage is a percentage of busy time since the previous CPU call in
// this process.
type CPU struct {
	Usage   float64   `json:"usage"`
	PerCore []float64 `json:"per_core"`
	Cores   int       `json:"cores"`
}

// Memory figures are in bytes.
type Memory struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Available   uint64  `json:"available"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
	SwapTotal   uint64  `json:"swap_total"`
	SwapUsed    uint64  `json:"swap_used"`
}

type Load struct {
	One     float64 `json:"one"`
	Five    float64 `json:"five"`
	Fifteen float64 `json:"fifteen"`
}

type Host struct {
	Hostname      string `json:"hostname"`
	OS            string `json:"os"`
	Platform      string `json:"platform"`
	KernelVersion string `json:"kernel_version"`
	// Uptime is in whole seconds.
	Uptime   uint64 `json:"uptime"`
	BootTime uint64 `json:"boot_time"`
}

// System reads live figures from the running kernel. It holds no state of
// its own and is safe to share.
type System struct{}

func New() *System {
	return &System{}
}

func (s *System) CPU(ctx context.Context) (CPU, error) {
	total, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return CPU{}, fmt.Errorf("sample cpu usage: %w", err)
	}
	perCore, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return CPU{}, fmt.Errorf("sample per-core usage: %w", err)
	}
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return CPU{}, fmt.Errorf("count cpus: %w", err)
	}

	out := CPU{PerCore: perCore, Cores: cores}
	if len(total) > 0 {
		out.Usage = total[0]
	}
	if out.PerCore == nil {
		out.PerCore = []float64{}
	}
	return out, nil
}

func (s *System) Memory(ctx context.Context) (Memory, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Memory{}, fmt.Errorf("read memory: %w", err)
	}
	swap, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return Memory{}, fmt.Errorf("read swap: %w", err)
	}
	return Memory{
		Total:       vm.Total,
		Used:        vm.Used,
		Available:   vm.Available,
		Free:        vm.Free,
		UsedPercent: vm.UsedPercent,
		SwapTotal:   swap.Total,
		SwapUsed:    swap.Used,
	}, nil
}

func (s *System) Load(ctx context.Context) (Load, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return Load{}, fmt.Errorf("read load average: %w", err)
	}
	return Load{One: avg.Load1, Five: avg.Load5, Fifteen: avg.Load15}, nil
}

func (s *System) Host(ctx context.Context) (Host, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return Host{}, fmt.Errorf("read host info: %w", err)
	}
	return Host{
		Hostname:      info.Hostname,
		OS:            info.OS,
		Platform:      info.Platform,
		KernelVersion: info.KernelVersion,
		Uptime:        info.Uptime,
		BootTime:      info.BootTime,
	}, nil
}

// Uptime is the time since boot.
func (s *System) Uptime(ctx context.Context) (time.Duration, error) {
	secs, err := host.UptimeWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("read uptime: %w", err)
	}
	return time.Duration(secs) * time.Second, nil
}
