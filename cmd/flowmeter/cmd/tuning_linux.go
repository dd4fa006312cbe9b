//go:build linux

package cmd

import (
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/lavanyaayna9/flowmeter/internal/config"
	"github.com/lavanyaayna9/flowmeter/internal/logging"
)

// applyTuning pins the calling thread to a CPU and/or sets the process's
// scheduling priority to nice value N (§6 Tuning: "-c N", "-P N"). Both are
// best effort: a failure is logged, not fatal, since neither changes
// correctness, only scheduling behavior.
func applyTuning(cfg *config.Config) {
	if cfg.Tuning.CPUPin >= 0 {
		runtime.LockOSThread()
		var set unix.CPUSet
		set.Zero()
		set.Set(cfg.Tuning.CPUPin)
		if err := unix.SchedSetaffinity(0, &set); err != nil {
			logging.Logger().Warnf("failed to pin capture thread to cpu %d: %s", cfg.Tuning.CPUPin, err)
		}
	}
	if cfg.Tuning.Priority != 0 {
		if err := unix.Setpriority(unix.PRIO_PROCESS, 0, cfg.Tuning.Priority); err != nil {
			logging.Logger().Warnf("failed to set process priority to %d: %s", cfg.Tuning.Priority, err)
		}
	}
}
