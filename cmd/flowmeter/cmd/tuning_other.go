//go:build !linux

package cmd

import "github.com/lavanyaayna9/flowmeter/internal/config"

// applyTuning is a no-op off linux, where CPU pinning and scheduling
// priority are not wired (§6 Tuning "-c N", "-P N" are linux-only here,
// the same boundary live capture itself draws).
func applyTuning(cfg *config.Config) {}
