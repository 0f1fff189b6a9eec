package docker

import (
	"time"
)

// Config holds the configuration for Docker-hosted instances.
type Config struct {
	// Image is the bot image every instance runs.
	Image string
	// MemoryLimit is the maximum amount of memory one instance can use (in bytes).
	MemoryLimit int64
	// CPULimit is the number of CPUs one instance can use.
	CPULimit float64
	// Timeout bounds every individual Docker API call.
	Timeout time.Duration
	// StopGrace is how long an instance gets to exit before it is killed.
	StopGrace time.Duration
}

// DefaultConfig provides sensible defaults for a single hosted bot.
func DefaultConfig() Config {
	return Config{
		Image: "ghcr.io/sakif/botpanel-runner:latest",
		// 256 MB memory limit
		MemoryLimit: 256 * 1024 * 1024,
		// 0.5 CPU shares
		CPULimit:  0.5,
		Timeout:   10 * time.Second,
		StopGrace: 5 * time.Second,
	}
}
