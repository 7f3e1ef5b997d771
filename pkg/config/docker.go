package config

import (
	"os"
	"sync"
)

var (
	dockerOnce sync.Once
	inDocker   bool
)

// IsRunningInDocker reports whether /.dockerenv exists. Cached after the first call.
func IsRunningInDocker() bool {
	dockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		inDocker = err == nil
	})
	return inDocker
}

// ResolveHostForDocker rewrites loopback hosts to host.docker.internal when the
// process runs in a container, so a locally started Postgres or Redis stays
// reachable from `docker run`. Empty hosts (disabled services) pass through.
func ResolveHostForDocker(host string) string {
	if host == "" || !IsRunningInDocker() {
		return host
	}
	if host == "localhost" || host == "127.0.0.1" {
		return "host.docker.internal"
	}
	return host
}
