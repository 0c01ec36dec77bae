package instance

import (
	"fmt"
	"os"
)

// GetRedisHost returns the appropriate Redis hostname for the current
// environment. In Docker-in-Docker scenarios, it returns
// "host.docker.internal" to access the host's published ports.
// Otherwise, it returns "localhost".
func GetRedisHost() string {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "host.docker.internal"
	}
	return "localhost"
}

// GetRedisAddr constructs the host:port address for a given store port.
func GetRedisAddr(port int) string {
	return fmt.Sprintf("%s:%d", GetRedisHost(), port)
}
