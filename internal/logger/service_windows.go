//go:build windows

package logger

import "os"

// IsService checks if the application is running as a service
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}
	return os.Getenv("SERVICE_NAME") != ""
}
