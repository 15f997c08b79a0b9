// Package util holds small helpers shared across packages.
package util

import (
	"fmt"
	"os"
	"os/exec"
)

// FindBinary locates an executable by name. A non-empty envVar naming an
// executable file wins over the PATH lookup; an envVar pointing at
// something unusable falls through instead of failing.
func FindBinary(name, envVar string) (string, error) {
	if envVar != "" {
		if p := os.Getenv(envVar); p != "" && executable(p) {
			return p, nil
		}
	}

	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}

	return "", fmt.Errorf("binary %s not found", name)
}

// executable reports whether path is a regular file with an execute bit.
func executable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
