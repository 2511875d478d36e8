package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 5 * time.Second

// ToolVersion runs `<binary> --version` and returns the version field of its
// first output line, e.g. "1.18.4" for "solana-cli 1.18.4 (src:...)".
func ToolVersion(ctx context.Context, binary string) (string, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return "", fmt.Errorf("version binary not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, binary, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("%s --version: %w", binary, err)
	}
	version := ParseVersion(string(out))
	if version == "" {
		return "", fmt.Errorf("%s --version: empty output", binary)
	}
	return version, nil
}

// ParseVersion extracts the second whitespace-separated field of the first
// non-empty line, falling back to the first field when there is only one.
func ParseVersion(output string) string {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		switch len(fields) {
		case 0:
			continue
		case 1:
			return fields[0]
		default:
			return fields[1]
		}
	}
	return ""
}
