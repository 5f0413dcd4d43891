// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error
// messages; Text recovers the bare text for JSON responses.
package hints

import (
	"fmt"
	"os"
	"strings"

	"github.com/alnah/go-html2pdf/internal/fileutil"
)

const prefix = "\n  hint: "

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForBrowserConnect returns hints for browser connection errors.
// Detects CI/Docker environment and suggests relevant environment variables.
func ForBrowserConnect() string {
	var hints []string

	// Detect CI environment
	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	// Suggest ROD_NO_SANDBOX for container/CI environments
	if (inCI || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}

	// Suggest ROD_BROWSER_BIN if not set
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use custom Chrome")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about raising the render timeout.
func ForTimeout() string {
	return format("for large documents, raise render.timeout (--render-timeout)")
}

// ForNavigation returns a hint for remote pages that fail to load.
func ForNavigation() string {
	return format("check the URL is reachable from the server; slow sites may need a larger render.navigationTimeout")
}

// ForUploadTooLarge returns a hint naming the configured upload limit.
func ForUploadTooLarge(limit int64) string {
	return format(fmt.Sprintf("uploads are limited to %d bytes (server.maxUploadBytes)", limit))
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/html2pdf-server/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	// Find a user config path to suggest
	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/html2pdf-server") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForDirectory returns hints for storage directory creation errors.
func ForDirectory() string {
	return format("check parent directory exists and is writable")
}

// Text strips the formatting added by the For* functions.
func Text(hint string) string {
	return strings.TrimPrefix(hint, prefix)
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return prefix + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
