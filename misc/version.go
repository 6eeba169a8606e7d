// Package misc keeps program identity values set at link time.
package misc

import (
	"os"
	"path/filepath"
	"strings"
)

// Set with -ldflags "-X htmlsnap/misc.version=... -X htmlsnap/misc.gitHash=...".
var (
	appName = ""
	version = "dev"
	gitHash = "unknown"
)

// GetAppName returns program name.
func GetAppName() string {
	if len(appName) > 0 {
		return appName
	}
	return strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))
}

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns git commit the program was built from.
func GetGitHash() string {
	return gitHash
}

// GetUserAgent returns value used in outgoing requests.
func GetUserAgent() string {
	return "htmlsnap/" + version
}
