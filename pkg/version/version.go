package version

// DevVersion is the version reported by binaries built without release ldflags
const DevVersion = "v0.0.0"

// version is overridden at build time with
// -ldflags "-X github.com/skevetter/echod/pkg/version.version=v1.2.3"
var version = ""

// GetVersion returns the echod version
func GetVersion() string {
	if version == "" {
		return DevVersion
	}
	return version
}
