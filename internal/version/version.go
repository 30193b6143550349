package version

// Build metadata, injected with -ldflags "-X bridge-wrapped/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// UserAgent is sent to upstream providers when no explicit agent is configured.
func UserAgent() string {
	return "bridgewrapped/" + Version
}
