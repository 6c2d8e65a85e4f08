package preflight

import (
	"fmt"
	"strings"

	"caster/internal/config"
)

// CheckNotificationsFromConfig evaluates the ntfy publisher from config
// alone. Delivery is best-effort, so no request is made; the check reports
// how the daemon will behave, not whether the topic is reachable right now.
func CheckNotificationsFromConfig(cfg *config.Config) Result {
	result := Result{Name: "Notifications", Detail: "Unknown"}
	if cfg == nil {
		return result
	}
	result.Passed = true
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		result.Detail = fmt.Sprintf("Publishing to %s", topic)
	} else {
		result.Detail = "Disabled"
	}
	return result
}

// CheckAPIAuthFromConfig reports whether the HTTP API requires a bearer token.
func CheckAPIAuthFromConfig(cfg *config.Config) Result {
	result := Result{Name: "API auth", Detail: "Unknown"}
	if cfg == nil {
		return result
	}
	result.Passed = true
	if strings.TrimSpace(cfg.Paths.APIToken) == "" {
		result.Detail = "Open (no token configured)"
	} else {
		result.Detail = "Bearer token required"
	}
	return result
}
