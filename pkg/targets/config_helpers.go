package targets

import "strings"

// ConfigString returns the trimmed string value for key from target.Config or a fallback.
func ConfigString(t Target, key, fallback string) string {
	if t.Config != nil {
		if raw, ok := t.Config[key]; ok {
			if val, ok := raw.(string); ok {
				if trimmed := strings.TrimSpace(val); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return fallback
}

const (
	ConfigUserAgentKey      = "user_agent"
	ConfigAcceptKey         = "accept"
	ConfigAcceptLanguageKey = "accept_language"
	ConfigCacheControlKey   = "cache_control"
)

// Headers builds the request headers for a target: the common headers from its
// config (empty values skipped), overlaid by its explicit headers.
func Headers(t Target) map[string]string {
	headers := make(map[string]string, 4+len(t.Headers))

	if v := ConfigString(t, ConfigUserAgentKey, ""); v != "" {
		headers["User-Agent"] = v
	}
	if v := ConfigString(t, ConfigAcceptKey, ""); v != "" {
		headers["Accept"] = v
	}
	if v := ConfigString(t, ConfigAcceptLanguageKey, ""); v != "" {
		headers["Accept-Language"] = v
	}
	if v := ConfigString(t, ConfigCacheControlKey, ""); v != "" {
		headers["Cache-Control"] = v
	}
	for k, v := range t.Headers {
		headers[k] = v
	}

	return headers
}
