package registry

import "strings"

// sensitiveKeyPatterns contains patterns that indicate a key holds sensitive data.
var sensitiveKeyPatterns = []string{
	"PASSWORD",
	"SECRET",
	"TOKEN",
	"KEY",
	"CREDENTIAL",
	"API_KEY",
	"APIKEY",
	"AUTH",
	"PRIVATE",
	"CERT",
	"PASSPHRASE",
}

const redactedValue = "[REDACTED]"

// RedactedEnv returns a copy of the spec's environment overrides with
// sensitive values replaced by a placeholder, for display in status output.
func (s ServiceSpec) RedactedEnv() map[string]string {
	if s.Env == nil {
		return nil
	}
	result := make(map[string]string, len(s.Env))
	for k, v := range s.Env {
		if isSensitiveKey(k) {
			result[k] = redactedValue
		} else {
			result[k] = v
		}
	}
	return result
}

func isSensitiveKey(key string) bool {
	upper := strings.ToUpper(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}
