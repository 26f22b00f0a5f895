package config

import "strings"

// GetAllowedMIMETypes returns the allow-list of upload types. The list is a
// comma-separated environment value; only PDFs are accepted by default.
func GetAllowedMIMETypes() []string {
	raw := GetEnvOrDefault("UPLOAD_ALLOWED_TYPES", "application/pdf")

	var allowed []string
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			allowed = append(allowed, entry)
		}
	}
	return allowed
}
