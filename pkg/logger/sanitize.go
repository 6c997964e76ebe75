package logger

import "strings"

// SanitizedEmail masks an email address for logging (e.g., "u***@e***.com")
func SanitizedEmail(email string) string {
	username, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "[invalid-email]"
	}

	if len(username) > 1 {
		username = username[:1] + strings.Repeat("*", len(username)-1)
	}

	// keep the TLD
	labels := strings.Split(domain, ".")
	if len(labels) > 1 {
		for i := 0; i < len(labels)-1; i++ {
			labels[i] = strings.Repeat("*", len(labels[i]))
		}
		domain = strings.Join(labels, ".")
	}

	return username + "@" + domain
}

// RedactToken keeps the first four characters of a session or push token
func RedactToken(token string) string {
	if len(token) <= 4 {
		return "[REDACTED]"
	}
	return token[:4] + "…"
}

var sensitiveQueryParams = []string{"code", "state", "token", "secret", "email", "auth"}

// SanitizeQueryString reports whether rawQuery should be dropped from request logs.
// OAuth callbacks carry the authorization code and state in the query.
func SanitizeQueryString(rawQuery string) bool {
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveQueryParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
