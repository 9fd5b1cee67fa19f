package testutil

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// SensitiveHeaders are headers whose values are always redacted before
// a capture leaves the operator's machine.
var SensitiveHeaders = map[string]bool{
	"authorization": true,
	"cookie":        true,
	"set-cookie":    true,
	"x-apple-xsrf":  true,
	"x-auth-token":  true,
	"x-csrf-token":  true,
}

// dsid values identify the account; redact them in bodies too.
var dsidValuePattern = regexp.MustCompile(`("dsid"\s*:\s*)"?\d+"?`)

// SanitizeHAR redacts credentials from a HAR log: sensitive header
// values and every dsid occurrence in request and response bodies.
// Returns a new log; the input is untouched.
func SanitizeHAR(har *HARLog) *HARLog {
	out := &HARLog{Entries: make([]HAREntry, len(har.Entries))}

	for i, entry := range har.Entries {
		sanitized := entry

		sanitized.Request.Headers = make([]HARHeader, len(entry.Request.Headers))
		for j, h := range entry.Request.Headers {
			if SensitiveHeaders[strings.ToLower(h.Name)] {
				h.Value = redacted
			}
			sanitized.Request.Headers[j] = h
		}

		sanitized.Request.Body = dsidValuePattern.ReplaceAllString(
			entry.Request.Body, `$1"`+redacted+`"`)
		sanitized.Response.Body = dsidValuePattern.ReplaceAllString(
			entry.Response.Body, `$1"`+redacted+`"`)

		out.Entries[i] = sanitized
	}

	return out
}
