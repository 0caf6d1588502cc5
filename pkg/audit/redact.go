package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// redactedFields is the closed, case-insensitive redaction set (§4.5
// write-path step 1): {name, email, phone, ssn, address, dob}.
var redactedFields = map[string]struct{}{
	"name":    {},
	"email":   {},
	"phone":   {},
	"ssn":     {},
	"address": {},
	"dob":     {},
}

const redactedValue = "[REDACTED]"

// redact recursively walks data, replacing the value of any key in
// redactedFields (case-insensitive) with redactedValue. Nested maps and
// slices are traversed; the input is not mutated.
func redact(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if _, found := redactedFields[strings.ToLower(k)]; found {
			out[k] = redactedValue
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return redact(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			if m, ok := item.(map[string]interface{}); ok {
				out[i] = redact(m)
			} else {
				out[i] = item
			}
		}
		return out
	default:
		return v
	}
}

// hashUserID hashes a user id with SHA-256 and truncates to the first 16
// hex characters (§4.5 write-path step 2).
func hashUserID(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])[:16]
}
