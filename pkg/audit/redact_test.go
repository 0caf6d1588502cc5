package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactReplacesKnownPIIFieldsCaseInsensitively(t *testing.T) {
	in := map[string]interface{}{
		"Name":    "Jane Doe",
		"EMAIL":   "jane@example.com",
		"message": "I have a headache",
	}
	out := redact(in)

	assert.Equal(t, redactedValue, out["Name"])
	assert.Equal(t, redactedValue, out["EMAIL"])
	assert.Equal(t, "I have a headache", out["message"])
}

func TestRedactTraversesNestedMapsAndLists(t *testing.T) {
	in := map[string]interface{}{
		"context": map[string]interface{}{
			"address": "123 Main St",
			"notes":   "routine",
		},
		"contacts": []interface{}{
			map[string]interface{}{"phone": "555-1234", "relation": "spouse"},
		},
	}
	out := redact(in)

	ctx := out["context"].(map[string]interface{})
	assert.Equal(t, redactedValue, ctx["address"])
	assert.Equal(t, "routine", ctx["notes"])

	contacts := out["contacts"].([]interface{})
	contact := contacts[0].(map[string]interface{})
	assert.Equal(t, redactedValue, contact["phone"])
	assert.Equal(t, "spouse", contact["relation"])
}

func TestRedactDoesNotMutateInput(t *testing.T) {
	in := map[string]interface{}{"name": "Jane"}
	_ = redact(in)
	assert.Equal(t, "Jane", in["name"])
}

func TestHashUserIDIsStableAndTruncated(t *testing.T) {
	h1 := hashUserID("patient-123")
	h2 := hashUserID("patient-123")
	h3 := hashUserID("patient-456")

	assert.Len(t, h1, 16)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}
