package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubHandler struct {
	BaseHandler
	capabilities []string
	reply        HandlerReply
	err          error
}

func newStubHandler(name string, capabilities ...string) *stubHandler {
	return &stubHandler{BaseHandler: NewBaseHandler(name), capabilities: capabilities}
}

func (s *stubHandler) Description() string          { return "stub handler for tests" }
func (s *stubHandler) Capabilities() []string        { return s.capabilities }
func (s *stubHandler) ConfidenceThreshold() float64  { return 0.2 }
func (s *stubHandler) Process(ctx context.Context, req Request) (HandlerReply, error) {
	return s.reply, s.err
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry(nil)
	h := newStubHandler("triage", "fever", "chest pain")
	r.Register(h)

	got, ok := r.Get("triage")
	assert.True(t, ok)
	assert.Equal(t, h, got)
}

func TestRegistryGetUnknownReturnsAbsent(t *testing.T) {
	r := NewRegistry(nil)
	_, ok := r.Get("nonexistent")
	assert.False(t, ok)
}

func TestRegistryDuplicateRegistrationOverwrites(t *testing.T) {
	r := NewRegistry(nil)
	first := newStubHandler("triage")
	second := newStubHandler("triage", "new-capability")

	r.Register(first)
	r.Register(second)

	got, _ := r.Get("triage")
	assert.Same(t, second, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryListEnabledExcludesDisabled(t *testing.T) {
	r := NewRegistry(nil)
	enabled := newStubHandler("triage")
	disabled := newStubHandler("drug_info")
	disabled.SetEnabled(false)

	r.Register(enabled)
	r.Register(disabled)

	all := r.ListAll()
	assert.Len(t, all, 2)

	onlyEnabled := r.ListEnabled()
	assert.Len(t, onlyEnabled, 1)
	assert.Equal(t, "triage", onlyEnabled[0].Name())
}

func TestRegistryFindByCapabilityIsCaseInsensitiveAndEnabledOnly(t *testing.T) {
	r := NewRegistry(nil)
	triage := newStubHandler("triage", "Fever", "chest pain")
	drug := newStubHandler("drug_info", "fever")
	drug.SetEnabled(false)

	r.Register(triage)
	r.Register(drug)

	matches := r.FindByCapability("FEVER")
	assert.Len(t, matches, 1)
	assert.Equal(t, "triage", matches[0].Name())
}

func TestBaseHandlerValidateRequestRejectsEmptyMessage(t *testing.T) {
	h := newStubHandler("triage")

	assert.False(t, h.ValidateRequest(Request{Message: "   "}))
	assert.True(t, h.ValidateRequest(Request{Message: "hello"}))
}

func TestDeriveConfidenceLevelThresholds(t *testing.T) {
	cases := []struct {
		x        float64
		expected ConfidenceLevel
	}{
		{1.0, ConfidenceHigh},
		{0.80, ConfidenceHigh},
		{0.79, ConfidenceModerate},
		{0.50, ConfidenceModerate},
		{0.49, ConfidenceLow},
		{0.20, ConfidenceLow},
		{0.19, ConfidenceVeryLow},
		{0.0, ConfidenceVeryLow},
	}
	for _, c := range cases {
		assert.Equal(t, c.expected, DeriveConfidenceLevel(c.x), "x=%v", c.x)
	}
}

func TestDeriveConfidenceLevelIsMonotonic(t *testing.T) {
	rank := map[ConfidenceLevel]int{
		ConfidenceVeryLow:  0,
		ConfidenceLow:      1,
		ConfidenceModerate: 2,
		ConfidenceHigh:     3,
	}
	prev := 0.0
	prevRank := rank[DeriveConfidenceLevel(prev)]
	for x := 0.01; x <= 1.0; x += 0.01 {
		r := rank[DeriveConfidenceLevel(x)]
		assert.GreaterOrEqual(t, r, prevRank)
		prevRank = r
		prev = x
	}
	_ = prev
}
