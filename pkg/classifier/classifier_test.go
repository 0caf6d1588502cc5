package classifier_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clinicalcore/orchestrator/core"
	"github.com/clinicalcore/orchestrator/pkg/classifier"
)

func TestClassifyEmergencyShortCircuitsToTriage(t *testing.T) {
	c := classifier.New(nil)
	result, err := c.Classify(context.Background(), core.Request{Message: "I have severe chest pain and can't breathe"})

	assert.NoError(t, err)
	assert.Equal(t, "triage", result.PrimaryHandler)
	assert.Equal(t, core.UrgencyEmergency, result.Urgency)
	assert.GreaterOrEqual(t, result.Confidence, 0.7)
	assert.Empty(t, result.SecondaryHandlers)
}

func TestClassifyNoMatchDefaultsToCommunication(t *testing.T) {
	c := classifier.New(nil)
	result, err := c.Classify(context.Background(), core.Request{Message: "asdkfjasldkfj qqqqzzzz"})

	assert.NoError(t, err)
	assert.Equal(t, "communication", result.PrimaryHandler)
	assert.Equal(t, core.UrgencyRoutine, result.Urgency)
	assert.Equal(t, 0.30, result.Confidence)
}

func TestClassifyPicksHighestScoringHandler(t *testing.T) {
	c := classifier.New(nil)
	result, err := c.Classify(context.Background(), core.Request{Message: "I have a fever and cough, should I worry?"})

	assert.NoError(t, err)
	assert.Equal(t, "triage", result.PrimaryHandler)
}

func TestClassifySecondaryHandlersCappedAtTwo(t *testing.T) {
	c := classifier.New(nil)
	result, err := c.Classify(context.Background(), core.Request{
		Message: "Can you explain what condition this is, book an appointment with a specialist, and check my medical record history?",
	})

	assert.NoError(t, err)
	assert.LessOrEqual(t, len(result.SecondaryHandlers), 2)
	assert.NotContains(t, result.SecondaryHandlers, result.PrimaryHandler)
}

func TestClassifyBatchPreservesOrder(t *testing.T) {
	c := classifier.New(nil)
	reqs := []core.Request{
		{Message: "I have a headache"},
		{Message: "book an appointment"},
		{Message: "chest pain, can't breathe"},
	}
	results, err := c.ClassifyBatch(context.Background(), reqs)

	assert.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, core.UrgencyEmergency, results[2].Urgency)
}

func TestClassifyTriageUrgentWhenScoreAboveFloor(t *testing.T) {
	c := classifier.New(nil)
	result, err := c.Classify(context.Background(), core.Request{
		Message: "I have fever, cough, headache, nausea and I'm feeling very sick, should I worry, need doctor",
	})

	assert.NoError(t, err)
	assert.Equal(t, "triage", result.PrimaryHandler)
	assert.Equal(t, core.UrgencyUrgent, result.Urgency)
}

func TestLoadPatternsFileFallsBackToDefaultWhenMissing(t *testing.T) {
	ps, err := classifier.LoadPatternsFile("/nonexistent/path/patterns.yaml")
	assert.NoError(t, err)
	assert.NotEmpty(t, ps.Emergency)
}
