// Package explainability implements the explainability generator (§4.4): a
// pure function from a handler's reply to reasoning prose, decision
// factors, alternative considerations, and a 0-100 explainability score.
// Grounded on
// original_source/backend/agents/explainability_agent.py's
// explain_agent_response dispatch.
package explainability

import (
	"fmt"
	"strings"

	"github.com/clinicalcore/orchestrator/core"
)

// Generator produces ExplainabilityMetadata for a handler's reply.
type Generator struct{}

// New constructs a Generator. It holds no state; all methods are pure.
func New() *Generator { return &Generator{} }

// Explain implements §4.4 in full: reasoning summary, decision factors,
// alternative considerations, and the explainability score. The function
// is total — every reply, however sparse, produces a score in [0, 100].
func (g *Generator) Explain(reply core.HandlerReply, handlerType string) core.ExplainabilityMetadata {
	summary := g.reasoningSummary(reply, handlerType)
	factors := g.decisionFactors(reply, handlerType)
	alternatives := g.alternativeConsiderations(reply, handlerType)
	score := g.explainabilityScore(reply, factors, alternatives)

	return core.ExplainabilityMetadata{
		ReasoningSummary:          summary,
		DecisionFactors:           factors,
		AlternativeConsiderations: alternatives,
		ExplainabilityScore:       score,
	}
}

func (g *Generator) reasoningSummary(reply core.HandlerReply, handlerType string) string {
	switch handlerType {
	case "triage":
		return explainTriage(reply)
	case "diagnostic_support":
		return explainDiagnostic(reply)
	case "image_analysis":
		return explainImageAnalysis(reply)
	case "drug_info":
		return explainDrugInfo(reply)
	default:
		return genericExplanation(reply)
	}
}

func explainTriage(reply core.HandlerReply) string {
	urgency, _ := reply.Data["urgency_level"].(string)
	if urgency == "" {
		urgency = "UNKNOWN"
	}
	pct := confidencePercent(reply.Confidence)

	switch urgency {
	case "EMERGENCY":
		flags := "emergency indicators"
		if len(reply.RedFlags) > 0 {
			flags = strings.Join(reply.RedFlags, ", ")
		}
		return fmt.Sprintf(
			"EMERGENCY triage classification triggered by detection of %s. "+
				"These symptoms match patterns associated with life-threatening "+
				"conditions requiring immediate medical evaluation. System confidence: %d%%.",
			flags, pct)
	case "URGENT":
		return fmt.Sprintf(
			"URGENT triage classification based on symptom severity and pattern. "+
				"While not immediately life-threatening, symptoms warrant prompt "+
				"medical evaluation within 24 hours to prevent complications. "+
				"Confidence: %d%%.", pct)
	default:
		return fmt.Sprintf(
			"ROUTINE triage classification - no immediate red flags detected. "+
				"Symptoms can be evaluated during a standard clinic visit. Patient "+
				"advised to monitor for worsening and seek urgent care if condition "+
				"changes. Confidence: %d%%.", pct)
	}
}

func explainDiagnostic(reply core.HandlerReply) string {
	differential, _ := reply.Data["differential_diagnosis"].([]interface{})
	if len(differential) == 0 {
		return "Insufficient symptom information to generate differential diagnosis."
	}

	condition := conditionName(differential[0])
	alternatives := len(differential) - 1

	return fmt.Sprintf(
		"Differential diagnosis analysis suggests '%s' as the most likely "+
			"explanation based on symptom pattern matching (confidence: %d%%). "+
			"%d alternative condition(s) considered. Clinical correlation with "+
			"physical exam, labs, and imaging required for definitive diagnosis. "+
			"This is decision support only, not a final diagnosis.",
		condition, confidencePercent(reply.Confidence), alternatives)
}

func explainImageAnalysis(reply core.HandlerReply) string {
	pct := confidencePercent(reply.Confidence)
	if findings, ok := reply.Data["findings"].(map[string]interface{}); ok {
		if regions, ok := findings["regions_of_interest"].([]interface{}); ok && len(regions) > 0 {
			return fmt.Sprintf(
				"AI image analysis identified %d region(s) of interest requiring "+
					"radiologist review. Findings are preliminary and must be "+
					"confirmed by a qualified radiologist. Confidence: %d%%.",
				len(regions), pct)
		}
	}
	return fmt.Sprintf(
		"Image analysis completed with confidence %d%%. All AI-generated "+
			"findings require validation by a qualified radiologist. This is a "+
			"screening tool, not a diagnostic interpretation.", pct)
}

func explainDrugInfo(reply core.HandlerReply) string {
	drugName, _ := reply.Data["drug_name"].(string)
	if drugName == "" {
		drugName = "medication"
	}
	return fmt.Sprintf(
		"Drug information retrieved for %s from the local medical database. "+
			"Information includes uses, side effects, and known interactions. "+
			"This is educational information only - NOT a prescription or dosage "+
			"recommendation. Always consult a pharmacist or prescribing physician "+
			"for personalized advice.", drugName)
}

func genericExplanation(reply core.HandlerReply) string {
	reasoning := reply.Reasoning
	if reasoning == "" {
		reasoning = "No detailed reasoning available."
	}
	return fmt.Sprintf("AI handler %q processed the request with %d%% confidence. %s",
		reply.HandlerName, confidencePercent(reply.Confidence), reasoning)
}

func (g *Generator) decisionFactors(reply core.HandlerReply, handlerType string) []core.DecisionFactor {
	var factors []core.DecisionFactor

	confidenceImportance := core.ImportanceModerate
	if reply.Confidence >= 0.70 {
		confidenceImportance = core.ImportanceHigh
	}
	factors = append(factors, core.DecisionFactor{
		Factor:      "AI Confidence Score",
		Value:       fmt.Sprintf("%d%%", confidencePercent(reply.Confidence)),
		Importance:  confidenceImportance,
		Description: fmt.Sprintf("Model confidence in prediction: %s", core.DeriveConfidenceLevel(reply.Confidence)),
	})

	if len(reply.RedFlags) > 0 {
		sample := reply.RedFlags
		if len(sample) > 3 {
			sample = sample[:3]
		}
		factors = append(factors, core.DecisionFactor{
			Factor:      "Red Flags Detected",
			Value:       fmt.Sprintf("%d", len(reply.RedFlags)),
			Importance:  core.ImportanceCritical,
			Description: fmt.Sprintf("Emergency indicators: %s", strings.Join(sample, ", ")),
		})
	}

	switch handlerType {
	case "triage":
		urgency, _ := reply.Data["urgency_level"].(string)
		if urgency == "" {
			urgency = "UNKNOWN"
		}
		importance := core.ImportanceHigh
		if urgency == "EMERGENCY" {
			importance = core.ImportanceCritical
		}
		factors = append(factors, core.DecisionFactor{
			Factor:      "Urgency Classification",
			Value:       urgency,
			Importance:  importance,
			Description: fmt.Sprintf("Triage level determined: %s", urgency),
		})
	case "diagnostic_support":
		if symptoms, ok := reply.Data["detected_symptoms"].([]interface{}); ok && len(symptoms) > 0 {
			factors = append(factors, core.DecisionFactor{
				Factor:      "Symptoms Analyzed",
				Value:       fmt.Sprintf("%d", len(symptoms)),
				Importance:  core.ImportanceHigh,
				Description: fmt.Sprintf("Symptoms: %s", joinFirst(symptoms, 5)),
			})
		}
	case "drug_info":
		if interactions, ok := reply.Data["known_interactions"].([]interface{}); ok && len(interactions) > 0 {
			factors = append(factors, core.DecisionFactor{
				Factor:      "Drug Interactions",
				Value:       fmt.Sprintf("%d", len(interactions)),
				Importance:  core.ImportanceHigh,
				Description: fmt.Sprintf("Known interactions with: %s", joinFirst(interactions, 3)),
			})
		}
	}

	return factors
}

func (g *Generator) alternativeConsiderations(reply core.HandlerReply, handlerType string) []string {
	var alternatives []string

	switch handlerType {
	case "diagnostic_support":
		differential, _ := reply.Data["differential_diagnosis"].([]interface{})
		for i := 1; i < len(differential) && i <= 3; i++ {
			name := conditionName(differential[i])
			conf := conditionConfidence(differential[i])
			alternatives = append(alternatives, fmt.Sprintf("%s (%d%% confidence)", name, int(conf*100+0.5)))
		}
	case "triage":
		urgency, _ := reply.Data["urgency_level"].(string)
		switch urgency {
		case "ROUTINE", "":
			alternatives = append(alternatives,
				"Urgent care visit if symptoms worsen",
				"Telemedicine consultation if preferred")
		case "URGENT":
			alternatives = append(alternatives, "Emergency department if condition deteriorates")
		}
	case "image_analysis":
		alternatives = append(alternatives,
			"Second opinion from specialist radiologist",
			"Additional imaging modalities if clinically indicated")
	}

	return alternatives
}

// explainabilityScore implements the exact formula in §4.4.
func (g *Generator) explainabilityScore(reply core.HandlerReply, factors []core.DecisionFactor, alternatives []string) int {
	score := 50

	if len(reply.Reasoning) > 20 {
		score += 20
	}
	if len(factors) >= 2 {
		score += 10
	}
	if len(factors) >= 4 {
		score += 5
	}
	if len(alternatives) >= 1 {
		score += 10
	}
	if len(alternatives) >= 3 {
		score += 5
	}
	if reply.Confidence < 0.30 && reply.Reasoning == "" {
		score -= 20
	}
	if reply.Confidence >= 0.80 && reply.Reasoning != "" {
		score += 10
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func confidencePercent(confidence float64) int {
	return int(confidence*100 + 0.5)
}

func conditionName(v interface{}) string {
	switch c := v.(type) {
	case map[string]interface{}:
		if name, ok := c["condition"].(string); ok {
			return name
		}
		return "Unknown"
	case string:
		return c
	default:
		return fmt.Sprintf("%v", c)
	}
}

func conditionConfidence(v interface{}) float64 {
	if c, ok := v.(map[string]interface{}); ok {
		if conf, ok := c["confidence"].(float64); ok {
			return conf
		}
	}
	return 0
}

func joinFirst(items []interface{}, n int) string {
	if len(items) > n {
		items = items[:n]
	}
	parts := make([]string, len(items))
	for i, v := range items {
		parts[i] = fmt.Sprintf("%v", v)
	}
	return strings.Join(parts, ", ")
}
