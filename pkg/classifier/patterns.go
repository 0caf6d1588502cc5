package classifier

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// patternFile is the on-disk shape for an overridable pattern table,
// following the teacher's workflow-definition YAML idiom
// (pkg/routing/workflow.go's loadWorkflows).
type patternFile struct {
	EmergencyPatterns []string            `yaml:"emergency_patterns"`
	HandlerPatterns   map[string][]string `yaml:"handler_patterns"`
	HandlerOrder      []string            `yaml:"handler_order"`
}

// PatternSet holds the compiled regular expressions the classifier scores
// against, plus the fixed handler iteration order used to break score ties
// deterministically (§4.2 step 3).
type PatternSet struct {
	Emergency    []*regexp.Regexp
	Handlers     map[string][]*regexp.Regexp
	HandlerOrder []string
}

// DefaultPatterns returns the built-in pattern table, grounded verbatim on
// original_source/backend/orchestrator/intent_classifier.py's
// emergency_patterns and agent_patterns tables.
func DefaultPatterns() *PatternSet {
	ps, err := compilePatternFile(defaultPatternFile())
	if err != nil {
		// The default table is a compile-time constant; a failure here is a
		// programming error, not a runtime condition callers can recover from.
		panic(fmt.Sprintf("classifier: default pattern table failed to compile: %v", err))
	}
	return ps
}

// LoadPatternsFile loads and compiles a pattern table from a YAML file,
// falling back to DefaultPatterns() if path is empty or does not exist.
func LoadPatternsFile(path string) (*PatternSet, error) {
	if path == "" {
		return DefaultPatterns(), nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultPatterns(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("classifier: read pattern file: %w", err)
	}

	var pf patternFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("classifier: parse pattern file: %w", err)
	}
	return compilePatternFile(pf)
}

func compilePatternFile(pf patternFile) (*PatternSet, error) {
	ps := &PatternSet{
		Handlers:     make(map[string][]*regexp.Regexp, len(pf.HandlerPatterns)),
		HandlerOrder: pf.HandlerOrder,
	}

	for _, raw := range pf.EmergencyPatterns {
		re, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("classifier: compile emergency pattern %q: %w", raw, err)
		}
		ps.Emergency = append(ps.Emergency, re)
	}

	for handler, rawPatterns := range pf.HandlerPatterns {
		compiled := make([]*regexp.Regexp, 0, len(rawPatterns))
		for _, raw := range rawPatterns {
			re, err := regexp.Compile(raw)
			if err != nil {
				return nil, fmt.Errorf("classifier: compile pattern %q for handler %q: %w", raw, handler, err)
			}
			compiled = append(compiled, re)
		}
		ps.Handlers[handler] = compiled
	}

	return ps, nil
}

// defaultPatternFile is the built-in table, case-insensitive via (?i).
func defaultPatternFile() patternFile {
	return patternFile{
		EmergencyPatterns: []string{
			`(?i)\b(emergency|urgent|critical|severe)\b`,
			`(?i)\b(chest pain|heart attack|stroke|seizure)\b`,
			`(?i)\b(can't breathe|difficulty breathing|choking)\b`,
			`(?i)\b(unconscious|unresponsive|passed out)\b`,
			`(?i)\b(severe bleeding|hemorrhage)\b`,
			`(?i)\b(suicide|kill myself|self harm)\b`,
			`(?i)\b(anaphylaxis|allergic reaction|throat (swelling|closing))\b`,
		},
		HandlerOrder: []string{
			"triage", "health_support", "diagnostic_support", "image_analysis",
			"drug_info", "communication", "appointment", "referral",
			"health_memory", "document_vault", "voice",
		},
		HandlerPatterns: map[string][]string{
			"triage": {
				`(?i)\b(emergency|urgent|pain|symptoms|sick|ill|feeling)\b`,
				`(?i)\b(fever|cough|headache|nausea|vomiting|diarrhea|sore throat)\b`,
				`(?i)\b(how serious|should i worry|need doctor)\b`,
				`(?i)\b(i have|i'm feeling|i feel|experiencing)\b`,
			},
			"health_support": {
				`(?i)\b(hello|hi|hey|greeting)\b`,
				`(?i)\b(daily|check in|wellness|how am i)\b`,
			},
			"diagnostic_support": {
				`(?i)\b(diagnos\w*|condition|disease|what do i have)\b`,
				`(?i)\b(differential|possible conditions|could it be)\b`,
				`(?i)\b(symptoms suggest|indicate|might mean)\b`,
			},
			"image_analysis": {
				`(?i)\b(x-?ray|xray|scan|ct|mri|ultrasound|imaging)\b`,
				`(?i)\b(analyze image|check image|look at|review image)\b`,
				`(?i)\b(chest x-?ray|brain scan|dermatology)\b`,
			},
			"drug_info": {
				`(?i)\b(medication|medicine|drug|prescription|pill)\b`,
				`(?i)\b(side effect|interaction|contraindication)\b`,
				`(?i)\b(dosage|how much|how often|when to take)\b`,
				`(?i)\b(aspirin|ibuprofen|tylenol|antibiotic)\b`,
			},
			"communication": {
				`(?i)\b(explain|what is|tell me about|describe)\b`,
				`(?i)\b(in simple terms|layman|easy to understand)\b`,
				`(?i)\b(mean\s|definition|understand)\b`,
			},
			"appointment": {
				`(?i)\b(appointment|schedule|book|availability|available)\b`,
				`(?i)\b(see doctor|visit|consultation)\b`,
				`(?i)\b(next available|earliest|when can i)\b`,
			},
			"referral": {
				`(?i)\b(specialist|referral|find doctor|recommend doctor)\b`,
				`(?i)\b(cardiologist|dermatologist|neurologist|oncologist)\b`,
				`(?i)\b(nearby|near me|in my area)\b`,
			},
			"health_memory": {
				`(?i)\b(history|past|previous|records|medical record)\b`,
				`(?i)\b(last time|before|earlier|previously)\b`,
				`(?i)\b(retrieve|look up|find|search)\b`,
			},
			"document_vault": {
				`(?i)\b(upload|store|save|document|file|report)\b`,
				`(?i)\b(lab results|test results|prescription|scan)\b`,
			},
			"voice": {
				`(?i)\b(transcribe|voice|speech|audio|recording)\b`,
				`(?i)\b(dictate|hands-free)\b`,
			},
		},
	}
}
