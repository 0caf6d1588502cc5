package safety

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// tableFile is the on-disk shape for the disclaimer and prohibited-phrase
// tables, following the teacher's workflow-definition YAML idiom
// (pkg/routing/workflow.go's loadWorkflows).
type tableFile struct {
	Disclaimers       map[string]string `yaml:"disclaimers"`
	ProhibitedPhrases []string          `yaml:"prohibited_phrases"`
}

const genericDisclaimerKey = "_default"

// Tables holds the compiled disclaimer and prohibited-phrase tables the
// safety wrapper consults (§4.3 items 1-2).
type Tables struct {
	Disclaimers       map[string]string
	ProhibitedPhrases []string
}

// Disclaimer returns the disclaimer for handlerType, or the generic
// fallback when no handler-specific entry exists (§4.3 item 1).
func (t *Tables) Disclaimer(handlerType string) string {
	if d, ok := t.Disclaimers[handlerType]; ok {
		return d
	}
	return t.Disclaimers[genericDisclaimerKey]
}

// FindProhibited returns the first prohibited phrase found in text
// (case-insensitive), or "" if none match.
func (t *Tables) FindProhibited(text string) string {
	lower := strings.ToLower(text)
	for _, phrase := range t.ProhibitedPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return phrase
		}
	}
	return ""
}

// DefaultTables returns the built-in disclaimer and prohibited-phrase
// tables.
func DefaultTables() *Tables {
	return tablesFromFile(defaultTableFile())
}

// LoadTablesFile loads disclaimers from disclaimersPath and prohibited
// phrases from prohibitedPath, falling back to built-in defaults for any
// path left empty or missing (§6 configuration surface:
// disclaimers_path, prohibited_phrases_path).
func LoadTablesFile(disclaimersPath, prohibitedPath string) (*Tables, error) {
	base := defaultTableFile()

	if disclaimersPath != "" {
		var tf tableFile
		if err := readYAML(disclaimersPath, &tf); err != nil {
			return nil, fmt.Errorf("safety: load disclaimers: %w", err)
		}
		if tf.Disclaimers != nil {
			base.Disclaimers = tf.Disclaimers
		}
	}

	if prohibitedPath != "" {
		var tf tableFile
		if err := readYAML(prohibitedPath, &tf); err != nil {
			return nil, fmt.Errorf("safety: load prohibited phrases: %w", err)
		}
		if tf.ProhibitedPhrases != nil {
			base.ProhibitedPhrases = tf.ProhibitedPhrases
		}
	}

	return tablesFromFile(base), nil
}

func readYAML(path string, out *tableFile) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, out)
}

func tablesFromFile(tf tableFile) *Tables {
	return &Tables{
		Disclaimers:       tf.Disclaimers,
		ProhibitedPhrases: tf.ProhibitedPhrases,
	}
}

// defaultTableFile is the built-in table. Prohibited phrases target
// definitive-diagnosis phrasing and prescriptive instructions from
// non-prescriber handlers (§4.3 item 2).
func defaultTableFile() tableFile {
	return tableFile{
		Disclaimers: map[string]string{
			"triage": "This is an automated triage assessment, not a medical " +
				"diagnosis. Seek emergency care immediately if symptoms worsen.",
			"diagnostic_support": "This is decision support only, not a final " +
				"diagnosis. Clinical correlation with physical exam, labs, and " +
				"imaging is required.",
			"image_analysis": "This is a screening tool, not a diagnostic " +
				"interpretation. All findings require validation by a qualified " +
				"radiologist.",
			"drug_info": "This is educational information only, not a " +
				"prescription or dosage recommendation. Consult a pharmacist or " +
				"prescribing physician.",
			genericDisclaimerKey: "This information is AI-generated and for " +
				"informational purposes only. It does not replace professional " +
				"medical advice.",
		},
		ProhibitedPhrases: []string{
			"you have ",
			"diagnosed with ",
			"you are diagnosed",
			"take 2 tablets",
			"take two tablets",
			"increase your dose",
			"stop taking your medication",
			"prescribing you",
		},
	}
}
