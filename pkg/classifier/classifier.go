// Package classifier implements the deterministic, rule-based intent
// classifier (§4.2): keyword/regex scoring over a fixed pattern table, with
// no learned model and no external calls, so that every classification
// decision is reviewable from the pattern table alone.
package classifier

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/clinicalcore/orchestrator/core"
	"github.com/clinicalcore/orchestrator/pkg/logger"
)

const (
	defaultHandlerName        = core.DefaultFallbackHandlerName
	defaultHandlerConfidence  = 0.30
	secondaryHandlerThreshold = core.SecondaryHandlerScoreFloor
	maxSecondaryHandlers      = core.MaxSecondaryHandlers
	triageUrgentScoreFloor    = 0.6
)

// Classifier scores a request's message against a compiled PatternSet and
// produces an IntentClassification (§4.2).
type Classifier struct {
	patterns *PatternSet
	logger   core.Logger
	tel      core.Telemetry
}

// Option configures a Classifier at construction time.
type Option func(*Classifier)

// WithPatterns overrides the built-in pattern table.
func WithPatterns(ps *PatternSet) Option {
	return func(c *Classifier) { c.patterns = ps }
}

// WithTelemetry attaches a telemetry sink for per-classification spans.
func WithTelemetry(t core.Telemetry) Option {
	return func(c *Classifier) { c.tel = t }
}

// New constructs a Classifier using the built-in pattern table unless
// overridden via WithPatterns.
func New(log core.Logger, opts ...Option) *Classifier {
	if log == nil {
		log = core.NoOpLogger{}
	}
	c := &Classifier{
		patterns: DefaultPatterns(),
		logger:   logger.Scope(log, "core/classifier"),
		tel:      core.NoOpTelemetry{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify implements §4.2's five-step algorithm: check emergency patterns
// first (highest priority, short-circuits to triage), otherwise score every
// handler, pick the top scorer as primary, up to two others scoring above
// the secondary threshold as secondary, and adjust urgency for borderline
// triage cases.
func (c *Classifier) Classify(ctx context.Context, req core.Request) (core.IntentClassification, error) {
	ctx, span := c.tel.StartSpan(ctx, "stage.classify")
	defer span.End()

	message := strings.ToLower(req.Message)

	if urgency, confidence, matched := c.checkEmergency(message); matched {
		span.SetAttribute("emergency", true)
		result := core.IntentClassification{
			PrimaryHandler: "triage",
			Urgency:        urgency,
			Confidence:     confidence,
			Reasoning:      "Emergency keywords detected. Immediate triage required.",
		}
		c.logger.Warn("emergency classification", "confidence", confidence)
		return result, nil
	}

	scores := c.scoreHandlers(message)
	if len(scores) == 0 {
		return core.IntentClassification{
			PrimaryHandler: defaultHandlerName,
			Urgency:        core.UrgencyRoutine,
			Confidence:     defaultHandlerConfidence,
			Reasoning:      "No specific handler matched. Defaulting to general communication.",
		}, nil
	}

	ranked := rankHandlers(scores, c.patterns.HandlerOrder)
	primary := ranked[0]

	var secondary []string
	for _, h := range ranked[1:] {
		if scores[h] > secondaryHandlerThreshold {
			secondary = append(secondary, h)
		}
		if len(secondary) == maxSecondaryHandlers {
			break
		}
	}

	urgency := core.UrgencyRoutine
	primaryScore := scores[primary]
	if primary == "triage" && primaryScore > triageUrgentScoreFloor {
		urgency = core.UrgencyUrgent
	} else if strings.Contains(message, "emergency") || strings.Contains(message, "urgent") {
		urgency = core.UrgencyUrgent
	}

	span.SetAttribute("handler", primary)
	return core.IntentClassification{
		PrimaryHandler:    primary,
		SecondaryHandlers: secondary,
		Urgency:           urgency,
		Confidence:        primaryScore,
		Reasoning:         fmt.Sprintf("Matched handler %q based on keyword patterns.", primary),
	}, nil
}

// ClassifyBatch classifies several requests, returning results in the same
// order as the input (SPEC_FULL.md supplemented feature).
func (c *Classifier) ClassifyBatch(ctx context.Context, reqs []core.Request) ([]core.IntentClassification, error) {
	out := make([]core.IntentClassification, len(reqs))
	for i, req := range reqs {
		result, err := c.Classify(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("classifier: batch item %d: %w", i, err)
		}
		out[i] = result
	}
	return out, nil
}

// checkEmergency reports whether message matches any emergency pattern, and
// if so the resulting urgency and confidence (§4.2 step 1).
func (c *Classifier) checkEmergency(message string) (core.UrgencyLevel, float64, bool) {
	matches := 0
	for _, re := range c.patterns.Emergency {
		if re.MatchString(message) {
			matches++
		}
	}
	if matches == 0 {
		return core.UrgencyRoutine, 0, false
	}
	confidence := 0.7 + float64(matches)*0.15
	if confidence > 0.95 {
		confidence = 0.95
	}
	return core.UrgencyEmergency, confidence, true
}

// scoreHandlers scores every handler by the fraction of its patterns that
// matched, with a small per-match boost, capped at 0.95 (§4.2 step 2).
func (c *Classifier) scoreHandlers(message string) map[string]float64 {
	scores := make(map[string]float64)
	for handler, patterns := range c.patterns.Handlers {
		if len(patterns) == 0 {
			continue
		}
		matches := 0
		for _, re := range patterns {
			if re.MatchString(message) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		base := float64(matches) / float64(len(patterns))
		boosted := base + float64(matches)*0.1
		if boosted > 0.95 {
			boosted = 0.95
		}
		scores[handler] = boosted
	}
	return scores
}

// rankHandlers returns handlers with a nonzero score, sorted by score
// descending, ties broken by their position in order (the pattern table's
// declared handler order), mirroring Python dict insertion-order iteration.
func rankHandlers(scores map[string]float64, order []string) []string {
	rank := make(map[string]int, len(order))
	for i, h := range order {
		rank[h] = i
	}

	ranked := make([]string, 0, len(scores))
	for h := range scores {
		ranked = append(ranked, h)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := scores[ranked[i]], scores[ranked[j]]
		if si != sj {
			return si > sj
		}
		ri, rj := rank[ranked[i]], rank[ranked[j]]
		if ri != rj {
			return ri < rj
		}
		return ranked[i] < ranked[j]
	})
	return ranked
}
