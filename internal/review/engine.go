// Package review implements the auto-review decision engine: a pure
// function from a recognition signal and the submitter's declared event
// types to a verdict. All persistence is the caller's responsibility.
package review

import (
	"fmt"
	"strings"

	"github.com/qinyuan/traffix/internal/models"
)

// DefaultConfidenceThreshold is the cutoff above which automatic
// approval is permitted.
const DefaultConfidenceThreshold = 0.6

// minUsableConfidence is the floor below which a recognition signal can
// never auto-approve or auto-reject.
const minUsableConfidence = 0.3

// Input carries everything the engine decides on.
type Input struct {
	DeclaredTypes []string // user-declared event types, may be empty
	DetectedType  string   // extractor's canonical category, may be empty
	Confidence    float64
	Failed        bool // the upstream recognition call failed
}

// Decision is the engine's verdict with its rationale. The rationale
// is persisted alongside the verdict; no verdict is applied silently.
type Decision struct {
	Verdict    models.ReviewResult
	Rationale  string
	Confidence float64
}

// Engine applies the triage rules. Deliberately conservative: the
// automatic path never rejects — low confidence or any ambiguity
// routes to a human instead.
type Engine struct {
	threshold float64
}

// NewEngine creates an engine with the given approval threshold.
// Non-positive values fall back to the default.
func NewEngine(threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &Engine{threshold: threshold}
}

// Threshold returns the configured approval threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Decide runs the rule chain. Rule order is a designed priority:
//
//  1. failed or unusable recognition always goes to a human
//  2. no declared type: approve on confidence alone
//  3. declared type: approve only when it matches the detection and
//     confidence clears the threshold
//
// Rejection is reachable only through manual review.
func (e *Engine) Decide(in Input) Decision {
	// Rule 1: failed or low-confidence recognition can never
	// auto-approve.
	if in.Failed || in.Confidence < minUsableConfidence {
		return Decision{
			Verdict:    models.ReviewResultNeedReview,
			Rationale:  fmt.Sprintf("recognition unusable, manual review required (confidence %.2f)", in.Confidence),
			Confidence: in.Confidence,
		}
	}

	// Rule 2: nothing declared, trust the detection if confident.
	if len(in.DeclaredTypes) == 0 {
		if in.Confidence >= e.threshold {
			return Decision{
				Verdict:    models.ReviewResultApproved,
				Rationale:  fmt.Sprintf("auto-approved: detected %s with confidence %.2f", in.DetectedType, in.Confidence),
				Confidence: in.Confidence,
			}
		}
		return Decision{
			Verdict:    models.ReviewResultNeedReview,
			Rationale:  fmt.Sprintf("manual review: detected %s but confidence %.2f is below threshold %.2f", in.DetectedType, in.Confidence, e.threshold),
			Confidence: in.Confidence,
		}
	}

	// Rule 3: declared types must agree with the detection.
	// Containment is tested in both directions, exact substring.
	match := false
	if in.DetectedType != "" {
		for _, declared := range in.DeclaredTypes {
			if strings.Contains(declared, in.DetectedType) || strings.Contains(in.DetectedType, declared) {
				match = true
				break
			}
		}
	}

	if match && in.Confidence >= e.threshold {
		return Decision{
			Verdict:    models.ReviewResultApproved,
			Rationale:  fmt.Sprintf("auto-approved: declared type matches detected %s, confidence %.2f", in.DetectedType, in.Confidence),
			Confidence: in.Confidence,
		}
	}

	if !match && in.DetectedType != "" {
		return Decision{
			Verdict:    models.ReviewResultNeedReview,
			Rationale:  fmt.Sprintf("manual review: declared (%s) does not match detected (%s)", strings.Join(in.DeclaredTypes, ","), in.DetectedType),
			Confidence: in.Confidence,
		}
	}

	if in.Confidence < e.threshold {
		return Decision{
			Verdict:    models.ReviewResultNeedReview,
			Rationale:  fmt.Sprintf("manual review: confidence %.2f is below threshold %.2f", in.Confidence, e.threshold),
			Confidence: in.Confidence,
		}
	}

	// Unreachable under the rules above, kept as a conservative
	// fallback.
	return Decision{
		Verdict:    models.ReviewResultNeedReview,
		Rationale:  "manual review required",
		Confidence: in.Confidence,
	}
}
