package recognition

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/qinyuan/traffix/internal/models"
	"github.com/qinyuan/traffix/internal/provider"
	"go.uber.org/zap"
)

// Result is one model invocation's output for one image: the raw
// answer plus the structured signal extracted from it.
type Result struct {
	Question string
	Answer   string
	Signal   Signal
}

// StructuredJSON renders the signal as a JSON blob for persistence.
func (r *Result) StructuredJSON() string {
	data, err := json.Marshal(r.Signal)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Recognizer runs an image through the vision backend and extracts a
// structured signal from the answer.
type Recognizer struct {
	provider provider.Provider
	logger   *zap.Logger
}

// NewRecognizer creates a recognizer backed by the given provider.
func NewRecognizer(p provider.Provider, logger *zap.Logger) *Recognizer {
	return &Recognizer{
		provider: p,
		logger:   logger,
	}
}

// Recognize asks the model the given question about an image. An empty
// question falls back to DefaultQuestion. The returned error means the
// model invocation itself failed; extraction never fails.
func (r *Recognizer) Recognize(ctx context.Context, imageDataURI, question string) (*Result, error) {
	if question == "" {
		question = DefaultQuestion
	}

	answer, err := r.provider.Invoke(ctx, question, imageDataURI)
	if err != nil {
		r.logger.Error("Recognition call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrRecognition, err)
	}

	signal := ExtractSignal(answer, question)

	r.logger.Info("Recognition completed",
		zap.String("event_type", signal.EventType),
		zap.Float64("confidence", signal.Confidence),
		zap.Int("answer_length", len(answer)))

	return &Result{
		Question: question,
		Answer:   answer,
		Signal:   signal,
	}, nil
}
