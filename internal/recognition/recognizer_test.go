package recognition

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qinyuan/traffix/internal/models"
)

type stubProvider struct {
	prompt string
	answer string
	err    error
}

func (s *stubProvider) Invoke(ctx context.Context, prompt, imageDataURI string) (string, error) {
	s.prompt = prompt
	return s.answer, s.err
}

func TestRecognize_DefaultsQuestion(t *testing.T) {
	stub := &stubProvider{answer: "图中公路上有抛洒物"}
	recognizer := NewRecognizer(stub, zap.NewNop())

	result, err := recognizer.Recognize(context.Background(), "data:image/jpeg;base64,AAAA", "")
	require.NoError(t, err)

	assert.Equal(t, DefaultQuestion, stub.prompt)
	assert.Equal(t, DefaultQuestion, result.Question)
	assert.Equal(t, "debris", result.Signal.EventType)
}

func TestRecognize_PassesCustomQuestion(t *testing.T) {
	stub := &stubProvider{answer: "没有异常"}
	recognizer := NewRecognizer(stub, zap.NewNop())

	result, err := recognizer.Recognize(context.Background(), "data:image/jpeg;base64,AAAA", PresetQuestions["accident"])
	require.NoError(t, err)

	assert.Equal(t, PresetQuestions["accident"], stub.prompt)
	assert.Empty(t, result.Signal.EventType)
}

func TestRecognize_WrapsProviderError(t *testing.T) {
	stub := &stubProvider{err: errors.New("timeout")}
	recognizer := NewRecognizer(stub, zap.NewNop())

	_, err := recognizer.Recognize(context.Background(), "data:image/jpeg;base64,AAAA", "")
	assert.ErrorIs(t, err, models.ErrRecognition)
}

func TestResult_StructuredJSON(t *testing.T) {
	result := &Result{Signal: Signal{EventType: "debris", Confidence: 0.7}}

	assert.Contains(t, result.StructuredJSON(), `"event_type":"debris"`)
	assert.Contains(t, result.StructuredJSON(), `"confidence":0.7`)
}
