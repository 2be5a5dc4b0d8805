package blocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoModelSummarizeTakesFirstSentence(t *testing.T) {
	model := NewDemoModel()

	summary, err := model.Summarize(context.Background(), "First point. Lots of other detail follows here.")
	require.NoError(t, err)
	assert.Equal(t, "First point.", summary)
}

func TestDemoModelExtractEmailsDedupes(t *testing.T) {
	model := NewDemoModel()

	emails, err := model.ExtractEmails(context.Background(), "Contact a@example.com or A@example.com, cc b@example.org.")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.org"}, emails)
}

func TestDemoModelClassify(t *testing.T) {
	model := NewDemoModel()

	label, confidence, err := model.Classify(context.Background(), "I love this product")
	require.NoError(t, err)
	assert.Equal(t, "positive", label)
	assert.InDelta(t, 0.9, confidence, 0.001)

	label, _, err = model.Classify(context.Background(), "this is terrible")
	require.NoError(t, err)
	assert.Equal(t, "negative", label)

	label, confidence, err = model.Classify(context.Background(), "the sky exists")
	require.NoError(t, err)
	assert.Equal(t, "neutral", label)
	assert.InDelta(t, 0.6, confidence, 0.001)
}

func TestClassifyHandlerOutputs(t *testing.T) {
	outputs, err := ClassifyHandler(NewDemoModel()).Execute(context.Background(), map[string]string{"text": "great stuff"})
	require.NoError(t, err)
	assert.Equal(t, "positive", outputs["label"].String())
	assert.Equal(t, "0.9", outputs["confidence"].String())
}

func TestTranslateHandlerRequiresTargetLanguage(t *testing.T) {
	_, err := TranslateHandler(NewDemoModel()).Execute(context.Background(), map[string]string{"text": "hola"})
	require.Error(t, err)

	outputs, err := TranslateHandler(NewDemoModel()).Execute(context.Background(), map[string]string{
		"text":           "hello",
		"targetLanguage": "Spanish",
	})
	require.NoError(t, err)
	assert.Equal(t, "[Spanish] hello", outputs["translated"].String())
}

func TestExtractEmailsHandlerJoinsList(t *testing.T) {
	outputs, err := ExtractEmailsHandler(NewDemoModel()).Execute(context.Background(), map[string]string{
		"text": "a@example.com and b@example.org",
	})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com, b@example.org", outputs["emails"].String())
}
