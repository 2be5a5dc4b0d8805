package blocks

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/blockdeck/blockdeck/pkg/models"
	"github.com/blockdeck/blockdeck/pkg/registry"
)

// TextModel is the external language-model collaborator behind the AI
// blocks. Implementations wrap a provider API; DemoModel is a deterministic
// stand-in for development and tests.
type TextModel interface {
	Summarize(ctx context.Context, text string) (string, error)
	ExtractEmails(ctx context.Context, text string) ([]string, error)
	Rewrite(ctx context.Context, text string) (string, error)
	Classify(ctx context.Context, text string) (label string, confidence float64, err error)
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// SummarizeHandler produces a TL;DR of the input text.
func SummarizeHandler(model TextModel) registry.Handler {
	return registry.HandlerFunc(func(ctx context.Context, inputs map[string]string) (map[string]models.Scalar, error) {
		summary, err := model.Summarize(ctx, inputs["text"])
		if err != nil {
			return nil, fmt.Errorf("summarize failed: %w", err)
		}

		return map[string]models.Scalar{"summary": models.StringScalar(summary)}, nil
	})
}

// ExtractEmailsHandler lists every email address found in the text.
func ExtractEmailsHandler(model TextModel) registry.Handler {
	return registry.HandlerFunc(func(ctx context.Context, inputs map[string]string) (map[string]models.Scalar, error) {
		emails, err := model.ExtractEmails(ctx, inputs["text"])
		if err != nil {
			return nil, fmt.Errorf("email extraction failed: %w", err)
		}

		return map[string]models.Scalar{"emails": models.StringScalar(strings.Join(emails, ", "))}, nil
	})
}

// RewriteHandler reframes the input for clarity.
func RewriteHandler(model TextModel) registry.Handler {
	return registry.HandlerFunc(func(ctx context.Context, inputs map[string]string) (map[string]models.Scalar, error) {
		rewritten, err := model.Rewrite(ctx, inputs["text"])
		if err != nil {
			return nil, fmt.Errorf("rewrite failed: %w", err)
		}

		return map[string]models.Scalar{"rewritten": models.StringScalar(rewritten)}, nil
	})
}

// ClassifyHandler labels the text's sentiment with a confidence score.
func ClassifyHandler(model TextModel) registry.Handler {
	return registry.HandlerFunc(func(ctx context.Context, inputs map[string]string) (map[string]models.Scalar, error) {
		label, confidence, err := model.Classify(ctx, inputs["text"])
		if err != nil {
			return nil, fmt.Errorf("classification failed: %w", err)
		}

		return map[string]models.Scalar{
			"label":      models.StringScalar(label),
			"confidence": models.NumberScalar(confidence),
		}, nil
	})
}

// TranslateHandler translates the text into the target language.
func TranslateHandler(model TextModel) registry.Handler {
	return registry.HandlerFunc(func(ctx context.Context, inputs map[string]string) (map[string]models.Scalar, error) {
		target := strings.TrimSpace(inputs["targetLanguage"])
		if target == "" {
			return nil, fmt.Errorf("translate requires a target language")
		}

		translated, err := model.Translate(ctx, inputs["text"], target)
		if err != nil {
			return nil, fmt.Errorf("translation failed: %w", err)
		}

		return map[string]models.Scalar{"translated": models.StringScalar(translated)}, nil
	})
}

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// DemoModel is a deterministic TextModel used when no provider is
// configured. Outputs are plausible but computed locally.
type DemoModel struct{}

func NewDemoModel() *DemoModel {
	return &DemoModel{}
}

func (m *DemoModel) Summarize(_ context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	sentences := strings.SplitAfterN(text, ".", 2)

	return strings.TrimSpace(sentences[0]), nil
}

func (m *DemoModel) ExtractEmails(_ context.Context, text string) ([]string, error) {
	found := emailPattern.FindAllString(text, -1)

	seen := make(map[string]bool, len(found))
	emails := make([]string, 0, len(found))

	for _, e := range found {
		e = strings.ToLower(e)
		if !seen[e] {
			seen[e] = true

			emails = append(emails, e)
		}
	}

	return emails, nil
}

func (m *DemoModel) Rewrite(_ context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	return strings.ToUpper(text[:1]) + text[1:], nil
}

func (m *DemoModel) Classify(_ context.Context, text string) (string, float64, error) {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, "love", "great", "good", "excellent", "happy"):
		return "positive", 0.9, nil
	case containsAny(lower, "hate", "bad", "terrible", "awful", "angry"):
		return "negative", 0.9, nil
	default:
		return "neutral", 0.6, nil
	}
}

func (m *DemoModel) Translate(_ context.Context, text, targetLanguage string) (string, error) {
	return fmt.Sprintf("[%s] %s", targetLanguage, text), nil
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}

	return false
}
