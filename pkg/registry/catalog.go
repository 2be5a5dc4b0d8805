package registry

import "github.com/blockdeck/blockdeck/pkg/models"

// Catalog returns the marketplace's block definitions. AI blocks cost one
// token per run and are gated behind a billing entitlement; utility blocks
// are free and run natively.
func Catalog() []*models.BlockDefinition {
	return []*models.BlockDefinition{
		{
			ID:             "summarize-text",
			Name:           "Summarize Text",
			Description:    "TL;DR summary of a user-pasted document.",
			FeatureSlug:    "summarize_text",
			PriceSlug:      "summarize_text",
			UsageMeterSlug: "summarize_text_runs",
			UsesAI:         true,
			TokenCost:      1,
			Inputs:         []models.BlockInput{{Key: "text", Label: "Text to summarize", Required: true}},
			Outputs:        []models.BlockOutput{{Key: "summary", Label: "Summary"}},
		},
		{
			ID:             "extract-emails",
			Name:           "Extract Emails",
			Description:    "Extract all email addresses from raw text.",
			FeatureSlug:    "extract_emails",
			PriceSlug:      "extract_emails",
			UsageMeterSlug: "extract_emails_runs",
			UsesAI:         true,
			TokenCost:      1,
			Inputs:         []models.BlockInput{{Key: "text", Label: "Text to scan", Required: true}},
			Outputs:        []models.BlockOutput{{Key: "emails", Label: "Extracted emails"}},
		},
		{
			ID:             "rewrite-prompt",
			Name:           "Rewrite Prompt",
			Description:    "Reframe user input for clarity and structure.",
			FeatureSlug:    "rewrite_prompt",
			PriceSlug:      "rewrite_prompt",
			UsageMeterSlug: "rewrite_prompt_runs",
			UsesAI:         true,
			TokenCost:      1,
			Inputs:         []models.BlockInput{{Key: "text", Label: "Input to rewrite", Required: true}},
			Outputs:        []models.BlockOutput{{Key: "rewritten", Label: "Rewritten text"}},
		},
		{
			ID:             "classify-input",
			Name:           "Classify Input",
			Description:    "Label text as positive, neutral, or negative.",
			FeatureSlug:    "classify_input",
			PriceSlug:      "classify_input",
			UsageMeterSlug: "classify_input_runs",
			UsesAI:         true,
			TokenCost:      1,
			Inputs:         []models.BlockInput{{Key: "text", Label: "Text to classify", Required: true}},
			Outputs: []models.BlockOutput{
				{Key: "label", Label: "Sentiment"},
				{Key: "confidence", Label: "Confidence"},
			},
		},
		{
			ID:             "translate-text",
			Name:           "Translate Text",
			Description:    "Translate text into a target language.",
			FeatureSlug:    "translate_text",
			PriceSlug:      "translate_text",
			UsageMeterSlug: "translate_text_runs",
			UsesAI:         true,
			TokenCost:      1,
			Inputs: []models.BlockInput{
				{Key: "text", Label: "Text to translate", Required: true},
				{Key: "targetLanguage", Label: "Target language (e.g. Spanish, French)", Required: true},
			},
			Outputs: []models.BlockOutput{{Key: "translated", Label: "Translated text"}},
		},
		{
			ID:          "trigger",
			Name:        "Trigger",
			Description: "Start of a workflow. No inputs; outputs a signal so other blocks can depend on it.",
			FeatureSlug: models.FreeFeatureSlug,
			PriceSlug:   models.FreeFeatureSlug,
			Outputs:     []models.BlockOutput{{Key: "trigger", Label: "Signal"}},
		},
		{
			ID:          "constant",
			Name:        "Constant",
			Description: "Output a fixed value you type in.",
			FeatureSlug: models.FreeFeatureSlug,
			PriceSlug:   models.FreeFeatureSlug,
			Inputs:      []models.BlockInput{{Key: "value", Label: "Value", Required: true}},
			Outputs:     []models.BlockOutput{{Key: "value", Label: "Value"}},
		},
		{
			ID:          "text-join",
			Name:        "Text Join",
			Description: "Combine two text inputs into one, with an optional separator.",
			FeatureSlug: models.FreeFeatureSlug,
			PriceSlug:   models.FreeFeatureSlug,
			Inputs: []models.BlockInput{
				{Key: "text1", Label: "First text", Required: true},
				{Key: "text2", Label: "Second text", Required: true},
				{Key: "separator", Label: "Separator (e.g. space)"},
			},
			Outputs: []models.BlockOutput{{Key: "combined", Label: "Combined text"}},
		},
		{
			ID:          "conditional",
			Name:        "Conditional",
			Description: "Check if text is non-empty or contains a pattern. Outputs true/false for branching.",
			FeatureSlug: models.FreeFeatureSlug,
			PriceSlug:   models.FreeFeatureSlug,
			Inputs: []models.BlockInput{
				{Key: "text", Label: "Text to check", Required: true},
				{Key: "pattern", Label: "Contains (optional)"},
			},
			Outputs: []models.BlockOutput{{Key: "match", Label: "Match result"}},
		},
		{
			ID:          "send-slack",
			Name:        "Send to Slack",
			Description: "Post a message to a Slack channel through an incoming webhook.",
			FeatureSlug: models.FreeFeatureSlug,
			PriceSlug:   models.FreeFeatureSlug,
			Inputs: []models.BlockInput{
				{Key: "webhookUrl", Label: "Slack Webhook URL", Required: true},
				{Key: "message", Label: "Message to send", Required: true},
			},
			Outputs: []models.BlockOutput{{Key: "status", Label: "Send status"}},
		},
		{
			ID:          "send-discord",
			Name:        "Send to Discord",
			Description: "Post a message to a Discord channel through a webhook.",
			FeatureSlug: models.FreeFeatureSlug,
			PriceSlug:   models.FreeFeatureSlug,
			Inputs: []models.BlockInput{
				{Key: "webhookUrl", Label: "Discord Webhook URL", Required: true},
				{Key: "message", Label: "Message to send", Required: true},
			},
			Outputs: []models.BlockOutput{{Key: "status", Label: "Send status"}},
		},
		{
			ID:          "fetch-url",
			Name:        "Fetch URL",
			Description: "Fetch a webpage and return its content as text.",
			FeatureSlug: models.FreeFeatureSlug,
			PriceSlug:   models.FreeFeatureSlug,
			Inputs:      []models.BlockInput{{Key: "url", Label: "URL to fetch", Required: true}},
			Outputs: []models.BlockOutput{
				{Key: "body", Label: "Page content"},
				{Key: "statusCode", Label: "HTTP status code"},
			},
		},
	}
}
