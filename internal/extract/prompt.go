package extract

import (
	"fmt"
	"strings"

	"github.com/kalambet/huntd/internal/ollama"
)

const systemPrompt = `You are a recruitment data extractor. Analyze one email from a job application process. Your output must be ONLY a single valid JSON object that conforms to the provided schema. Do not include any other text, prose, or markdown.

Rules:
- "company_name" must be the employer, not the hiring platform (use "Tesla", never "Workday").
- "status" must be one of: UNKNOWN, APPLIED, PENDING, COMMUNICATION, ASSESSMENT, INTERVIEW, REJECTED, OFFER.
- "summary" is a single professional sentence describing what this email means for the application.
- Set "is_rejection" to true only when the email clearly closes the process.`

// maxPromptBody bounds how much body text is sent to a model.
const maxPromptBody = 3500

// BuildPrompt constructs the user message content for extraction.
func BuildPrompt(sender, subject, body string) string {
	clean := strings.Join(strings.Fields(body), " ")
	if len(clean) > maxPromptBody {
		clean = clean[:maxPromptBody]
	}
	return fmt.Sprintf("Sender: %s\nSubject: %s\nContent: %s", sender, subject, clean)
}

// recordSchema describes the structured output expected from any model.
func recordSchema() *ollama.Schema {
	return &ollama.Schema{
		Type: "object",
		Properties: map[string]ollama.SchemaProperty{
			"company_name": {Type: "string", Description: "The employer, never the hiring platform"},
			"position":     {Type: "string", Description: "Role title if mentioned, else empty"},
			"status":       {Type: "string", Description: "One of: UNKNOWN, APPLIED, PENDING, COMMUNICATION, ASSESSMENT, INTERVIEW, REJECTED, OFFER"},
			"summary":      {Type: "string", Description: "One-sentence summary of what this email means"},
			"is_rejection": {Type: "boolean", Description: "True when the email closes the application"},
			"next_step":    {Type: "string", Description: "Suggested next action for the candidate, else empty"},
		},
		Required: []string{"company_name", "status", "summary", "is_rejection"},
	}
}
