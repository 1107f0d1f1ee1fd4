package extract

import (
	"strings"
	"time"
)

// suggestedCategories is offered to the model as guidance. The validator
// accepts any non-empty category, so an off-list answer still passes.
var suggestedCategories = []string{
	"Food & Drink",
	"Groceries",
	"Transportation",
	"Shopping",
	"Entertainment",
	"Bills & Utilities",
	"Health",
	"Travel",
	"Housing",
	"Income",
	"Other",
}

// buildPrompt constructs the fixed instruction contract for one extraction
// request. Today's date is embedded so the model can resolve relative dates
// like "yesterday".
func buildPrompt(text string, today time.Time) string {
	var b strings.Builder

	b.WriteString("You are a financial transaction extractor.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Extract exactly ONE transaction from the text below.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("- Output a single JSON object, nothing else.\n\n")

	b.WriteString("The object must have exactly these keys:\n")
	b.WriteString("- \"amount\": number (always positive)\n")
	b.WriteString("- \"date\": string, ISO format \"YYYY-MM-DD\"\n")
	b.WriteString("- \"merchant\": string (who the money went to or came from)\n")
	b.WriteString("- \"category\": string (one of the suggested categories below)\n")
	b.WriteString("- \"type\": string, \"income\" or \"expense\"\n")
	b.WriteString("- \"currency\": string, 3-letter code (e.g. \"USD\")\n")
	b.WriteString("- \"description\": string (short summary, may be empty)\n\n")

	b.WriteString("Suggested categories:\n")
	for _, c := range suggestedCategories {
		b.WriteString("  - " + c + "\n")
	}
	b.WriteString("\n")

	b.WriteString("Rules:\n")
	b.WriteString("- Today's date is " + today.Format("2006-01-02") + ". Resolve relative dates (\"yesterday\", \"last Friday\") against it.\n")
	b.WriteString("- If no date is mentioned, use today's date.\n")
	b.WriteString("- If no currency is mentioned, use \"USD\".\n")
	b.WriteString("- Spending money is \"expense\"; receiving money is \"income\".\n")
	b.WriteString("- Return ONLY valid raw JSON.\n")
	b.WriteString("- Do NOT wrap the response in code fences.\n")
	b.WriteString("- Do NOT use ```json or any Markdown.\n")
	b.WriteString("- Output must begin with \"{\" and end with \"}\".\n\n")

	b.WriteString("Text:\n")
	b.WriteString(text)
	b.WriteString("\n")

	return b.String()
}
