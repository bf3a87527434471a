package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/help-center/backend/internal/model/helpdesk"
)

const assistantInstructions = "You are a helpful customer support assistant for Ramp. " +
	"Answer the user's question based on the help articles provided below. " +
	"Be concise and helpful. Always cite which articles you used by referencing their titles."

// BuildSystemPrompt embeds the retrieved articles into the assistant instructions.
func BuildSystemPrompt(sources []helpdesk.Source) string {
	entries := make([]string, 0, len(sources))
	for i, src := range sources {
		entries = append(entries, fmt.Sprintf("Article %d: \"%s\"\nContent: %s\nURL: %s", i+1, src.Title, src.Snippet, src.URL))
	}

	var builder strings.Builder
	builder.WriteString(assistantInstructions)
	builder.WriteString("\n\nHelp Articles:\n")
	builder.WriteString(strings.Join(entries, "\n\n"))
	return builder.String()
}
