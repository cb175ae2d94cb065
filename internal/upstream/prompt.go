package upstream

import "strings"

// historyWindow caps how many prior turns are replayed into the
// prompt so long conversations do not blow the model's context.
const historyWindow = 10

// Turn is one prior exchange fed into the prompt.
type Turn struct {
	Role    string // "USER" or "ASSISTANT"
	Content string
}

// BuildPrompt flattens recent history plus the new user message into
// the single completion prompt the upstream API expects. It ends with
// an open "Assistant:" marker for the model to continue from.
func BuildPrompt(history []Turn, newMessage string) string {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	var b strings.Builder
	for _, turn := range history {
		label := "Assistant"
		if turn.Role == "USER" {
			label = "User"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n\n")
	}

	b.WriteString("User: ")
	b.WriteString(newMessage)
	b.WriteString("\n\nAssistant:")
	return b.String()
}
