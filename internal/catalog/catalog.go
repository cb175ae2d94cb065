// Package catalog defines the chat models users can pick from.
package catalog

// Model describes one selectable chat model.
type Model struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// DefaultModelID is used when a request or conversation does not
// specify a model.
const DefaultModelID = "google/gemini-2.5-flash"

var models = []Model{
	{ID: "anthropic/claude-3.7-sonnet", Name: "Claude 3.7 Sonnet", Provider: "Anthropic"},
	{ID: "anthropic/claude-3.5-sonnet", Name: "Claude 3.5 Sonnet", Provider: "Anthropic"},
	{ID: "anthropic/claude-3-haiku", Name: "Claude 3 Haiku", Provider: "Anthropic"},
	{ID: "google/gemini-2.5-flash", Name: "Gemini 2.5 Flash", Provider: "Google"},
	{ID: "google/gemini-2.0-flash-001", Name: "Gemini 2.0 Flash", Provider: "Google"},
	{ID: "google/gemini-2.5-pro", Name: "Gemini 2.5 Pro", Provider: "Google"},
	{ID: "openai/gpt-4o", Name: "GPT-4o", Provider: "OpenAI"},
	{ID: "openai/gpt-4.1", Name: "GPT-4.1", Provider: "OpenAI"},
	{ID: "meta-llama/llama-4-maverick", Name: "Llama 4 Maverick", Provider: "Meta"},
	{ID: "meta-llama/llama-4-scout", Name: "Llama 4 Scout", Provider: "Meta"},
}

// Models returns the full catalog in display order. The caller gets a
// copy and may not mutate the catalog.
func Models() []Model {
	out := make([]Model, len(models))
	copy(out, models)
	return out
}

// Valid reports whether id names a known model.
func Valid(id string) bool {
	for _, m := range models {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Resolve returns id if it names a known model, falling back to the
// default otherwise. Empty input resolves to the default.
func Resolve(id string) string {
	if Valid(id) {
		return id
	}
	return DefaultModelID
}
