// Package prompts holds the instructions sent to text and vision models.
package prompts

import (
	"fmt"
	"strings"
)

// ExpansionSystemPrompt steers the model toward a single rewritten prompt
// with no commentary around it.
const ExpansionSystemPrompt = `You are a prompt engineer for a text-to-image model.
Rewrite the user's short idea into one detailed image prompt.

Rules:
- Keep the user's subject and intent; never replace it.
- Add concrete visual detail: setting, lighting, camera angle, composition, color, texture and mood.
- Write a single paragraph of at most 120 words.
- Do not mention the rules, do not add a title, do not wrap the answer in quotes or markdown.
- Reply with the rewritten prompt only.`

// ExpansionTemperature leaves room for creative detail without drifting off-topic.
const ExpansionTemperature = 0.7

// BuildExpansionPrompt wraps the raw user prompt for the expansion model.
func BuildExpansionPrompt(rawPrompt string) string {
	return fmt.Sprintf("Idea: %s", strings.TrimSpace(rawPrompt))
}
