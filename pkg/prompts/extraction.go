package prompts

import (
	"strings"
)

// ExtractionSystemPrompt asks a vision model to describe an image as a
// reusable style context.
const ExtractionSystemPrompt = `You analyze reference images for an AI image studio.
Describe the visual style of the image so it can be reused to generate new images with the same look.
Respond with a single JSON object and nothing else.`

// extractionFacets documents each structured data facet for the model.
var extractionFacets = []struct {
	key, description string
}{
	{"subject", "the main subject and what it is doing"},
	{"environment", "the setting or background"},
	{"lighting", "light sources, direction, quality and time of day"},
	{"colorPalette", "an array of 3 to 6 dominant colors as short names or hex codes"},
	{"camera", "shot type, lens and angle"},
	{"composition", "framing and arrangement of elements"},
	{"mood", "the emotional tone"},
	{"style", "artistic style or medium"},
	{"materials", "notable textures and materials"},
	{"era", "time period or design era"},
	{"renderType", "photograph, 3D render, illustration, painting and so on"},
}

// BuildExtractionPrompt returns the user turn sent alongside the image.
func BuildExtractionPrompt() string {
	var b strings.Builder

	b.WriteString("Extract a style context from this image.\n\n")
	b.WriteString("Return JSON with exactly these keys:\n")
	b.WriteString(`- "name": a short title for the style (2 to 5 words)` + "\n")
	b.WriteString(`- "structuredData": an object with these keys:` + "\n")
	for _, f := range extractionFacets {
		b.WriteString(`    - "` + f.key + `": ` + f.description + "\n")
	}
	b.WriteString(`- "aiPromptBlock": one paragraph that reproduces this style when appended to an image prompt` + "\n")
	b.WriteString(`- "tags": an array of 3 to 8 lowercase keywords` + "\n\n")
	b.WriteString("Every structuredData value is a string except colorPalette, which is an array of strings.")

	return b.String()
}
