package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/ekaya-canvas/pkg/models"
)

func TestBuildExpansionPrompt(t *testing.T) {
	assert.Equal(t, "Idea: a cat on a skateboard", BuildExpansionPrompt("  a cat on a skateboard \n"))
}

func TestBuildExtractionPrompt_ListsEveryFacet(t *testing.T) {
	prompt := BuildExtractionPrompt()

	for _, facet := range models.StructuredDataFacets {
		assert.Contains(t, prompt, `"`+facet+`"`, "facet %s missing from extraction prompt", facet)
	}
	for _, key := range []string{`"name"`, `"aiPromptBlock"`, `"tags"`} {
		assert.Contains(t, prompt, key)
	}
	assert.Len(t, extractionFacets, len(models.StructuredDataFacets))
}

func TestExpansionSystemPrompt_AsksForPromptOnly(t *testing.T) {
	assert.True(t, strings.Contains(ExpansionSystemPrompt, "rewritten prompt only"))
}
