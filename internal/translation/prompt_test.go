package translation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/olegiv/yoga-i18n/internal/model"
)

func TestBuildUserPrompt(t *testing.T) {
	prompt := buildUserPrompt([]Task{
		{Field: "title", SourceText: `Say "om"`, SourceLocale: "en", TargetLocale: "ru"},
		{Field: "body", SourceText: "line one\nline <two>", SourceLocale: "en", TargetLocale: "es"},
	})

	assert.Contains(t, prompt, "Translate the following 2 texts.")
	assert.Contains(t, prompt, "[0] Field: title\nFrom: English (en)\nTo: Russian (ru)\n")
	assert.Contains(t, prompt, `Text: "Say \"om\""`)
	assert.Contains(t, prompt, "[1] Field: body")
	assert.Contains(t, prompt, `Text: "line one\nline <two>"`)
}

func TestBuildSystemPrompt(t *testing.T) {
	terms := []model.GlossaryTerm{{Key: "asana", Terms: map[string]string{"es": "asana", "ru": "асана", "en": "asana"}}}

	prompt := buildSystemPrompt(model.EntityChakra, terms)

	assert.Contains(t, prompt, "yoga and wellness platform")
	assert.Contains(t, prompt, model.EntityChakra.Context())
	assert.Contains(t, prompt, `- asana: en "asana", ru "асана", es "asana"`)
	assert.Contains(t, prompt, `"translated_text"`)

	assert.NotContains(t, buildSystemPrompt(model.EntityCourse, nil), "Glossary")
}

func TestRelevantTerms(t *testing.T) {
	glossary := []model.GlossaryTerm{
		{Key: "asana", Terms: map[string]string{"ru": "асана"}},
		{Key: "pranayama", Terms: map[string]string{"ru": "пранаяма"}},
		{Key: "savasana", Terms: map[string]string{"ru": "шавасана"}},
	}
	tasks := []Task{
		{SourceText: "Дыхательная ПРАНАЯМА", SourceLocale: "ru"},
		{SourceText: "Balance asana", SourceLocale: "en"},
	}

	got := relevantTerms(glossary, tasks)

	keys := make([]string, 0, len(got))
	for _, term := range got {
		keys = append(keys, term.Key)
	}
	assert.Equal(t, "asana,pranayama", strings.Join(keys, ","))
}
