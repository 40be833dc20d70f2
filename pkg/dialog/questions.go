package dialog

import "github.com/opsintent/intentcore/pkg/models"

// questionGenerator is the pure per-field template table QuestionGenerator
// uses to turn missing_fields into user-facing questions. No LLM, no
// randomness: the same missing_fields list always produces the same
// ordered question list.
type questionGenerator struct {
	templates map[string]string
}

func newQuestionGenerator(templates []models.QuestionTemplate) *questionGenerator {
	byKey := make(map[string]string, len(templates))
	for _, t := range templates {
		byKey[t.FieldKey] = t.Template
	}
	return &questionGenerator{templates: byKey}
}

// generate returns one question per entry in missingFields, in the same
// order. A field with no registered template falls back to a generic
// prompt naming the field key, rather than being silently dropped.
func (g *questionGenerator) generate(missingFields []string) []string {
	questions := make([]string, 0, len(missingFields))
	for _, field := range missingFields {
		if tmpl, ok := g.templates[field]; ok {
			questions = append(questions, tmpl)
			continue
		}
		questions = append(questions, "Could you provide "+field+"?")
	}
	return questions
}
