// Package catalog loads and serves the ordered interview question list.
package catalog

import (
	"encoding/json"
	"os"

	"anamneseai/internal/logger"
	"anamneseai/internal/model"
)

// Catalog is the immutable ordered question list. An empty catalog is legal;
// the engine produces a "no questions configured" terminal session for it.
type Catalog struct {
	questions []model.Question
	byID      map[string]*model.Question
}

// rawQuestion is the on-disk shape. MaxRetries is a pointer so that an
// explicit 0 can be told apart from an omitted field.
type rawQuestion struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Criteria      []string `json:"criteria"`
	MaxRetries    *int     `json:"maxRetries"`
	Category      string   `json:"category"`
	Required      *bool    `json:"required"`
	AcceptAnswers []string `json:"acceptAnswers"`
}

// Load reads the question file. A missing file falls back to the built-in
// default set; an unreadable one yields an empty catalog. Malformed entries
// are skipped with a warning, never a crash.
func Load(path string, defaultMaxRetries int) *Catalog {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.L().Warnf("questions file %s not found, using default questions", path)
			return Default(defaultMaxRetries)
		}
		logger.L().Errorf("failed to read questions file %s: %v", path, err)
		return New(nil)
	}

	var raw []rawQuestion
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.L().Errorf("failed to decode questions file %s: %v", path, err)
		return New(nil)
	}

	questions := make([]model.Question, 0, len(raw))
	for i, rq := range raw {
		q, ok := parseQuestion(rq, i, defaultMaxRetries)
		if !ok {
			continue
		}
		questions = append(questions, q)
	}

	cat := New(questions)
	logger.L().Infof("loaded %d questions from %s", cat.Len(), path)
	return cat
}

func parseQuestion(rq rawQuestion, index, defaultMaxRetries int) (model.Question, bool) {
	if rq.ID == "" {
		logger.L().Warnf("question %d has no id, skipping", index)
		return model.Question{}, false
	}
	if rq.Prompt == "" {
		logger.L().Warnf("question %q has no prompt, skipping", rq.ID)
		return model.Question{}, false
	}
	criteria := make([]string, 0, len(rq.Criteria))
	for _, c := range rq.Criteria {
		if c != "" {
			criteria = append(criteria, c)
		}
	}
	if len(criteria) == 0 {
		logger.L().Warnf("question %q has no criteria, skipping", rq.ID)
		return model.Question{}, false
	}

	maxRetries := defaultMaxRetries
	if rq.MaxRetries != nil && *rq.MaxRetries >= 0 {
		maxRetries = *rq.MaxRetries
	}
	required := true
	if rq.Required != nil {
		required = *rq.Required
	}
	category := rq.Category
	if category == "" {
		category = "general"
	}

	return model.Question{
		ID:            rq.ID,
		Prompt:        rq.Prompt,
		Criteria:      criteria,
		MaxRetries:    maxRetries,
		Category:      category,
		Required:      required,
		AcceptAnswers: rq.AcceptAnswers,
	}, true
}

// New builds a catalog from already-validated questions. Duplicate ids keep
// the first occurrence.
func New(questions []model.Question) *Catalog {
	c := &Catalog{
		byID: make(map[string]*model.Question, len(questions)),
	}
	for _, q := range questions {
		if _, exists := c.byID[q.ID]; exists {
			logger.L().Warnf("duplicate question id %q, keeping first", q.ID)
			continue
		}
		c.questions = append(c.questions, q)
		c.byID[q.ID] = &c.questions[len(c.questions)-1]
	}
	// Rebuild the index in case appends relocated the backing array.
	for i := range c.questions {
		c.byID[c.questions[i].ID] = &c.questions[i]
	}
	return c
}

// Default returns the built-in question set used when no file is configured.
func Default(defaultMaxRetries int) *Catalog {
	return New([]model.Question{
		{
			ID:     "chief_complaint",
			Prompt: "What is the main reason for your visit today?",
			Criteria: []string{
				"Must describe a specific symptom or health concern",
				"Should be clear and specific",
			},
			MaxRetries: defaultMaxRetries,
			Category:   "primary",
			Required:   true,
		},
		{
			ID:     "symptom_onset",
			Prompt: "When did your symptoms start?",
			Criteria: []string{
				"Must include a time period (days, weeks, months)",
				"Must be specific, not vague terms like 'recently'",
			},
			MaxRetries: defaultMaxRetries,
			Category:   "history",
			Required:   true,
		},
		{
			ID:     "current_medications",
			Prompt: "Are you currently taking any medications?",
			Criteria: []string{
				"Must name the medications or state that there are none",
				"Should include dosage or frequency if medications are taken",
			},
			MaxRetries:    defaultMaxRetries,
			Category:      "medications",
			Required:      true,
			AcceptAnswers: []string{"no", "none"},
		},
	})
}

// First returns the first question, or nil for an empty catalog.
func (c *Catalog) First() *model.Question {
	return c.ByIndex(0)
}

// ByID returns the question with the given id, or nil.
func (c *Catalog) ByID(id string) *model.Question {
	return c.byID[id]
}

// ByIndex returns the question at position i. A nil return is the canonical
// "no more questions" signal.
func (c *Catalog) ByIndex(i int) *model.Question {
	if i < 0 || i >= len(c.questions) {
		return nil
	}
	return &c.questions[i]
}

// NextIndex returns the index after i. The catalog never wraps around.
func (c *Catalog) NextIndex(i int) int {
	return i + 1
}

// Len returns the number of questions.
func (c *Catalog) Len() int {
	return len(c.questions)
}

// Questions returns a copy of the ordered question list.
func (c *Catalog) Questions() []model.Question {
	out := make([]model.Question, len(c.questions))
	copy(out, c.questions)
	return out
}
