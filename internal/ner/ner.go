// Package ner extracts and standardizes financial entities from text using
// the chat-completion backend. The backend answers in JSON; responses are
// defensively unwrapped before parsing since models wrap output in code
// fences or envelope objects.
package ner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/finrag/finrag-go/internal/fault"
	"github.com/finrag/finrag-go/internal/llm"
)

// DefaultCategories are the entity categories requested when the caller
// does not name any.
var DefaultCategories = []string{
	"company", "financial_metric", "currency", "regulation", "instrument",
}

// Entity is one recognized entity with its category.
type Entity struct {
	// Entity is the surface text of the recognized entity.
	Entity string `json:"entity"`
	// Type is the category assigned by the model.
	Type string `json:"type"`
}

// Standardization maps a non-standard term to its canonical form.
type Standardization struct {
	// Original is the input term as given.
	Original string `json:"original"`
	// Standardized is the canonical form of the term.
	Standardized string `json:"standardized"`
	// Explanation justifies the mapping.
	Explanation string `json:"explanation"`
}

// Completer is the slice of chat capability this package needs. It is
// satisfied by *llm.Client.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

var _ Completer = (*llm.Client)(nil)

// Recognizer runs entity recognition and standardization.
type Recognizer struct {
	chat Completer
}

// New constructs a Recognizer over the given chat backend.
func New(chat Completer) *Recognizer {
	return &Recognizer{chat: chat}
}

const recognizeSystem = "You are a financial named-entity recognition system. " +
	"Answer only with JSON, no prose."

// Recognize extracts entities of the requested categories from text.
func (r *Recognizer) Recognize(ctx context.Context, text string, categories []string) ([]Entity, error) {
	if len(categories) == 0 {
		categories = DefaultCategories
	}

	prompt := fmt.Sprintf(
		"Extract all entities of these categories: %s.\n\n"+
			"Text:\n%s\n\n"+
			`Respond with a JSON array of {"entity": "...", "type": "..."} objects.`,
		strings.Join(categories, ", "), text)

	raw, err := r.chat.Complete(ctx, recognizeSystem, prompt)
	if err != nil {
		return nil, err
	}
	return ParseEntities(raw)
}

const standardizeSystem = "You are a financial terminology standardization " +
	"system. Answer only with JSON, no prose."

// Standardize maps a term to its canonical form.
func (r *Recognizer) Standardize(ctx context.Context, term string) (*Standardization, error) {
	prompt := fmt.Sprintf(
		"Standardize this financial term to its canonical form: %q.\n\n"+
			`Respond with a JSON object {"original": "...", "standardized": "...", "explanation": "..."}.`,
		term)

	raw, err := r.chat.Complete(ctx, standardizeSystem, prompt)
	if err != nil {
		return nil, err
	}

	var result Standardization
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &result); err != nil {
		return nil, fault.Wrap(fault.Format, err, "ner: parse standardization response")
	}
	return &result, nil
}

// ParseEntities decodes a recognition response. The model may answer with a
// bare array or wrap it in an object under an "entities" key; both forms
// are accepted.
func ParseEntities(raw string) ([]Entity, error) {
	cleaned := stripCodeFence(raw)

	var entities []Entity
	if err := json.Unmarshal([]byte(cleaned), &entities); err == nil {
		return entities, nil
	}

	var wrapped struct {
		Entities []Entity `json:"entities"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wrapped); err != nil {
		return nil, fault.Wrap(fault.Format, err, "ner: parse recognition response")
	}
	if wrapped.Entities == nil {
		return nil, fault.New(fault.Format, "ner: recognition response has no entities")
	}
	return wrapped.Entities, nil
}

// stripCodeFence removes a surrounding markdown code fence, with or without
// a language tag.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line (e.g. "json").
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 10 && !strings.ContainsAny(first, "{[") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
