package ner

import (
	"context"
	"strings"
	"testing"

	"github.com/finrag/finrag-go/internal/fault"
)

// fakeChat serves a canned response.
type fakeChat struct {
	reply      string
	lastPrompt string
}

func (f *fakeChat) Complete(ctx context.Context, system, user string) (string, error) {
	f.lastPrompt = user
	return f.reply, nil
}

func Test_ParseEntities(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    []Entity
		wantErr bool
	}{
		{
			name: "bare array",
			raw:  `[{"entity": "Goldman Sachs", "type": "company"}]`,
			want: []Entity{{Entity: "Goldman Sachs", Type: "company"}},
		},
		{
			name: "fenced with language tag",
			raw:  "```json\n[{\"entity\": \"EBITDA\", \"type\": \"financial_metric\"}]\n```",
			want: []Entity{{Entity: "EBITDA", Type: "financial_metric"}},
		},
		{
			name: "fenced without language tag",
			raw:  "```\n[{\"entity\": \"USD\", \"type\": \"currency\"}]\n```",
			want: []Entity{{Entity: "USD", Type: "currency"}},
		},
		{
			name: "entities envelope unwrapped",
			raw:  `{"entities": [{"entity": "Basel III", "type": "regulation"}]}`,
			want: []Entity{{Entity: "Basel III", Type: "regulation"}},
		},
		{
			name: "empty array",
			raw:  `[]`,
			want: []Entity{},
		},
		{
			name:    "object without entities key",
			raw:     `{"results": []}`,
			wantErr: true,
		},
		{
			name:    "not json",
			raw:     "I found two companies.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseEntities(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				if !fault.IsKind(err, fault.Format) {
					t.Errorf("want format error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEntities: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("want %d entities, got %d: %v", len(tt.want), len(got), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("entity[%d]: want %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func Test_Recognize_CategoriesInPrompt(t *testing.T) {
	t.Parallel()
	chat := &fakeChat{reply: `[{"entity": "JPMorgan", "type": "company"}]`}
	r := New(chat)

	entities, err := r.Recognize(context.Background(), "JPMorgan raised guidance.", []string{"company"})
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if len(entities) != 1 || entities[0].Entity != "JPMorgan" {
		t.Errorf("entities: got %v", entities)
	}
	if !strings.Contains(chat.lastPrompt, "company") {
		t.Errorf("prompt missing category:\n%s", chat.lastPrompt)
	}
}

func Test_Recognize_DefaultCategories(t *testing.T) {
	t.Parallel()
	chat := &fakeChat{reply: `[]`}
	r := New(chat)

	if _, err := r.Recognize(context.Background(), "text", nil); err != nil {
		t.Fatalf("recognize: %v", err)
	}
	for _, category := range DefaultCategories {
		if !strings.Contains(chat.lastPrompt, category) {
			t.Errorf("prompt missing default category %q", category)
		}
	}
}

func Test_Standardize(t *testing.T) {
	t.Parallel()
	chat := &fakeChat{reply: "```json\n" +
		`{"original": "P/E", "standardized": "price-to-earnings ratio", "explanation": "common abbreviation"}` +
		"\n```"}
	r := New(chat)

	got, err := r.Standardize(context.Background(), "P/E")
	if err != nil {
		t.Fatalf("standardize: %v", err)
	}
	if got.Standardized != "price-to-earnings ratio" {
		t.Errorf("standardized: got %q", got.Standardized)
	}
	if got.Original != "P/E" {
		t.Errorf("original: got %q", got.Original)
	}
}

func Test_Standardize_MalformedResponse(t *testing.T) {
	t.Parallel()
	chat := &fakeChat{reply: "sure, here you go"}
	r := New(chat)

	_, err := r.Standardize(context.Background(), "P/E")
	if err == nil {
		t.Fatal("expected error for malformed response")
	}
	if !fault.IsKind(err, fault.Format) {
		t.Errorf("want format error, got %v", err)
	}
}
