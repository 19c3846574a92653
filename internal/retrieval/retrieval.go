// Package retrieval answers terminology queries by combining similarity
// search over the canonical-terms collection with a generative explanation.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/finrag/finrag-go/internal/embedder"
	"github.com/finrag/finrag-go/internal/llm"
	"github.com/finrag/finrag-go/internal/logging"
	"github.com/finrag/finrag-go/internal/vectorstore"
)

// defaultSearchLimit is the candidate count used when the caller does not
// specify one.
const defaultSearchLimit = 5

// noCandidatesNote replaces the context block when search returns nothing.
const noCandidatesNote = "no related terms found"

// Candidate is one canonical term returned by similarity search.
type Candidate struct {
	// Term is the canonical term text.
	Term string `json:"term"`
	// Category groups related terms.
	Category string `json:"category"`
	// Distance is the store's native similarity score for this hit.
	Distance float32 `json:"distance"`
}

// ExplanationResult is the output of a single-shot explanation.
type ExplanationResult struct {
	// Query is the original user query.
	Query string `json:"query"`
	// Candidates are the retrieved canonical terms, possibly empty.
	Candidates []Candidate `json:"candidates"`
	// Explanation is the generated answer.
	Explanation string `json:"explanation"`
}

// Completer is the slice of chat capability the retriever needs. It is
// satisfied by *llm.Client.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Stream(ctx context.Context, system, user string, fn func(fragment string) error) error
}

var _ Completer = (*llm.Client)(nil)

// Retriever runs terminology search and explanation generation.
type Retriever struct {
	cfg   *vectorstore.Config
	embed embedder.Embedder
	chat  Completer

	// open is swapped out in tests.
	open func(ctx context.Context, cfg *vectorstore.Config) (vectorstore.Store, error)
}

// New constructs a Retriever over the given collaborators.
func New(cfg *vectorstore.Config, embed embedder.Embedder, chat Completer) *Retriever {
	return &Retriever{
		cfg:   cfg,
		embed: embed,
		chat:  chat,
		open:  vectorstore.Open,
	}
}

// Search embeds the query and returns the top-limit candidates from the
// canonical-terms collection. Store or embedding failures degrade to an
// empty result rather than an error, since explanation can proceed on the
// query alone.
func (r *Retriever) Search(ctx context.Context, query string, limit int) []Candidate {
	log := logging.FromContext(ctx)
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	vectors, err := r.embed.Embed(ctx, []string{query})
	if err != nil {
		log.Warn("query embedding failed, searching without candidates",
			slog.String("error", err.Error()))
		return nil
	}

	store, err := r.open(ctx, r.cfg)
	if err != nil {
		log.Warn("vector store unavailable, searching without candidates",
			slog.String("error", err.Error()))
		return nil
	}
	defer store.Close()

	hits, err := store.Search(ctx, vectorstore.TermCollection, vectors[0], limit, []string{"term", "category"})
	if err != nil {
		log.Warn("term search failed, continuing without candidates",
			slog.String("error", err.Error()))
		return nil
	}

	candidates := make([]Candidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, Candidate{
			Term:     hit.Fields["term"],
			Category: hit.Fields["category"],
			Distance: hit.Distance,
		})
	}
	return candidates
}

// Explain runs search and a single-shot completion conditioned on the
// retrieved candidates.
func (r *Retriever) Explain(ctx context.Context, query string) (*ExplanationResult, error) {
	candidates := r.Search(ctx, query, defaultSearchLimit)

	explanation, err := r.chat.Complete(ctx, systemPrompt, userPrompt(query, candidates))
	if err != nil {
		return nil, err
	}
	return &ExplanationResult{
		Query:       query,
		Candidates:  candidates,
		Explanation: explanation,
	}, nil
}

// EventType tags the kind of a streaming event.
type EventType string

const (
	// EventCandidates carries the full candidate list. Emitted exactly
	// once, before any fragment.
	EventCandidates EventType = "candidates"
	// EventFragment carries one incremental piece of generated text.
	EventFragment EventType = "fragment"
	// EventError terminates the stream; text emitted before it stands.
	EventError EventType = "error"
)

// Event is one element of a streamed explanation.
type Event struct {
	Type       EventType
	Candidates []Candidate
	Fragment   string
	Message    string
}

// ExplainStream runs search, then streams the generated explanation. The
// first event always carries the candidate list, even when empty; fragments
// follow in arrival order; a generation failure ends the stream with a
// single error event. The channel is closed when the stream ends.
func (r *Retriever) ExplainStream(ctx context.Context, query string) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)

		candidates := r.Search(ctx, query, defaultSearchLimit)
		if candidates == nil {
			candidates = []Candidate{}
		}
		events <- Event{Type: EventCandidates, Candidates: candidates}

		err := r.chat.Stream(ctx, systemPrompt, userPrompt(query, candidates), func(fragment string) error {
			select {
			case events <- Event{Type: EventFragment, Fragment: fragment}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			events <- Event{Type: EventError, Message: err.Error()}
		}
	}()
	return events
}

// systemPrompt frames the assistant as a financial terminology expert.
const systemPrompt = "You are a financial terminology expert. You explain " +
	"financial terms precisely, citing standard definitions where they exist."

// userPrompt assembles the generation prompt: the candidate context block
// followed by instructions differentiated by loanword-versus-native form.
func userPrompt(query string, candidates []Candidate) string {
	var b strings.Builder

	b.WriteString("Related canonical terms:\n")
	if len(candidates) == 0 {
		b.WriteString(noCandidatesNote + "\n")
	} else {
		for _, c := range candidates {
			if c.Category != "" {
				fmt.Fprintf(&b, "- %s (%s)\n", c.Term, c.Category)
			} else {
				fmt.Fprintf(&b, "- %s\n", c.Term)
			}
		}
	}

	b.WriteString("\nQuery: " + query + "\n\n")
	if looksLikeLoanword(query) {
		b.WriteString("The query appears to be a loanword or foreign-origin term. " +
			"Give the standard native equivalent used in financial reporting, " +
			"explain its meaning, and note the original term it derives from.")
	} else {
		b.WriteString("The query appears to be a native term. Define it, " +
			"describe where it is used in financial reporting, and mention " +
			"common equivalent terms if any exist.")
	}
	return b.String()
}

// looksLikeLoanword reports whether the query reads as a transliterated
// foreign term: it contains Latin letters and no Han characters.
func looksLikeLoanword(query string) bool {
	hasLatin := false
	for _, r := range query {
		if unicode.Is(unicode.Han, r) {
			return false
		}
		if unicode.IsLetter(r) && r < 0x250 {
			hasLatin = true
		}
	}
	return hasLatin
}
