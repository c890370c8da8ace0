package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"autodb/internal/index"
)

// NoMatchAnswer is returned when the index holds nothing relevant. No
// completion call is made in that case.
const NoMatchAnswer = "I couldn’t find anything relevant."

const promptTemplate = `You are AutoDB, an assistant that answers questions based on stored data.

User question: %s

Here are the most relevant pieces of stored data:
%s

Instructions:
- If any of the retrieved data is relevant, use it to answer the question directly and concisely.
- If multiple chunks are returned, prefer the ones that explicitly mention the topic in the question.
- Do not refuse to answer if relevant data exists in the context.
- Only say: "I don’t know based on current data." if none of the chunks mention the topic at all.`

type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]index.Match, error)
}

type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Match is the wire form of one retrieved chunk.
type Match struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Source string `json:"source"`
	JSON   string `json:"json"`
	DocID  string `json:"doc_id"`
}

// Result is the full query response: the completion's answer verbatim, one
// source label per match in rank order (not deduplicated), and the matches.
type Result struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
	Matches []Match  `json:"matches"`
}

type Service struct {
	retriever Retriever
	completer Completer
	topK      int
	logger    *QueryLogger
}

func NewService(r Retriever, c Completer, topK int, l *QueryLogger) *Service {
	return &Service{retriever: r, completer: c, topK: topK, logger: l}
}

// Answer retrieves the top-k chunks for the question, builds the provenance
// context and asks the completion model. A completion failure propagates;
// there is no fallback answer.
func (s *Service) Answer(ctx context.Context, question string) (*Result, error) {
	start := time.Now()

	matches, err := s.retriever.Query(ctx, question, s.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	if s.logger != nil {
		defer func() {
			s.logger.Log(QueryLogEntry{
				Query:      question,
				NumResults: len(matches),
				Duration:   time.Since(start),
			})
		}()
	}

	if len(matches) == 0 {
		return &Result{
			Answer:  NoMatchAnswer,
			Sources: []string{},
			Matches: []Match{},
		}, nil
	}

	prompt := fmt.Sprintf(promptTemplate, question, BuildContext(matches))
	text, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}

	sources := make([]string, len(matches))
	dtos := make([]Match, len(matches))
	for i, m := range matches {
		sources[i] = m.Source
		dtos[i] = Match{
			ID:     m.ID,
			Text:   m.DisplayText,
			Source: m.Source,
			JSON:   m.OriginalForm,
			DocID:  m.DocID,
		}
	}

	return &Result{Answer: text, Sources: sources, Matches: dtos}, nil
}

// BuildContext assembles the retrieved chunks into one provenance-tagged
// block, rank order preserved, entries separated by a blank line.
func BuildContext(matches []index.Match) string {
	blocks := make([]string, len(matches))
	for i, m := range matches {
		blocks[i] = fmt.Sprintf("Source: %s\n%s", m.Source, m.DisplayText)
	}
	return strings.Join(blocks, "\n\n")
}
