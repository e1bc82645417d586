package rag

import "context"

// Service is the request/response unit exposed to the transport layer: a
// pure composition of retrieval and answer composition. It owns no state —
// every call re-embeds the question and re-queries the index.
type Service struct {
	Retriever *Retriever
	Composer  *Composer
}

// Answer retrieves context for the question and composes a cited answer.
func (s *Service) Answer(ctx context.Context, question string) (Answer, error) {
	results, err := s.Retriever.Retrieve(ctx, question)
	if err != nil {
		return Answer{}, err
	}
	return s.Composer.Compose(ctx, question, results)
}
