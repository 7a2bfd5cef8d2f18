package search

import (
	"context"

	"github.com/sirupsen/logrus"

	"newsletter/api/internal/newsletter"
)

// Service is the facade that tries Meilisearch first and falls back to SQL.
type Service struct {
	meili    *Meili
	fallback Searcher
	log      *logrus.Entry
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, fallback Searcher) *Service {
	return &Service{meili: meili, fallback: fallback, log: logrus.WithField("component", "search")}
}

// Search tries Meilisearch if healthy, otherwise falls back to SQL.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.log.WithError(err).Warn("meilisearch error, falling back to sql")
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.log.WithError(err).Error("sql search failed")
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexNewsletter indexes a saved newsletter (fire-and-forget to Meilisearch).
func (s *Service) IndexNewsletter(doc newsletter.Document) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	record := RecordFor(doc)
	go func() {
		if err := s.meili.IndexNewsletter(record); err != nil {
			s.log.WithError(err).WithField("newsletter_id", record.ID).Warn("index newsletter")
		}
	}()
}

// ReindexAll pushes every stored newsletter to Meilisearch.
func (s *Service) ReindexAll(docs []newsletter.Document) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	records := make([]NewsletterRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, RecordFor(doc))
	}
	if err := s.meili.IndexNewsletters(records); err != nil {
		s.log.WithError(err).Warn("reindex newsletters")
	}
}

// RecordFor converts a document into its index form.
func RecordFor(doc newsletter.Document) NewsletterRecord {
	return NewsletterRecord{
		ID:          doc.ID,
		Title:       doc.Title,
		Body:        doc.Text(),
		UpdatedAtMS: doc.UpdatedAt.UnixMilli(),
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
