// Package persistence is the durable store/fetch boundary of the editor:
// documents go to a primary backend and fall back to a local cache when the
// backend cannot be reached.
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"newsletter/api/internal/newsletter"
)

// Backend is the primary store. GetNewsletter returns nil, nil when the
// document does not exist.
type Backend interface {
	SaveNewsletter(context.Context, newsletter.Document) (newsletter.Document, error)
	GetNewsletter(context.Context, string) (*newsletter.Document, error)
}

// Cache is the local fallback copy. An entry only lives until the primary
// accepts a newer save of the same document.
type Cache interface {
	Put(context.Context, newsletter.Document) error
	Get(context.Context, string) (*newsletter.Document, error)
	Delete(context.Context, string) error
}

// Indexer is notified after every successful primary save.
type Indexer interface {
	IndexNewsletter(newsletter.Document)
}

type Gateway struct {
	primary  Backend
	fallback Cache
	indexer  Indexer
	log      *logrus.Entry
}

// New builds a gateway. fallback and indexer may be nil.
func New(primary Backend, fallback Cache, indexer Indexer) *Gateway {
	return &Gateway{
		primary:  primary,
		fallback: fallback,
		indexer:  indexer,
		log:      logrus.WithField("component", "persistence"),
	}
}

// Save stores doc in the primary backend, or in the fallback cache when the
// backend fails. The error is non-nil only when both fail.
func (g *Gateway) Save(ctx context.Context, doc newsletter.Document) (newsletter.Document, error) {
	saved, err := g.primary.SaveNewsletter(ctx, doc)
	if err == nil {
		if g.fallback != nil {
			if cacheErr := g.fallback.Delete(ctx, doc.ID); cacheErr != nil {
				g.log.WithError(cacheErr).WithField("newsletter_id", doc.ID).Warn("clear local fallback")
			}
		}
		if g.indexer != nil {
			g.indexer.IndexNewsletter(saved)
		}
		return saved, nil
	}

	g.log.WithError(err).WithField("newsletter_id", doc.ID).Warn("primary save failed, writing local fallback")
	if g.fallback == nil {
		return newsletter.Document{}, fmt.Errorf("save newsletter %s: %w", doc.ID, err)
	}
	if cacheErr := g.fallback.Put(ctx, doc); cacheErr != nil {
		return newsletter.Document{}, fmt.Errorf("save newsletter %s: %w", doc.ID, errors.Join(err, cacheErr))
	}
	return doc, nil
}

// LoadByID reads from the primary backend. When the backend errors the
// fallback cache is consulted; a document the backend reports as absent is
// absent. nil, nil means "use the built-in default".
func (g *Gateway) LoadByID(ctx context.Context, id string) (*newsletter.Document, error) {
	doc, err := g.primary.GetNewsletter(ctx, id)
	if err == nil {
		return doc, nil
	}

	g.log.WithError(err).WithField("newsletter_id", id).Warn("primary load failed, checking local fallback")
	if g.fallback == nil {
		return nil, fmt.Errorf("load newsletter %s: %w", id, err)
	}
	cached, cacheErr := g.fallback.Get(ctx, id)
	if cacheErr != nil {
		return nil, fmt.Errorf("load newsletter %s: %w", id, errors.Join(err, cacheErr))
	}
	return cached, nil
}
