// Package documents serves document and property lookups through the shared
// cache.
package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/rental-cache/pkg/cache"
	"github.com/Sternrassler/rental-cache/pkg/logging"
)

// Key namespaces owned by this package.
const (
	NamespaceDocument   = "document"
	NamespaceByProperty = "document-list"
	NamespaceProperty   = "property"
)

// Document approval states.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Document is a file attached to a property or tenant.
type Document struct {
	ID         string     `json:"id"`
	PropertyID string     `json:"property_id"`
	Kind       string     `json:"kind"`
	Name       string     `json:"name"`
	URL        string     `json:"url"`
	Status     string     `json:"status"`
	ApprovedBy string     `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

// Property is a rentable property.
type Property struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Title   string `json:"title"`
	Address string `json:"address"`
	Units   int    `json:"units"`
	Active  bool   `json:"active"`
}

// Store is the system of record for documents and properties.
type Store interface {
	Document(ctx context.Context, id string) (Document, error)
	DocumentsByProperty(ctx context.Context, propertyID string) ([]Document, error)
	Property(ctx context.Context, id string) (Property, error)
	ApproveDocument(ctx context.Context, id, approverID string) (Document, error)
	UpdateProperty(ctx context.Context, p Property) error
}

// Service is the cached document and property facade.
type Service struct {
	store  Store
	cache  *cache.Service
	logger zerolog.Logger
}

// New creates a document service.
func New(store Store, c *cache.Service) *Service {
	return &Service{
		store:  store,
		cache:  c,
		logger: logging.NewLogger("documents"),
	}
}

// DocumentKey returns the cache key of a document.
func DocumentKey(id string) string {
	return cache.NewKey(NamespaceDocument, id).String()
}

// ByPropertyKey returns the cache key of a property's document list.
func ByPropertyKey(propertyID string) string {
	return cache.NewKey(NamespaceByProperty, propertyID).String()
}

// ByKindKey returns the cache key of a property's document list filtered
// by kind.
func ByKindKey(propertyID, kind string) string {
	return cache.NewKey(NamespaceByProperty, propertyID, kind).String()
}

// ListScope returns the pattern covering the filtered document lists of a
// property. The unfiltered list key is not matched by it.
func ListScope(propertyID string) cache.Pattern {
	return cache.NewPattern(NamespaceByProperty, propertyID, "*")
}

// PropertyKey returns the cache key of a property.
func PropertyKey(id string) string {
	return cache.NewKey(NamespaceProperty, id).String()
}

// validateIDs rejects identifiers that are not a single key segment.
func validateIDs(ids ...string) error {
	for _, id := range ids {
		if err := cache.ValidatePart(id); err != nil {
			return err
		}
	}
	return nil
}

// Document returns the document with the given id.
func (s *Service) Document(ctx context.Context, id string) (Document, error) {
	if err := validateIDs(id); err != nil {
		return Document{}, err
	}
	return cache.ReadThrough(ctx, s.cache, DocumentKey(id), 0,
		func(ctx context.Context) (Document, error) {
			return s.store.Document(ctx, id)
		})
}

// DocumentsByProperty lists the documents attached to a property.
func (s *Service) DocumentsByProperty(ctx context.Context, propertyID string) ([]Document, error) {
	if err := validateIDs(propertyID); err != nil {
		return nil, err
	}
	return cache.ReadThrough(ctx, s.cache, ByPropertyKey(propertyID), 0,
		func(ctx context.Context) ([]Document, error) {
			return s.store.DocumentsByProperty(ctx, propertyID)
		})
}

// DocumentsByKind lists the documents of the given kind attached to a
// property.
func (s *Service) DocumentsByKind(ctx context.Context, propertyID, kind string) ([]Document, error) {
	if err := validateIDs(propertyID, kind); err != nil {
		return nil, err
	}
	return cache.ReadThrough(ctx, s.cache, ByKindKey(propertyID, kind), 0,
		func(ctx context.Context) ([]Document, error) {
			all, err := s.DocumentsByProperty(ctx, propertyID)
			if err != nil {
				return nil, err
			}

			filtered := make([]Document, 0, len(all))
			for _, doc := range all {
				if doc.Kind == kind {
					filtered = append(filtered, doc)
				}
			}
			return filtered, nil
		})
}

// Property returns the property with the given id.
func (s *Service) Property(ctx context.Context, id string) (Property, error) {
	if err := validateIDs(id); err != nil {
		return Property{}, err
	}
	return cache.ReadThrough(ctx, s.cache, PropertyKey(id), 0,
		func(ctx context.Context) (Property, error) {
			return s.store.Property(ctx, id)
		})
}

// ApproveDocument approves a document and drops the cached document and
// every cached document list of its property.
func (s *Service) ApproveDocument(ctx context.Context, id, approverID string) (Document, error) {
	if err := validateIDs(id); err != nil {
		return Document{}, err
	}

	doc, err := s.store.ApproveDocument(ctx, id, approverID)
	if err != nil {
		return Document{}, fmt.Errorf("approve document %s: %w", id, err)
	}

	var errs []error
	if err := s.cache.Delete(ctx, DocumentKey(id)); err != nil {
		errs = append(errs, err)
	}
	if doc.PropertyID != "" {
		if err := s.invalidateLists(ctx, doc.PropertyID); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.Warn().
			Err(err).
			Str("document_id", id).
			Msg("Document approved but cache invalidation failed")
		return doc, fmt.Errorf("document %s approved, invalidation failed: %w", id, err)
	}

	return doc, nil
}

// UpdateProperty persists p and drops its cached property and document
// list entries.
func (s *Service) UpdateProperty(ctx context.Context, p Property) error {
	if err := validateIDs(p.ID); err != nil {
		return err
	}

	if err := s.store.UpdateProperty(ctx, p); err != nil {
		return fmt.Errorf("update property %s: %w", p.ID, err)
	}

	var errs []error
	if err := s.cache.Delete(ctx, PropertyKey(p.ID)); err != nil {
		errs = append(errs, err)
	}
	if err := s.invalidateLists(ctx, p.ID); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.Warn().
			Err(err).
			Str("property_id", p.ID).
			Msg("Property updated but cache invalidation failed")
		return fmt.Errorf("property %s updated, invalidation failed: %w", p.ID, err)
	}

	return nil
}

// invalidateLists drops every cached document list of a property.
func (s *Service) invalidateLists(ctx context.Context, propertyID string) error {
	if err := s.cache.Delete(ctx, ByPropertyKey(propertyID)); err != nil {
		return err
	}
	_, err := s.cache.InvalidatePattern(ctx, ListScope(propertyID).String())
	return err
}
