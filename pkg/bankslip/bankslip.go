// Package bankslip caches generated bank slips per payment order.
//
// A slip is only valid until its order's due date, so cached slips never
// outlive it: the cache TTL is the namespace policy capped at the time left
// until the due date, and slips for past-due orders are not cached at all.
package bankslip

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/rental-cache/pkg/cache"
	"github.com/Sternrassler/rental-cache/pkg/logging"
)

// Namespace is the key namespace for cached slips.
const Namespace = "bank-slip:payment-order"

// PaymentOrder is a payment order owned by the system of record.
type PaymentOrder struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	PropertyID string    `json:"property_id"`
	Amount     int64     `json:"amount"`
	DueDate    time.Time `json:"due_date"`
	Status     string    `json:"status"`
}

// Slip is the result of generating a bank slip for an order.
type Slip struct {
	OrderID       string    `json:"order_id"`
	Barcode       string    `json:"barcode"`
	DigitableLine string    `json:"digitable_line"`
	DocumentURL   string    `json:"document_url"`
	Amount        int64     `json:"amount"`
	DueDate       time.Time `json:"due_date"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// Generator renders a bank slip for a payment order.
type Generator interface {
	Generate(ctx context.Context, order PaymentOrder) (Slip, error)
}

// OrderStore persists payment orders.
type OrderStore interface {
	PaymentOrder(ctx context.Context, id string) (PaymentOrder, error)
	UpdatePaymentOrder(ctx context.Context, order PaymentOrder) error
}

// Service generates slips and caches the results.
type Service struct {
	orders    OrderStore
	generator Generator
	cache     *cache.Service
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a bank-slip service.
func New(orders OrderStore, generator Generator, c *cache.Service) *Service {
	return &Service{
		orders:    orders,
		generator: generator,
		cache:     c,
		logger:    logging.NewLogger("bankslip"),
		now:       time.Now,
	}
}

// Key returns the cache key of the slip for orderID.
func Key(orderID string) string {
	return cache.NewKey(Namespace, orderID).String()
}

// Slip returns the bank slip for orderID, generating it on a cache miss.
func (s *Service) Slip(ctx context.Context, orderID string) (Slip, error) {
	if err := cache.ValidatePart(orderID); err != nil {
		return Slip{}, err
	}
	key := Key(orderID)

	slip, found, err := cache.Lookup[Slip](ctx, s.cache, key)
	degraded := false
	switch {
	case err == nil && found:
		return slip, nil
	case err == nil:
	case cache.IsSerialization(err):
		// The corrupt entry has been deleted; regenerate.
	case cache.IsBackendUnavailable(err):
		degraded = true
		s.logger.Warn().
			Err(err).
			Str("order_id", orderID).
			Msg("Cache unavailable, generating slip without caching")
	default:
		return Slip{}, err
	}

	order, err := s.orders.PaymentOrder(ctx, orderID)
	if err != nil {
		return Slip{}, fmt.Errorf("load payment order %s: %w", orderID, err)
	}

	slip, err = s.generator.Generate(ctx, order)
	if err != nil {
		return Slip{}, fmt.Errorf("generate bank slip for %s: %w", orderID, err)
	}

	if degraded {
		return slip, nil
	}

	ttl, err := s.slipTTL(key, order.DueDate)
	if err != nil {
		return Slip{}, err
	}
	if ttl <= 0 {
		s.logger.Debug().
			Str("order_id", orderID).
			Time("due_date", order.DueDate).
			Msg("Order past due, slip not cached")
		return slip, nil
	}

	if err := s.cache.Set(ctx, key, slip, ttl); err != nil {
		s.logger.Warn().
			Err(err).
			Str("order_id", orderID).
			Msg("Failed to cache bank slip")
	}

	return slip, nil
}

// UpdatePaymentOrder persists order and drops its cached slip. If the
// cache delete fails the update stays persisted and the error is returned.
func (s *Service) UpdatePaymentOrder(ctx context.Context, order PaymentOrder) error {
	if err := cache.ValidatePart(order.ID); err != nil {
		return err
	}
	key := Key(order.ID)

	if err := s.orders.UpdatePaymentOrder(ctx, order); err != nil {
		return fmt.Errorf("update payment order %s: %w", order.ID, err)
	}

	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn().
			Err(err).
			Str("order_id", order.ID).
			Msg("Payment order updated but slip invalidation failed")
		return fmt.Errorf("payment order %s updated, invalidation failed: %w", order.ID, err)
	}

	return nil
}

// slipTTL is the namespace TTL capped at the time left until dueDate.
// A zero due date means the order does not expire.
func (s *Service) slipTTL(key string, dueDate time.Time) (time.Duration, error) {
	ttl, err := s.cache.ResolveTTL(key, 0)
	if err != nil {
		return 0, err
	}
	if dueDate.IsZero() {
		return ttl, nil
	}

	remaining := dueDate.Sub(s.now())
	if remaining < ttl {
		return remaining, nil
	}
	return ttl, nil
}
