// Package analytics serves payment and occupancy aggregates through the
// shared cache and invalidates them when payments are recorded.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/rental-cache/pkg/cache"
	"github.com/Sternrassler/rental-cache/pkg/logging"
	"github.com/Sternrassler/rental-cache/pkg/warmup"
)

// Key namespaces owned by this package.
const (
	NamespacePaymentsSummary = "analytics:payments-summary"
	NamespaceOccupancy       = "analytics:occupancy"
	NamespaceReport          = "analytics:report"
)

// PeriodLayout is the accepted period format (YYYY-MM).
const PeriodLayout = "2006-01"

// ErrInvalidPeriod is returned for periods not in YYYY-MM form.
var ErrInvalidPeriod = errors.New("invalid period")

// PaymentsSummary aggregates payments for one property and period.
type PaymentsSummary struct {
	PropertyID string `json:"property_id"`
	Period     string `json:"period"`
	Received   int64  `json:"received"`
	Pending    int64  `json:"pending"`
	Count      int    `json:"count"`
}

// Occupancy describes current unit occupancy of a property.
type Occupancy struct {
	PropertyID    string  `json:"property_id"`
	OccupiedUnits int     `json:"occupied_units"`
	TotalUnits    int     `json:"total_units"`
	Rate          float64 `json:"rate"`
}

// ReportQuery filters a payments report. Empty fields are unfiltered.
type ReportQuery struct {
	PropertyID string
	From       string
	To         string
	Status     string
}

// Params returns the query as key parameters.
func (q ReportQuery) Params() map[string]string {
	return map[string]string{
		"property": q.PropertyID,
		"from":     q.From,
		"to":       q.To,
		"status":   q.Status,
	}
}

// ReportRow is one line of a payments report.
type ReportRow struct {
	PropertyID string `json:"property_id"`
	Period     string `json:"period"`
	Received   int64  `json:"received"`
	Pending    int64  `json:"pending"`
}

// Report is the result of a filtered payments report.
type Report struct {
	Rows        []ReportRow `json:"rows"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// Payment is a payment recorded against a property.
type Payment struct {
	ID         string
	PropertyID string
	Period     string
	Amount     int64
	Status     string
	PaidAt     time.Time
}

// Source executes analytics queries against the system of record.
type Source interface {
	PaymentsSummary(ctx context.Context, propertyID, period string) (PaymentsSummary, error)
	Occupancy(ctx context.Context, propertyID string) (Occupancy, error)
	Report(ctx context.Context, q ReportQuery) (Report, error)
	RecordPayment(ctx context.Context, p Payment) error
}

// Service is the cached analytics facade.
type Service struct {
	source Source
	cache  *cache.Service
	logger zerolog.Logger
}

// New creates an analytics service on top of source and the shared cache.
func New(source Source, c *cache.Service) *Service {
	return &Service{
		source: source,
		cache:  c,
		logger: logging.NewLogger("analytics"),
	}
}

// PaymentsSummaryKey returns the cache key for a property's period summary.
func PaymentsSummaryKey(propertyID, period string) string {
	return cache.NewKey(NamespacePaymentsSummary, period, propertyID).String()
}

// OccupancyKey returns the cache key for a property's occupancy.
func OccupancyKey(propertyID string) string {
	return cache.NewKey(NamespaceOccupancy, propertyID).String()
}

// ReportKey returns the cache key for a report query.
func ReportKey(q ReportQuery) string {
	return cache.NewKey(NamespaceReport).WithParams(q.Params()).String()
}

// PropertyScope returns the pattern covering every analytics entry scoped
// to propertyID.
func PropertyScope(propertyID string) cache.Pattern {
	return cache.NewPattern("analytics", "*", propertyID)
}

// ReportScope returns the pattern covering every cached report.
func ReportScope() cache.Pattern {
	return cache.NewPattern(NamespaceReport, "*")
}

// PaymentsSummary returns the payments summary for propertyID and period.
func (s *Service) PaymentsSummary(ctx context.Context, propertyID, period string) (PaymentsSummary, error) {
	if err := ValidatePeriod(period); err != nil {
		return PaymentsSummary{}, err
	}
	if err := cache.ValidatePart(propertyID); err != nil {
		return PaymentsSummary{}, err
	}

	return cache.ReadThrough(ctx, s.cache, PaymentsSummaryKey(propertyID, period), 0,
		func(ctx context.Context) (PaymentsSummary, error) {
			return s.source.PaymentsSummary(ctx, propertyID, period)
		})
}

// Occupancy returns the occupancy of propertyID.
func (s *Service) Occupancy(ctx context.Context, propertyID string) (Occupancy, error) {
	if err := cache.ValidatePart(propertyID); err != nil {
		return Occupancy{}, err
	}
	return cache.ReadThrough(ctx, s.cache, OccupancyKey(propertyID), 0,
		func(ctx context.Context) (Occupancy, error) {
			return s.source.Occupancy(ctx, propertyID)
		})
}

// Report returns the payments report for q.
func (s *Service) Report(ctx context.Context, q ReportQuery) (Report, error) {
	if err := q.Validate(); err != nil {
		return Report{}, err
	}

	return cache.ReadThrough(ctx, s.cache, ReportKey(q), 0,
		func(ctx context.Context) (Report, error) {
			return s.source.Report(ctx, q)
		})
}

// RecordPayment writes p to the source and then invalidates every cached
// aggregate it affects. If invalidation fails the payment stays recorded
// and the error is returned so the caller can decide how to proceed.
func (s *Service) RecordPayment(ctx context.Context, p Payment) error {
	if err := ValidatePeriod(p.Period); err != nil {
		return err
	}
	if err := cache.ValidatePart(p.PropertyID); err != nil {
		return err
	}

	if err := s.source.RecordPayment(ctx, p); err != nil {
		return fmt.Errorf("record payment %s: %w", p.ID, err)
	}

	if err := s.Invalidate(ctx, p.PropertyID); err != nil {
		s.logger.Warn().
			Err(err).
			Str("property_id", p.PropertyID).
			Str("payment_id", p.ID).
			Msg("Payment recorded but analytics invalidation failed")
		return fmt.Errorf("payment %s recorded, invalidation failed: %w", p.ID, err)
	}

	return nil
}

// Invalidate removes every cached aggregate for propertyID and all cached
// reports. Both scopes are attempted even if the first fails. propertyID
// must be a single key segment; a glob would widen the property scope.
func (s *Service) Invalidate(ctx context.Context, propertyID string) error {
	if err := cache.ValidatePart(propertyID); err != nil {
		return err
	}

	var errs []error
	var deleted int64

	for _, scope := range []cache.Pattern{PropertyScope(propertyID), ReportScope()} {
		n, err := s.cache.InvalidatePattern(ctx, scope.String())
		deleted += n
		if err != nil {
			errs = append(errs, err)
		}
	}

	s.logger.Debug().
		Str("property_id", propertyID).
		Int64("deleted", deleted).
		Msg("Invalidated analytics")

	return errors.Join(errs...)
}

// Warm fills the payments summary for period and the occupancy of every
// property in propertyIDs.
func (s *Service) Warm(ctx context.Context, w *warmup.Warmer, period string, propertyIDs []string) (warmup.Report, error) {
	if err := ValidatePeriod(period); err != nil {
		return warmup.Report{}, err
	}

	jobs := make([]warmup.Job, 0, 2*len(propertyIDs))
	for _, pid := range propertyIDs {
		jobs = append(jobs,
			warmup.Job{
				Key: PaymentsSummaryKey(pid, period),
				Fill: func(ctx context.Context) error {
					_, err := s.PaymentsSummary(ctx, pid, period)
					return err
				},
			},
			warmup.Job{
				Key: OccupancyKey(pid),
				Fill: func(ctx context.Context) error {
					_, err := s.Occupancy(ctx, pid)
					return err
				},
			},
		)
	}

	return w.Run(ctx, jobs)
}

// ValidatePeriod checks that period is a YYYY-MM month.
func ValidatePeriod(period string) error {
	if len(period) != len(PeriodLayout) {
		return fmt.Errorf("%w %q: want YYYY-MM", ErrInvalidPeriod, period)
	}
	if _, err := time.Parse(PeriodLayout, period); err != nil {
		return fmt.Errorf("%w %q: want YYYY-MM", ErrInvalidPeriod, period)
	}
	return nil
}

// Validate checks the report filters.
func (q ReportQuery) Validate() error {
	if q.From != "" {
		if err := ValidatePeriod(q.From); err != nil {
			return err
		}
	}
	if q.To != "" {
		if err := ValidatePeriod(q.To); err != nil {
			return err
		}
	}
	// YYYY-MM sorts lexically.
	if q.From != "" && q.To != "" && q.From > q.To {
		return fmt.Errorf("%w: from %s is after to %s", ErrInvalidPeriod, q.From, q.To)
	}
	return nil
}
