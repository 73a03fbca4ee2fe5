package reports

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/hrforms/internal/shared"
)

// Service builds form reports.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
}

// NewService wires a Repository with a Cache helper. A nil cache disables caching.
func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

func cacheKeyParts(filter Filter) []string {
	order := make([]string, 0, len(filter.Order))
	for _, term := range filter.Order {
		order = append(order, term.Field+"."+string(term.Direction))
	}
	return []string{
		"reports", "form", filter.FormID.String(),
		orDash(filter.UserStatus), orDash(filter.UserFormStatus),
		strconv.Itoa(filter.Page.Limit), strconv.Itoa(filter.Page.Offset),
		orDash(strings.Join(order, ",")),
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// FormReport returns the form header with one page of its user forms.
func (s *Service) FormReport(ctx context.Context, filter Filter) (Report, error) {
	errCtx := shared.Context{"api": "reportFormById", "formId": filter.FormID.String()}
	key, err := s.cache.BuildKey(ctx, cacheKeyParts(filter)...)
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.Any("error", err))
		return s.load(ctx, filter, errCtx)
	}
	report, err := FetchJSON(ctx, s.cache, key, func(ctx context.Context) (Report, error) {
		return s.load(ctx, filter, errCtx)
	})
	var typed *shared.Error
	if err != nil && !errors.As(err, &typed) {
		s.logger.Warn("report cache unavailable", slog.Any("error", err))
		return s.load(ctx, filter, errCtx)
	}
	return report, err
}

// load fetches the header and the page concurrently.
func (s *Service) load(ctx context.Context, filter Filter, errCtx shared.Context) (Report, error) {
	var (
		report Report
		rows   []Row
		total  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		header, err := s.repo.FormHeader(gctx, filter.FormID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NotFound("Form not found", errCtx)
			}
			return err
		}
		report.Form = header
		return nil
	})
	g.Go(func() error {
		var err error
		rows, total, err = s.repo.Rows(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, shared.Database(err, errCtx)
	}
	report.UserForms = shared.NewListResult(rows, filter.Page, total)
	return report, nil
}

// Invalidate retires every cached report.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
