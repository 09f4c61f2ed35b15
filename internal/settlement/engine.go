package settlement

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"settlement/internal/domain"
)

// DefaultSelfInsuredKeywords mark a coverage as self-insured when contained in its name.
var DefaultSelfInsuredKeywords = []string{"자차", "자기부담금", "자기부담"}

// Config parameterizes an Engine.
type Config struct {
	Rule             domain.BusinessDayRule
	Rounding         domain.RoundingPolicy
	Basis            domain.PremiumBasis
	StrictCategories bool   // report unmapped categories as row errors
	Zone             string // IANA zone of the trip logs
	Plan             domain.RatePlan
}

// Engine runs the settlement pipeline over one in-memory batch.
// An Engine holds no state between runs and may be reused.
type Engine struct {
	cfg        Config
	normalizer *Normalizer
	filter     *StatusFilter
	calc       *Calculator
	keywords   []string
	logger     *zap.Logger
}

// New creates an Engine. A nil logger discards log output.
func New(cfg Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Rule == "" {
		cfg.Rule = domain.BusinessDayCalendar
	}
	if cfg.Rounding == "" {
		cfg.Rounding = domain.RoundingFloor
	}
	if cfg.Basis == "" {
		cfg.Basis = domain.PremiumBasisUnion
	}

	normalizer, err := NewNormalizer(cfg.Zone)
	if err != nil {
		return nil, err
	}

	keywords := cfg.Plan.SelfInsuredKeywords
	if keywords == nil {
		keywords = DefaultSelfInsuredKeywords
	}

	return &Engine{
		cfg:        cfg,
		normalizer: normalizer,
		filter:     NewStatusFilter(cfg.Plan.Statuses),
		calc:       NewCalculator(cfg.Plan.RateTable(), cfg.Rounding),
		keywords:   keywords,
		logger:     logger,
	}, nil
}

// Run settles records. It fails only on an empty batch; every row-level
// problem is reported in Settlement.Errors and degrades that row alone.
func (e *Engine) Run(records []domain.TripRecord) (*domain.Settlement, error) {
	if len(records) == 0 {
		return nil, ErrEmptyInput
	}

	result := &domain.Settlement{
		Rule:     e.cfg.Rule,
		Rounding: e.cfg.Rounding,
		Basis:    e.cfg.Basis,
		Detail:   make([]domain.DetailRow, len(records)),
	}

	rows := make([]*domain.DetailRow, len(records))
	for i, rec := range records {
		row := &result.Detail[i]
		row.Record = rec
		result.Errors = append(result.Errors, e.annotate(row)...)
		if row.Payable {
			result.PayableCount++
		}
		rows[i] = row
	}

	entities := make(map[string]struct{})
	for _, g := range Aggregate(rows) {
		summary := g.Summary()
		priced := e.calc.Premium(g.MinutesByCategory(e.cfg.Basis))
		summary.Premium = priced.Total
		summary.Breakdown = priced.Breakdown
		if len(priced.Unknown) > 0 && !e.cfg.StrictCategories {
			e.logger.Debug("unmapped coverage priced at zero",
				zap.String("entity_id", g.EntityID),
				zap.String("business_day", g.BusinessDay),
				zap.Strings("categories", priced.Unknown),
			)
		}

		result.Summary = append(result.Summary, summary)
		result.Merged = append(result.Merged, g.MergedIntervals()...)
		result.TotalPremium += summary.Premium
		entities[g.EntityID] = struct{}{}
	}
	result.EntityCount = len(entities)

	return result, nil
}

// annotate fills the derived fields of row and returns its row errors.
func (e *Engine) annotate(row *domain.DetailRow) []domain.RowError {
	var errs []domain.RowError
	rec := row.Record

	row.Payable = e.filter.IsPayable(rec.StatusCode)
	row.StatusLabel = e.filter.Label(rec.StatusCode)
	row.SelfInsured = IsSelfInsured(rec.Coverage, e.keywords)
	rate, known := e.calc.Rate(rec.Coverage)
	row.Rate = rate

	if start, err := e.normalizer.Normalize("start", rec.RawStart); err != nil {
		errs = append(errs, parseRowError(rec, err))
	} else {
		row.Start = &start
		row.CalendarDay = CalendarDay(start)
		row.PlatformDay = PlatformDay(start)
		row.BusinessDay = BusinessDay(start, e.cfg.Rule)
		row.BusinessDayKey = DayKey(row.BusinessDay)
	}
	if end, err := e.normalizer.Normalize("end", rec.RawEnd); err != nil {
		errs = append(errs, parseRowError(rec, err))
	} else {
		row.End = &end
	}

	if row.Start != nil && row.End != nil && row.End.Before(*row.Start) {
		e.logger.Warn("trip ends before it starts",
			zap.Int("row", rec.Row),
			zap.Time("start", *row.Start),
			zap.Time("end", *row.End),
		)
		errs = append(errs, domain.RowError{
			Row:     rec.Row,
			Kind:    domain.RowErrorOrdering,
			Field:   "end",
			Value:   fmt.Sprint(rec.RawEnd),
			Message: "end time is before start time; duration not computed",
		})
	}

	if rec.EntityID == "" {
		errs = append(errs, domain.RowError{
			Row:     rec.Row,
			Kind:    domain.RowErrorMissingEntity,
			Field:   "entity_id",
			Message: "entity id is empty; row excluded from aggregation",
		})
	}

	if !known && row.Payable && e.cfg.StrictCategories {
		e.logger.Warn("unknown coverage category",
			zap.Int("row", rec.Row),
			zap.String("coverage", rec.Coverage),
		)
		errs = append(errs, domain.RowError{
			Row:     rec.Row,
			Kind:    domain.RowErrorUnknownCategory,
			Field:   "coverage",
			Value:   rec.Coverage,
			Message: "coverage category has no configured rate",
		})
	}

	if row.Payable && row.Computable() {
		minutes := CeilMinutes(row.Duration())
		row.DurationMinutes = &minutes
		row.Premium = e.calc.RowPremium(minutes, rec.Coverage)
	}

	return errs
}

func parseRowError(rec domain.TripRecord, err error) domain.RowError {
	re := domain.RowError{Row: rec.Row, Kind: domain.RowErrorParse, Message: err.Error()}
	if pe, ok := err.(*ParseError); ok {
		re.Field = pe.Field
		re.Value = pe.Value
	}
	return re
}

// IsSelfInsured reports whether coverage contains any of keywords.
//
// Matching is by substring, so a category that merely contains a keyword
// inside an unrelated word is also treated as self-insured.
func IsSelfInsured(coverage string, keywords []string) bool {
	coverage = strings.TrimSpace(coverage)
	if coverage == "" {
		return false
	}
	for _, kw := range keywords {
		if kw != "" && strings.Contains(coverage, kw) {
			return true
		}
	}
	return false
}
