package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"

	"settlement/internal/config"
	"settlement/internal/domain"
	internalRedis "settlement/internal/redis"
	"settlement/internal/settlement"
)

// runLockName is the single lock every settlement run contends for.
const runLockName = "batch"

// SettlementService runs settlement batches one at a time.
type SettlementService struct {
	ratePlanService     *RatePlanService
	lockStore           internalRedis.LockStoreInterface
	notificationService *NotificationService
	cfg                 config.SettlementConfig
	logger              *zap.Logger
}

// NewSettlementService creates a new SettlementService. lockStore and
// notificationService may be nil.
func NewSettlementService(
	ratePlanService *RatePlanService,
	lockStore internalRedis.LockStoreInterface,
	notificationService *NotificationService,
	cfg config.SettlementConfig,
	logger *zap.Logger,
) *SettlementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementService{
		ratePlanService:     ratePlanService,
		lockStore:           lockStore,
		notificationService: notificationService,
		cfg:                 cfg,
		logger:              logger,
	}
}

// SettleOptions overrides the configured run options. Empty fields and a nil
// Strict keep the configured value.
type SettleOptions struct {
	Rule     string `json:"rule"`
	Rounding string `json:"rounding"`
	Basis    string `json:"basis"`
	Strict   *bool  `json:"strict"`
}

// SettleRequest contains one input table.
type SettleRequest struct {
	Headers []string
	Rows    [][]any
	Options SettleOptions
}

// Settle validates the table, takes the run lock and runs the engine under
// the current rate plan.
func (s *SettlementService) Settle(ctx context.Context, req SettleRequest) (*domain.Settlement, error) {
	records, err := settlement.RecordsFromTable(req.Headers, req.Rows)
	if err != nil {
		return nil, err
	}

	engineCfg, err := s.engineConfig(req.Options)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	logger := s.logger.With(zap.String("run_id", runID))

	unlock := func() {}
	if s.lockStore != nil {
		ok, err := s.lockStore.AcquireRunLock(ctx, runLockName, runID, s.cfg.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return nil, ErrSettlementInProgress
		}
		unlock = func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := s.lockStore.ReleaseRunLock(releaseCtx, runLockName, runID); err != nil {
				logger.Warn("release run lock failed", zap.Error(err))
			}
		}
	}
	// Once the engine starts, the lock belongs to its goroutine.
	handedOff := false
	defer func() {
		if !handedOff {
			unlock()
		}
	}()

	plan, err := s.ratePlanService.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rate plan: %w", err)
	}
	engineCfg.Plan = *plan

	engine, err := settlement.New(engineCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	started := time.Now()
	handedOff = true
	result, err := s.run(ctx, engine, records, unlock)
	if err != nil {
		if s.notificationService != nil {
			_ = s.notificationService.NotifySettlementFailed(ctx, runID, err)
		}
		return nil, err
	}
	result.RunID = runID
	result.CreatedAt = time.Now().UTC()

	logger.Info("settlement completed",
		zap.Int("records", len(records)),
		zap.Int("payable", result.PayableCount),
		zap.Int("summary_rows", len(result.Summary)),
		zap.Int("row_errors", len(result.Errors)),
		zap.Int64("total_premium", result.TotalPremium),
		zap.Duration("elapsed", time.Since(started)),
	)

	if s.notificationService != nil {
		_ = s.notificationService.NotifySettlementCompleted(ctx, result)
	}

	return result, nil
}

// run executes the engine within the configured wall-clock budget. The engine
// itself is not interruptible; on timeout its result is discarded. finished
// runs when the engine returns, even after a timeout.
func (s *SettlementService) run(ctx context.Context, engine *settlement.Engine, records []domain.TripRecord, finished func()) (*domain.Settlement, error) {
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	segment := newrelic.FromContext(ctx).StartSegment("settlement/engine")
	defer segment.End()

	type outcome struct {
		result *domain.Settlement
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := engine.Run(records)
		finished()
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrRunTimeout
		}
		return nil, ctx.Err()
	}
}

func (s *SettlementService) engineConfig(opts SettleOptions) (settlement.Config, error) {
	cfg := settlement.Config{
		StrictCategories: s.cfg.StrictCategories,
		Zone:             s.cfg.TimeZone,
	}

	var err error
	if cfg.Rule, err = settlement.ParseRule(pick(opts.Rule, s.cfg.BusinessDayRule)); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	if cfg.Rounding, err = settlement.ParseRounding(pick(opts.Rounding, s.cfg.Rounding)); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	if cfg.Basis, err = settlement.ParseBasis(pick(opts.Basis, s.cfg.PremiumBasis)); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	if opts.Strict != nil {
		cfg.StrictCategories = *opts.Strict
	}
	return cfg, nil
}

func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}
