package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/aspida-health/aspida-backend/internal/otp"
	"github.com/aspida-health/aspida-backend/pkg/logger"
	"github.com/aspida-health/aspida-backend/pkg/metrics"
	"gorm.io/gorm"
)

const otpCleanupJobName = "otp-cleanup"

// txRunner is the transactional slice of the db client jobs depend on.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OTPCleanupJobParams configure the expired-code sweeper.
type OTPCleanupJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Metrics *metrics.CronJobMetrics
}

type otpCleanupJob struct {
	logg    *logger.Logger
	db      txRunner
	metrics *metrics.CronJobMetrics
	now     func() time.Time
}

// NewOTPCleanupJob builds the job that sweeps expired verification codes.
// Expired codes are rejected at validation time; the sweep only keeps the
// tables from growing without bound.
func NewOTPCleanupJob(params OTPCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	return &otpCleanupJob{
		logg:    params.Logger,
		db:      params.DB,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

func (j *otpCleanupJob) Name() string { return otpCleanupJobName }

func (j *otpCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	var swept int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := otp.NewRepository(tx).DeleteExpired(ctx, cutoff)
		if err != nil {
			return err
		}
		swept = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("otp cleanup: %w", err)
	}
	if j.metrics != nil {
		j.metrics.AddSwept(otpCleanupJobName, swept)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": swept,
	})
	j.logg.Info(logCtx, "otp cleanup complete")
	return nil
}
