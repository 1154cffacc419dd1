// internal/workers/lease/breakeven-rates/handler.go
package breakevenrates

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"cre-workers/internal/common/camunda"
	"cre-workers/internal/common/config"
	"cre-workers/internal/common/errors"
	"cre-workers/internal/common/logger"
	"cre-workers/internal/common/metrics"
	"cre-workers/internal/common/observability"
	"cre-workers/internal/leasecalc"
	"cre-workers/internal/models"
)

const (
	TaskType = "breakeven-rates"
)

type Handler struct {
	config     *Config
	logger     logger.Logger
	errHandler *errors.ErrorHandler
	obs        *observability.Observability
	jobWorker  worker.JobWorker
}

type HandlerOptions struct {
	AppConfig     *config.Config
	CustomConfig  *Config
	Logger        logger.Logger
	Observability *observability.Observability
}

// NewHandler builds the breakeven worker. Logger and Observability may be nil.
func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:     workerConfig,
		logger:     log,
		errHandler: errors.NewErrorHandler(log, workerConfig.MaxRetries),
		obs:        opts.Observability,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	status := "failed"
	defer func() {
		h.obs.RecordJobProcessed(ctx, TaskType, status)
		h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), status)
	}()

	input, err := parseVariables(job.Variables)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	if err := h.completeJob(ctx, client, job, output); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.ErrCodeInternal)).Inc()
		return
	}
	status = "completed"
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	_, span := h.obs.StartSpan(ctx, "lease.breakeven",
		attribute.Float64("area_sf", input.AreaSF),
		attribute.Float64("discount_rate", input.DiscountRate),
	)
	defer span.End()

	params := input.Investment.PerSF(input.AreaSF)
	rates, err := leasecalc.ComputeBreakevenRates(params, input.DiscountRate)
	if err != nil {
		stdErr := errors.FromCalcError(err)
		span.RecordError(stdErr)
		span.SetStatus(codes.Error, string(stdErr.Code))
		return nil, stdErr
	}

	breakeven := make(map[string]float64, 5)
	for name, v := range rates.Map() {
		breakeven[name] = models.Round(v)
	}

	h.logger.Info("breakeven rates calculated", map[string]interface{}{
		"unlevered":       breakeven[leasecalc.ThresholdUnlevered],
		"fullyAmortizing": breakeven[leasecalc.ThresholdFullyAmortizing],
	})

	return &Output{
		Breakeven: breakeven,
		Components: Components{
			DebtPerSF:        models.Round(rates.Debt),
			EquityPerSF:      models.Round(rates.Equity),
			MortgageConstant: models.RoundPlaces(rates.MortgageConstant, 8),
			SinkingFund:      models.Round(rates.SinkingFund),
		},
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return err
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"error": err})
		return err
	}
	return nil
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := errors.FromCalcError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) Register(client zbc.Client) {
	if !h.config.Enabled {
		h.logger.Info("worker is disabled, skipping registration", nil)
		return
	}
	h.jobWorker = camunda.OpenWorker(client, camunda.WorkerSpec{
		TaskType:      TaskType,
		MaxJobsActive: h.config.MaxJobsActive,
		Timeout:       h.config.Timeout,
	}, h, h.logger)
}

func (h *Handler) Close() {
	if h.jobWorker == nil {
		return
	}
	h.jobWorker.Close()
	h.jobWorker.AwaitClose()
	h.jobWorker = nil
}

func (h *Handler) GetTaskType() string {
	return TaskType
}
