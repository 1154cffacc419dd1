// internal/workers/lease/breakeven-rates/handler_test.go
package breakevenrates

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"cre-workers/internal/common/config"
	"cre-workers/internal/common/errors"
	"cre-workers/internal/common/logger"
	"cre-workers/internal/common/metrics"
	"cre-workers/internal/leasecalc"
)

const validVariables = `{
  "area_sf": 10000,
  "discount_rate": 0.10,
  "processNote": "ignored",
  "investment": {
    "acquisition_cost": 2000000,
    "ltv": 0.6,
    "amortization_years": 25,
    "interest_rate": 0.065,
    "dividend_yield": 0.07,
    "building_allocation": 0.7,
    "depreciation_years": 39
  }
}`

// ==========================
// Fake broker
// ==========================

type fakeGateway struct {
	pb.GatewayClient
	completeErr error
	completed   []*pb.CompleteJobRequest
	thrown      []*pb.ThrowErrorRequest
	failed      []*pb.FailJobRequest
}

func (g *fakeGateway) CompleteJob(_ context.Context, req *pb.CompleteJobRequest, _ ...grpc.CallOption) (*pb.CompleteJobResponse, error) {
	g.completed = append(g.completed, req)
	if g.completeErr != nil {
		return nil, g.completeErr
	}
	return &pb.CompleteJobResponse{}, nil
}

func (g *fakeGateway) ThrowError(_ context.Context, req *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	g.thrown = append(g.thrown, req)
	return &pb.ThrowErrorResponse{}, nil
}

func (g *fakeGateway) FailJob(_ context.Context, req *pb.FailJobRequest, _ ...grpc.CallOption) (*pb.FailJobResponse, error) {
	g.failed = append(g.failed, req)
	return &pb.FailJobResponse{}, nil
}

func noRetry(context.Context, error) bool { return false }

type fakeJobClient struct{ gateway *fakeGateway }

func (c fakeJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(c.gateway, noRetry)
}

func (c fakeJobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(c.gateway, noRetry)
}

func (c fakeJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(c.gateway, noRetry)
}

func createMockJob(key int64, variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "lease-approval",
		ElementId:          "Activity_BreakevenRates",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          variables,
	}}
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)
	return h
}

// ==========================
// Handler Creation Tests
// ==========================

func TestNewHandler(t *testing.T) {
	tests := []struct {
		name    string
		opts    HandlerOptions
		wantErr string
	}{
		{
			name: "defaults without logger",
			opts: HandlerOptions{},
		},
		{
			name:    "invalid timeout",
			opts:    HandlerOptions{CustomConfig: &Config{Enabled: true, MaxJobsActive: 1}},
			wantErr: "timeout must be positive",
		},
		{
			name:    "no job slots",
			opts:    HandlerOptions{CustomConfig: &Config{Enabled: true, Timeout: time.Second}},
			wantErr: "max_jobs_active must be positive",
		},
		{
			name: "negative retries",
			opts: HandlerOptions{
				CustomConfig: &Config{Enabled: true, MaxJobsActive: 1, Timeout: time.Second, MaxRetries: -1},
			},
			wantErr: "max_retries must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHandler(tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Contains(t, err.Error(), TaskType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, TaskType, h.GetTaskType())
		})
	}
}

func TestCreateConfigFromAppConfig(t *testing.T) {
	assert.Equal(t, DefaultConfig(), createConfigFromAppConfig(nil, nil))

	appCfg := &config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: false, MaxJobsActive: 2, Timeout: 1500, MaxRetries: 1},
	}}
	cfg := createConfigFromAppConfig(appCfg, nil)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 2, cfg.MaxJobsActive)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 1, cfg.MaxRetries)

	custom := &Config{Enabled: true, MaxJobsActive: 1, Timeout: time.Second}
	assert.Same(t, custom, createConfigFromAppConfig(appCfg, custom))
}

// ==========================
// Execute
// ==========================

func TestExecute_GoldenThresholds(t *testing.T) {
	h := newTestHandler(t)

	input, err := parseVariables(validVariables)
	require.NoError(t, err)

	out, err := h.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{
		leasecalc.ThresholdUnlevered:                          14.0,
		leasecalc.ThresholdInterestOnly:                       13.4,
		leasecalc.ThresholdFullyAmortizing:                    15.4378,
		leasecalc.ThresholdInterestOnlyWithCapitalRecovery:    13.7487,
		leasecalc.ThresholdFullyAmortizingWithCapitalRecovery: 15.7865,
	}, out.Breakeven)
	assert.Equal(t, 120.0, out.Components.DebtPerSF)
	assert.Equal(t, 80.0, out.Components.EquityPerSF)
	assert.Equal(t, 0.3487, out.Components.SinkingFund)
	assert.InDelta(t, 0.0819814811, out.Components.MortgageConstant, 1e-8)
}

func TestExecute_CapitalRecoveryNeverLowers(t *testing.T) {
	h := newTestHandler(t)
	input, err := parseVariables(validVariables)
	require.NoError(t, err)

	out, err := h.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, out.Breakeven[leasecalc.ThresholdInterestOnlyWithCapitalRecovery], out.Breakeven[leasecalc.ThresholdInterestOnly])
	assert.GreaterOrEqual(t, out.Breakeven[leasecalc.ThresholdFullyAmortizingWithCapitalRecovery], out.Breakeven[leasecalc.ThresholdFullyAmortizing])
}

// Degenerate parameters pass the variable schema and are reported by the
// calculator with its own error codes.
func TestExecute_DegenerateParameters(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name      string
		variables string
		code      errors.ErrorCode
		field     string
	}{
		{
			name:      "zero discount rate",
			variables: `{"area_sf":1,"discount_rate":0,"investment":{"acquisition_cost":1,"ltv":0.5,"amortization_years":25,"interest_rate":0.05,"dividend_yield":0.07,"building_allocation":0.7,"depreciation_years":39}}`,
			code:      errors.ErrCodeInvalidRate,
			field:     "discount_rate",
		},
		{
			name:      "zero interest rate",
			variables: `{"area_sf":1,"discount_rate":0.1,"investment":{"acquisition_cost":1,"ltv":0.5,"amortization_years":25,"interest_rate":0,"dividend_yield":0.07,"building_allocation":0.7,"depreciation_years":39}}`,
			code:      errors.ErrCodeInvalidRate,
			field:     "investment.interest_rate",
		},
		{
			name:      "zero depreciation",
			variables: `{"area_sf":1,"discount_rate":0.1,"investment":{"acquisition_cost":1,"ltv":0.5,"amortization_years":25,"interest_rate":0.05,"dividend_yield":0.07,"building_allocation":0.7,"depreciation_years":0}}`,
			code:      errors.ErrCodeInvalidParameter,
			field:     "investment.depreciation_years",
		},
		{
			name:      "zero amortization",
			variables: `{"area_sf":1,"discount_rate":0.1,"investment":{"acquisition_cost":1,"ltv":0.5,"amortization_years":0,"interest_rate":0.05,"dividend_yield":0.07,"building_allocation":0.7,"depreciation_years":39}}`,
			code:      errors.ErrCodeInvalidParameter,
			field:     "investment.amortization_years",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := parseVariables(tt.variables)
			require.NoError(t, err)

			_, err = h.Execute(context.Background(), input)
			require.Error(t, err)

			var stdErr *errors.StandardError
			require.True(t, stderrors.As(err, &stdErr))
			assert.Equal(t, tt.code, stdErr.Code)
			assert.Equal(t, tt.field, stdErr.Field)
			assert.True(t, stdErr.IsValidation())
		})
	}
}

// ==========================
// Variable validation
// ==========================

func TestParseVariables_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		code      errors.ErrorCode
		field     string
	}{
		{
			name:      "not json",
			variables: `{"area_sf":`,
			code:      errors.ErrCodeParseError,
		},
		{
			name:      "zero area",
			variables: `{"area_sf":0,"discount_rate":0.1,"investment":{"acquisition_cost":1,"ltv":0.5,"amortization_years":25,"interest_rate":0.05,"dividend_yield":0.07,"building_allocation":0.7,"depreciation_years":39}}`,
			code:      errors.ErrCodeInvalidInput,
			field:     "area_sf",
		},
		{
			name:      "rate as string",
			variables: `{"area_sf":1,"discount_rate":"10%","investment":{"acquisition_cost":1,"ltv":0.5,"amortization_years":25,"interest_rate":0.05,"dividend_yield":0.07,"building_allocation":0.7,"depreciation_years":39}}`,
			code:      errors.ErrCodeInvalidInput,
			field:     "discount_rate",
		},
		{
			name:      "missing investment",
			variables: `{"area_sf":1,"discount_rate":0.1}`,
			code:      errors.ErrCodeInvalidInput,
			field:     "investment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseVariables(tt.variables)
			require.Error(t, err)

			var stdErr *errors.StandardError
			require.True(t, stderrors.As(err, &stdErr))
			assert.Equal(t, tt.code, stdErr.Code)
			if tt.field != "" {
				assert.Equal(t, tt.field, stdErr.Field)
			}
		})
	}
}

// ==========================
// Job handling
// ==========================

func TestHandle_CompletesJob(t *testing.T) {
	h := newTestHandler(t)
	gateway := &fakeGateway{}
	completed := testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(TaskType))

	h.Handle(fakeJobClient{gateway: gateway}, createMockJob(11, validVariables))

	require.Len(t, gateway.completed, 1)
	assert.Equal(t, int64(11), gateway.completed[0].JobKey)
	assert.Contains(t, gateway.completed[0].Variables, `"fully_amortizing_with_capital_recovery":15.7865`)
	assert.Equal(t, completed+1, testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(TaskType)))
}

func TestHandle_CompleteSendFailureCountsAsFailed(t *testing.T) {
	h := newTestHandler(t)
	gateway := &fakeGateway{completeErr: stderrors.New("rpc error: code = Unavailable")}
	completed := testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(TaskType))
	failed := testutil.ToFloat64(metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.ErrCodeInternal)))

	h.Handle(fakeJobClient{gateway: gateway}, createMockJob(12, validVariables))

	require.Len(t, gateway.completed, 1)
	assert.Equal(t, completed, testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(TaskType)))
	assert.Equal(t, failed+1, testutil.ToFloat64(metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.ErrCodeInternal))))
}

func TestHandle_ValidationFailureThrowsBPMNError(t *testing.T) {
	h := newTestHandler(t)
	gateway := &fakeGateway{}

	h.Handle(fakeJobClient{gateway: gateway}, createMockJob(13, `{"area_sf":1,"discount_rate":0,"investment":{"acquisition_cost":1,"ltv":0.5,"amortization_years":25,"interest_rate":0.05,"dividend_yield":0.07,"building_allocation":0.7,"depreciation_years":39}}`))

	assert.Empty(t, gateway.completed)
	assert.Empty(t, gateway.failed)
	require.Len(t, gateway.thrown, 1)
	assert.Equal(t, "INVALID_RATE", gateway.thrown[0].ErrorCode)
}
