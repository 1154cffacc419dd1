// internal/workers/lease/effective-rent/handler_test.go
package effectiverent

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"cre-workers/internal/analysis"
	"cre-workers/internal/common/config"
	"cre-workers/internal/common/errors"
	"cre-workers/internal/common/logger"
	"cre-workers/internal/common/metrics"
	"cre-workers/internal/models"
)

const validDeal = `{
  "deal_name": "Suite 400",
  "property": {"area_sf": 10000},
  "lease_terms": {"term_months": 24},
  "rent_schedule": [
    {"year": 1, "rent": 10.00, "opex": 3.00},
    {"year": 2, "rent": 10.30, "opex": 3.09}
  ],
  "discount_rate": 0.10
}`

// ==========================
// Mock Analyzer
// ==========================

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Run(ctx context.Context, raw []byte) (*analysis.Result, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analysis.Result), args.Error(1)
}

// ==========================
// Mock Job Client
// ==========================

type fakeGateway struct {
	pb.GatewayClient
	completeErr error
	completed   []*pb.CompleteJobRequest
	thrown      []*pb.ThrowErrorRequest
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
		ElementId:          "Activity_EffectiveRent",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          variables,
	}}
}

func newTestHandler(t *testing.T, svc Analyzer) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		CustomConfig: DefaultConfig(),
		Service:      svc,
		Logger:       logger.NewTestLogger(t),
	})
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
			name: "defaults",
			opts: HandlerOptions{Service: &MockAnalyzer{}},
		},
		{
			name:    "missing service",
			opts:    HandlerOptions{},
			wantErr: "analysis service is required",
		},
		{
			name: "invalid timeout",
			opts: HandlerOptions{
				Service:      &MockAnalyzer{},
				CustomConfig: &Config{Enabled: true, MaxJobsActive: 1},
			},
			wantErr: "timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHandler(tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, TaskType, h.GetTaskType())
		})
	}
}

func TestCreateConfigFromAppConfig(t *testing.T) {
	appCfg := &config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: false, MaxJobsActive: 12, Timeout: 4500, MaxRetries: 1},
	}}

	cfg := createConfigFromAppConfig(appCfg, nil)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 12, cfg.MaxJobsActive)
	assert.Equal(t, 4500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, 1, cfg.MaxRetries)

	custom := &Config{Enabled: true, MaxJobsActive: 1, Timeout: time.Second}
	assert.Same(t, custom, createConfigFromAppConfig(appCfg, custom))
	assert.Equal(t, DefaultConfig(), createConfigFromAppConfig(nil, nil))
}

// ==========================
// Input Parsing Tests
// ==========================

func TestParseInput(t *testing.T) {
	h := newTestHandler(t, &MockAnalyzer{})

	tests := []struct {
		name      string
		variables string
		code      errors.ErrorCode
	}{
		{name: "valid", variables: `{"deal":` + validDeal + `}`},
		{name: "not json", variables: `{"deal":`, code: errors.ErrCodeParseError},
		{name: "missing deal", variables: `{"other":1}`, code: errors.ErrCodeInvalidInput},
		{name: "null deal", variables: `{"deal":null}`, code: errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := h.parseInput(createMockJob(1, tt.variables))
			if tt.code == "" {
				require.NoError(t, err)
				assert.JSONEq(t, validDeal, string(input.Deal))
				return
			}
			require.Error(t, err)
			var stdErr *errors.StandardError
			require.True(t, stderrors.As(err, &stdErr))
			assert.Equal(t, tt.code, stdErr.Code)
		})
	}
}

// ==========================
// Execute Tests
// ==========================

func TestExecute_WithMockService(t *testing.T) {
	svc := &MockAnalyzer{}
	doc := &models.AnalysisDocument{AnalysisID: "id-1", DealName: "Suite 400", NER: 10.1429}
	svc.On("Run", mock.Anything, []byte(validDeal)).
		Return(&analysis.Result{Document: doc, Cached: true}, nil)

	h := newTestHandler(t, svc)
	out, err := h.Execute(context.Background(), &Input{Deal: json.RawMessage(validDeal)})
	require.NoError(t, err)

	assert.Same(t, doc, out.Analysis)
	assert.True(t, out.Cached)
	svc.AssertExpectations(t)
}

func TestExecute_PropagatesValidationErrors(t *testing.T) {
	svc := &MockAnalyzer{}
	svc.On("Run", mock.Anything, mock.Anything).
		Return(nil, errors.NewInvalidInputError("deal_name", "deal_name is required"))

	h := newTestHandler(t, svc)
	_, err := h.Execute(context.Background(), &Input{Deal: json.RawMessage(`{}`)})
	require.Error(t, err)

	stdErr := errors.FromCalcError(err)
	assert.Equal(t, errors.ErrCodeInvalidInput, stdErr.Code)
	assert.Equal(t, 0, errors.ConvertToBPMNError(stdErr).Retries)
}

func TestExecute_ZeroDiscountRateReportsInvalidRate(t *testing.T) {
	h := newTestHandler(t, analysis.NewService(analysis.Options{}))
	deal := `{"deal_name":"x","property":{"area_sf":1},"lease_terms":{"term_months":12},"rent_schedule":[{"year":1,"rent":1,"opex":0}],"discount_rate":0}`

	_, err := h.Execute(context.Background(), &Input{Deal: json.RawMessage(deal)})
	require.Error(t, err)

	stdErr := errors.FromCalcError(err)
	assert.Equal(t, errors.ErrCodeInvalidRate, stdErr.Code)
	assert.Equal(t, "discount_rate", stdErr.Field)
	assert.Equal(t, "INVALID_RATE", errors.ConvertToBPMNError(stdErr).Code)
}

func TestExecute_WithAnalysisService(t *testing.T) {
	h := newTestHandler(t, analysis.NewService(analysis.Options{}))

	input, err := h.parseInput(createMockJob(7, `{"deal":`+validDeal+`}`))
	require.NoError(t, err)

	out, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 10.1429, out.Analysis.NER)
	assert.Equal(t, 13.1857, out.Analysis.GER)
	assert.False(t, out.Cached)

	vars, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(vars), `"analysis":{"analysis_id":`)
}

// ==========================
// Job Handling Tests
// ==========================

func TestHandle_CompletesJob(t *testing.T) {
	svc := &MockAnalyzer{}
	svc.On("Run", mock.Anything, mock.Anything).
		Return(&analysis.Result{Document: &models.AnalysisDocument{AnalysisID: "id-2", NER: 10.1429}}, nil)
	gateway := &fakeGateway{}
	completed := testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(TaskType))

	newTestHandler(t, svc).Handle(fakeJobClient{gateway: gateway}, createMockJob(21, `{"deal":`+validDeal+`}`))

	require.Len(t, gateway.completed, 1)
	assert.Equal(t, int64(21), gateway.completed[0].JobKey)
	assert.Contains(t, gateway.completed[0].Variables, `"analysis_id":"id-2"`)
	assert.Equal(t, completed+1, testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(TaskType)))
}

func TestHandle_CompleteSendFailureCountsAsFailed(t *testing.T) {
	svc := &MockAnalyzer{}
	svc.On("Run", mock.Anything, mock.Anything).
		Return(&analysis.Result{Document: &models.AnalysisDocument{AnalysisID: "id-3"}}, nil)
	gateway := &fakeGateway{completeErr: stderrors.New("rpc error: code = NotFound")}
	completed := testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(TaskType))
	failed := testutil.ToFloat64(metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.ErrCodeInternal)))

	newTestHandler(t, svc).Handle(fakeJobClient{gateway: gateway}, createMockJob(22, `{"deal":`+validDeal+`}`))

	require.Len(t, gateway.completed, 1)
	assert.Empty(t, gateway.thrown)
	assert.Equal(t, completed, testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(TaskType)))
	assert.Equal(t, failed+1, testutil.ToFloat64(metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.ErrCodeInternal))))
}
