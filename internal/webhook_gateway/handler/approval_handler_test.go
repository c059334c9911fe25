package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vastra-munim/internal/command"
	"github.com/vastra-munim/internal/domain/approval"
	"github.com/vastra-munim/internal/domain/shared"
)

type MockApprovalService struct {
	mock.Mock
}

func (m *MockApprovalService) ListPending(ctx context.Context, limit int) ([]*approval.Request, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*approval.Request), args.Error(1)
}

func (m *MockApprovalService) Approve(ctx context.Context, requestID uuid.UUID, decidedBy string) (*approval.Request, *command.Outcome, error) {
	args := m.Called(ctx, requestID, decidedBy)
	var req *approval.Request
	if args.Get(0) != nil {
		req = args.Get(0).(*approval.Request)
	}
	var outcome *command.Outcome
	if args.Get(1) != nil {
		outcome = args.Get(1).(*command.Outcome)
	}
	return req, outcome, args.Error(2)
}

func (m *MockApprovalService) Reject(ctx context.Context, requestID uuid.UUID, decidedBy string) (*approval.Request, error) {
	args := m.Called(ctx, requestID, decidedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*approval.Request), args.Error(1)
}

func pendingRequest(t *testing.T) *approval.Request {
	t.Helper()
	cmd := &shared.Command{
		CommandID:     uuid.New(),
		Kind:          shared.CommandCreateInvoice,
		Sensitive:     true,
		SensitiveNote: "credit limit cross ho raha hai",
		IssuedBy:      "919876500000",
		IssuedAt:      time.Now(),
		Invoice: &shared.InvoicePayload{
			CustomerID:  uuid.New(),
			AdhocAmount: 1_500_000,
			InvoiceType: shared.InvoiceTypeKacha,
		},
	}
	req, err := approval.NewRequest(cmd, "Naya bill ₹15000 ka", time.Hour)
	require.NoError(t, err)
	return req
}

func decisionBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(ApprovalDecisionRequest{DecidedBy: "919999900000"})
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func TestApprovalHandler_ListPending(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("ReturnsPendingRequests", func(t *testing.T) {
		mockService := new(MockApprovalService)
		handler := NewApprovalHandler(logger, mockService)

		req1 := pendingRequest(t)
		mockService.On("ListPending", mock.Anything, 20).
			Return([]*approval.Request{req1}, nil)

		router := setupTestRouter()
		router.GET("/approvals", handler.ListPending)

		req, _ := http.NewRequest(http.MethodGet, "/approvals", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var topLevelResponse Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &topLevelResponse))
		data, err := json.Marshal(topLevelResponse.Data)
		require.NoError(t, err)

		var responses []ApprovalResponse
		require.NoError(t, json.Unmarshal(data, &responses))
		require.Len(t, responses, 1)
		assert.Equal(t, req1.ID.String(), responses[0].ID)
		assert.Equal(t, "PENDING", responses[0].Status)
		assert.Equal(t, "Naya bill ₹15000 ka", responses[0].Summary)
	})
}

func TestApprovalHandler_Approve(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("ExecutesAndReturnsOutcome", func(t *testing.T) {
		mockService := new(MockApprovalService)
		handler := NewApprovalHandler(logger, mockService)

		req1 := pendingRequest(t)
		decided := *req1
		decided.Status = approval.StatusApproved
		outcome := &command.Outcome{Summary: "Bill ban gaya: KT/20260830/7, ₹15000"}

		mockService.On("Approve", mock.Anything, req1.ID, "919999900000").
			Return(&decided, outcome, nil)

		router := setupTestRouter()
		router.POST("/approvals/:id/approve", handler.Approve)

		req, _ := http.NewRequest(http.MethodPost, "/approvals/"+req1.ID.String()+"/approve", decisionBody(t))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "KT/20260830/7")
		assert.Contains(t, rr.Body.String(), "APPROVED")
		mockService.AssertExpectations(t)
	})

	t.Run("DecidedRequestReturnsConflict", func(t *testing.T) {
		mockService := new(MockApprovalService)
		handler := NewApprovalHandler(logger, mockService)

		requestID := uuid.New()
		mockService.On("Approve", mock.Anything, requestID, "919999900000").
			Return(nil, nil, approval.ErrStateConflict{RequestID: requestID, Status: approval.StatusRejected})

		router := setupTestRouter()
		router.POST("/approvals/:id/approve", handler.Approve)

		req, _ := http.NewRequest(http.MethodPost, "/approvals/"+requestID.String()+"/approve", decisionBody(t))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Contains(t, rr.Body.String(), "REJECTED")
	})

	t.Run("UnknownRequestReturns404", func(t *testing.T) {
		mockService := new(MockApprovalService)
		handler := NewApprovalHandler(logger, mockService)

		requestID := uuid.New()
		mockService.On("Approve", mock.Anything, requestID, "919999900000").
			Return(nil, nil, approval.ErrRequestNotFound{RequestID: requestID})

		router := setupTestRouter()
		router.POST("/approvals/:id/approve", handler.Approve)

		req, _ := http.NewRequest(http.MethodPost, "/approvals/"+requestID.String()+"/approve", decisionBody(t))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("MalformedIDReturns400", func(t *testing.T) {
		mockService := new(MockApprovalService)
		handler := NewApprovalHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/approvals/:id/approve", handler.Approve)

		req, _ := http.NewRequest(http.MethodPost, "/approvals/not-a-uuid/approve", decisionBody(t))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "Approve", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestApprovalHandler_Reject(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("RecordsRejection", func(t *testing.T) {
		mockService := new(MockApprovalService)
		handler := NewApprovalHandler(logger, mockService)

		req1 := pendingRequest(t)
		decided := *req1
		decided.Status = approval.StatusRejected

		mockService.On("Reject", mock.Anything, req1.ID, "919999900000").
			Return(&decided, nil)

		router := setupTestRouter()
		router.POST("/approvals/:id/reject", handler.Reject)

		req, _ := http.NewRequest(http.MethodPost, "/approvals/"+req1.ID.String()+"/reject", decisionBody(t))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "REJECTED")
		mockService.AssertExpectations(t)
	})
}
