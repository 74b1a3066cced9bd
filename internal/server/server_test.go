package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	claimdomain "github.com/smallbiznis/claimflow/internal/claim/domain"
	"github.com/smallbiznis/claimflow/internal/claimlock"
	dashboarddomain "github.com/smallbiznis/claimflow/internal/dashboard/domain"
	historydomain "github.com/smallbiznis/claimflow/internal/history/domain"
	invoicedomain "github.com/smallbiznis/claimflow/internal/invoice/domain"
	stockdomain "github.com/smallbiznis/claimflow/internal/stock/domain"
	"github.com/smallbiznis/claimflow/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeClaimService struct {
	lastCreate     claimdomain.CreateClaimRequest
	lastTransition claimdomain.TransitionRequest
	lastPage       pagination.Pagination
	lastGet        string
	view           claimdomain.ClaimView
	err            error
}

func (f *fakeClaimService) Create(ctx context.Context, req claimdomain.CreateClaimRequest) (claimdomain.ClaimView, error) {
	f.lastCreate = req
	if f.err != nil {
		return claimdomain.ClaimView{}, f.err
	}
	return claimdomain.ClaimView{
		ID:           snowflake.ID(1),
		Reference:    "CLM-20240101000000",
		ClaimantName: req.ClaimantName,
		Status:       claimdomain.StatusDraft,
	}, nil
}

func (f *fakeClaimService) UpdateDraft(ctx context.Context, id string, req claimdomain.UpdateDraftRequest) (claimdomain.ClaimView, error) {
	return claimdomain.ClaimView{}, f.err
}

func (f *fakeClaimService) Get(ctx context.Context, id string) (claimdomain.ClaimView, error) {
	f.lastGet = id
	return f.view, f.err
}

func (f *fakeClaimService) List(ctx context.Context, page pagination.Pagination) (claimdomain.ListClaimsResponse, error) {
	f.lastPage = page
	return claimdomain.ListClaimsResponse{PageInfo: pagination.BuildPageInfo(0, page)}, f.err
}

func (f *fakeClaimService) Transition(ctx context.Context, id string, req claimdomain.TransitionRequest) (claimdomain.ClaimView, error) {
	f.lastTransition = req
	if f.err != nil {
		return claimdomain.ClaimView{}, f.err
	}
	return claimdomain.ClaimView{Status: claimdomain.Status(req.TargetStatus)}, nil
}

func (f *fakeClaimService) History(ctx context.Context, id string) ([]claimdomain.HistoryEntryView, error) {
	return nil, f.err
}

type fakeInvoiceService struct {
	approved string
	invoice  invoicedomain.Invoice
	err      error
}

func (f *fakeInvoiceService) WithTx(tx *gorm.DB) invoicedomain.Service { return f }

func (f *fakeInvoiceService) CreateFromClaim(ctx context.Context, claim claimdomain.Claim) (invoicedomain.Invoice, error) {
	return invoicedomain.Invoice{}, f.err
}

func (f *fakeInvoiceService) Approve(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	f.approved = id
	if f.err != nil {
		return invoicedomain.Invoice{}, f.err
	}
	return invoicedomain.Invoice{Status: invoicedomain.InvoiceStatusApproved, StockApplied: true}, nil
}

func (f *fakeInvoiceService) Remove(ctx context.Context, id snowflake.ID) error { return f.err }

func (f *fakeInvoiceService) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	return f.invoice, f.err
}

func (f *fakeInvoiceService) List(ctx context.Context, page pagination.Pagination) (invoicedomain.ListInvoiceResponse, error) {
	return invoicedomain.ListInvoiceResponse{}, f.err
}

type fakeStockService struct{}

func (f *fakeStockService) WithTx(tx *gorm.DB) stockdomain.Service                   { return f }
func (f *fakeStockService) Apply(ctx context.Context, lines []stockdomain.Line) error  { return nil }
func (f *fakeStockService) Revert(ctx context.Context, lines []stockdomain.Line) error { return nil }
func (f *fakeStockService) List(ctx context.Context) ([]stockdomain.StockEntry, error) {
	return []stockdomain.StockEntry{{ItemName: "Pen", Quantity: 10}}, nil
}

type fakeDashboardService struct{}

func (f *fakeDashboardService) Metrics(ctx context.Context) (dashboarddomain.Metrics, error) {
	return dashboarddomain.Metrics{TotalClaims: 3, TotalClaimValue: decimal.NewFromInt(70)}, nil
}

type testServer struct {
	router  *gin.Engine
	claims  *fakeClaimService
	invoice *fakeInvoiceService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	claims := &fakeClaimService{}
	invoices := &fakeInvoiceService{}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	NewServer(ServerParams{
		Gin:          router,
		ClaimSvc:     claims,
		InvoiceSvc:   invoices,
		StockSvc:     &fakeStockService{},
		DashboardSvc: &fakeDashboardService{},
	})

	return &testServer{router: router, claims: claims, invoice: invoices}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.router.ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Error
}

func TestCreateClaimTrimsInput(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(http.MethodPost, "/api/claims", `{"claimant_name":"  Alice ","description":"Trip","items":[{"item_name":" Pen ","quantity":2,"unit_price":"5.00"}]}`)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "Alice", srv.claims.lastCreate.ClaimantName)
	require.Len(t, srv.claims.lastCreate.Items, 1)
	assert.Equal(t, "Pen", srv.claims.lastCreate.Items[0].ItemName)
	assert.True(t, decimal.RequireFromString("5").Equal(srv.claims.lastCreate.Items[0].UnitPrice))
}

func TestCreateClaimRejectsMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(http.MethodPost, "/api/claims", `{"claimant_name":`)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	payload := decodeError(t, resp)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_request", payload.Errors[0].Code)
}

func TestListClaimsBindsPaging(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(http.MethodGet, "/api/claims?page=2&size=5", "")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, pagination.Pagination{Page: 2, Size: 5}, srv.claims.lastPage)
}

func TestTransitionErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		errType string
		code    string
		message string
	}{
		{
			name:    "invalid transition",
			err:     fmt.Errorf("%w: cannot move claim from DRAFT to APPROVED", claimdomain.ErrInvalidTransition),
			status:  http.StatusBadRequest,
			errType: "validation_error",
			code:    "invalid_transition",
			message: "cannot move claim from DRAFT to APPROVED",
		},
		{
			name:    "missing comment",
			err:     claimdomain.ErrInvalidComment,
			status:  http.StatusBadRequest,
			errType: "validation_error",
			code:    "invalid_comment",
			message: "invalid value",
		},
		{
			name:    "not found",
			err:     claimdomain.ErrNotFound,
			status:  http.StatusNotFound,
			errType: "not_found",
		},
		{
			name:    "lock busy",
			err:     claimlock.ErrLockBusy,
			status:  http.StatusConflict,
			errType: "conflict",
		},
		{
			name:    "corrupt snapshot",
			err:     fmt.Errorf("restore DRAFT snapshot 1: %w", historydomain.ErrSnapshotDecode),
			status:  http.StatusInternalServerError,
			errType: "internal_error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t)
			srv.claims.err = tc.err

			resp := srv.do(http.MethodPost, "/api/claims/1/transition", `{"target_status":"APPROVED","comment":"go"}`)

			require.Equal(t, tc.status, resp.Code)
			payload := decodeError(t, resp)
			assert.Equal(t, tc.errType, payload.Type)
			if tc.code != "" {
				require.Len(t, payload.Errors, 1)
				assert.Equal(t, tc.code, payload.Errors[0].Code)
				assert.Equal(t, tc.message, payload.Errors[0].Message)
			}
		})
	}
}

func TestTransitionPassesRequest(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(http.MethodPost, "/api/claims/1/transition", `{"target_status":" submitted ","comment":"ready"}`)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "submitted", srv.claims.lastTransition.TargetStatus)
	assert.Equal(t, "ready", srv.claims.lastTransition.Comment)
}

func TestApproveInvoice(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(http.MethodPost, "/api/invoices/42/approve", "")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "42", srv.invoice.approved)

	srv.invoice.err = invoicedomain.ErrInvalidID
	resp = srv.do(http.MethodPost, "/api/invoices/abc/approve", "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_id", decodeError(t, resp).Errors[0].Code)
}

func TestInvoiceDocument(t *testing.T) {
	srv := newTestServer(t)
	srv.invoice.invoice = invoicedomain.Invoice{
		ID:            snowflake.ID(42),
		InvoiceNumber: "INV-20240601120000",
		ClaimID:       snowflake.ID(7),
		Status:        invoicedomain.InvoiceStatusApproved,
		Subtotal:      decimal.RequireFromString("20"),
		Tax:           decimal.RequireFromString("2"),
		Total:         decimal.RequireFromString("22"),
		CreatedAt:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Items: []invoicedomain.InvoiceItem{
			{ItemName: "Pen", Quantity: 10, UnitPrice: decimal.RequireFromString("1"), LineTotal: decimal.RequireFromString("10")},
		},
	}
	srv.claims.view = claimdomain.ClaimView{ClaimantName: "Alice", Reference: "CLM-20240601115900"}

	resp := srv.do(http.MethodGet, "/api/invoices/42/pdf-data", "")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "7", srv.claims.lastGet)

	var body struct {
		Data invoicedomain.Document `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "INV-20240601120000", body.Data.InvoiceNumber)
	assert.Equal(t, "2024-06-01", body.Data.InvoiceDate)
	assert.Equal(t, "Alice", body.Data.ClaimantName)
	assert.Equal(t, "CLM-20240601115900", body.Data.ClaimReference)
	assert.True(t, body.Data.ManagerApproved)
	require.Len(t, body.Data.Items, 1)
	assert.Equal(t, "Pen", body.Data.Items[0].ItemName)
	assert.True(t, decimal.RequireFromString("22").Equal(body.Data.Total))
}

func TestInvoiceDocumentWithoutClaim(t *testing.T) {
	srv := newTestServer(t)
	srv.invoice.invoice = invoicedomain.Invoice{InvoiceNumber: "INV-1", ClaimID: snowflake.ID(7)}
	srv.claims.err = claimdomain.ErrNotFound

	resp := srv.do(http.MethodGet, "/api/invoices/42/pdf-data", "")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"claimant_name":""`)
	assert.Contains(t, resp.Body.String(), `"manager_approved":false`)
}

func TestInvoiceDocumentNotFound(t *testing.T) {
	srv := newTestServer(t)
	srv.invoice.err = invoicedomain.ErrNotFound

	resp := srv.do(http.MethodGet, "/api/invoices/42/pdf-data", "")

	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "not_found", decodeError(t, resp).Type)
}

func TestStockAndDashboard(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(http.MethodGet, "/api/stock", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"item_name":"Pen"`)

	resp = srv.do(http.MethodGet, "/api/dashboard/metrics", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"total_claims":3`)
}

func TestMapErrorDefaultsToInternal(t *testing.T) {
	status, payload := mapError(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", payload.Type)

	status, _ = mapError(gorm.ErrRecordNotFound)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestClassifyErrorForLog(t *testing.T) {
	errType, code := classifyErrorForLog(claimdomain.ErrInvalidState)
	assert.Equal(t, "validation_error", errType)
	assert.Equal(t, "invalid_state", code)

	errType, code = classifyErrorForLog(claimlock.ErrLockBusy)
	assert.Equal(t, "conflict", errType)
	assert.Equal(t, "conflict", code)
}
