package reportinghttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bookreports/internal/accounting/reports"
	"github.com/odyssey-erp/bookreports/internal/ledger"
	"github.com/odyssey-erp/bookreports/internal/platform/httpx"
	"github.com/odyssey-erp/bookreports/internal/reconcile"
	"github.com/odyssey-erp/bookreports/internal/reporting"
	"github.com/odyssey-erp/bookreports/internal/stock"
	_ "github.com/odyssey-erp/bookreports/testing"
)

type stubService struct {
	mu          sync.Mutex
	lastQuery   reporting.PeriodQuery
	lastFY      int
	err         error
	async       bool
	started     chan struct{}
	invalidated []int64
}

func (s *stubService) record(q reporting.PeriodQuery) {
	s.mu.Lock()
	s.lastQuery = q
	s.mu.Unlock()
}

func (s *stubService) Calendar() stock.FiscalCalendar {
	return stock.NewFiscalCalendar(time.April)
}

func (s *stubService) TrialBalance(ctx context.Context, q reporting.PeriodQuery) (reports.TrialBalanceViewModel, error) {
	s.record(q)
	if s.started != nil {
		s.started <- struct{}{}
		<-ctx.Done()
		return reports.TrialBalanceViewModel{}, ctx.Err()
	}
	return reports.TrialBalanceViewModel{Header: reports.Header{CompanyID: q.CompanyID}}, s.err
}

func (s *stubService) BalanceSheet(_ context.Context, q reporting.PeriodQuery) (reports.BalanceSheetViewModel, error) {
	s.record(q)
	return reports.BalanceSheetViewModel{Header: reports.Header{CompanyID: q.CompanyID, FilterView: string(q.View)}}, s.err
}

func (s *stubService) ProfitAndLoss(_ context.Context, q reporting.PeriodQuery) (reports.ProfitAndLossViewModel, error) {
	s.record(q)
	return reports.ProfitAndLossViewModel{Report: reports.ProfitAndLoss{NetProfit: 600}}, s.err
}

func (s *stubService) GSTRegister(_ context.Context, q reporting.PeriodQuery) (reports.GSTRegisterViewModel, error) {
	s.record(q)
	return reports.GSTRegisterViewModel{}, s.err
}

func (s *stubService) StockSummary(_ context.Context, companyID int64, fy int) (reports.StockSummaryViewModel, error) {
	s.lastFY = fy
	return reports.StockSummaryViewModel{Header: reports.Header{CompanyID: companyID}}, s.err
}

func (s *stubService) GroupTotal(_ context.Context, q reporting.PeriodQuery, groupID int64) (reporting.GroupTotalResult, error) {
	s.record(q)
	if groupID == 404 {
		return reporting.GroupTotalResult{}, fmt.Errorf("group 404: %w", httpx.ErrNotFound)
	}
	return reporting.GroupTotalResult{GroupID: groupID, Total: 1600}, s.err
}

func (s *stubService) ParseUpload(name string, data []byte) (reconcile.Sheet, error) {
	sheet, err := reconcile.ReadFile(name, bytes.NewReader(data))
	if err != nil {
		return reconcile.Sheet{}, fmt.Errorf("%w: %w", httpx.ErrValidation, err)
	}
	return sheet, nil
}

func (s *stubService) NeedsAsync(reconcile.Sheet) bool {
	return s.async
}

func (s *stubService) Submit(_ context.Context, q reporting.PeriodQuery, fileName string, data []byte, rows int) (reporting.Accepted, error) {
	return reporting.Accepted{RunID: "queued", Rows: rows}, nil
}

func (s *stubService) ReconcileGST(_ context.Context, q reporting.PeriodQuery, fileName string, sheet reconcile.Sheet) (reporting.ReconcileOutcome, error) {
	s.record(q)
	mapping, _ := reconcile.DetectColumns(sheet.Headers, reconcile.DefaultRules)
	result := reconcile.Reconcile(nil, sheet.Records, reconcile.KeyPair{
		Internal: mapping.Key(),
		External: mapping.Key(),
	}, nil)
	return reporting.ReconcileOutcome{RunID: "run-1", FileName: fileName, Mapping: mapping, Result: result}, s.err
}

func (s *stubService) Invalidate(_ context.Context, companyID int64) error {
	s.invalidated = append(s.invalidated, companyID)
	return nil
}

func newTestRouter(svc *stubService) (*Handler, http.Handler) {
	h := NewHandler(nil, svc, Options{RequestTimeout: time.Second, UploadsPerMinute: 100})
	h.now = func() time.Time { return time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	h.MountRoutes(r)
	return h, r
}

func doGet(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestTrialBalanceDefaultsToFiscalYear(t *testing.T) {
	svc := &stubService{}
	_, router := newTestRouter(svc)

	rr := doGet(t, router, "/reports/trial-balance?company_id=3")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, int64(3), svc.lastQuery.CompanyID)
	require.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), svc.lastQuery.From)
	require.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), svc.lastQuery.To)
	require.Equal(t, ledger.ViewDetailed, svc.lastQuery.View)
}

func TestQueryValidation(t *testing.T) {
	_, router := newTestRouter(&stubService{})
	cases := map[string]string{
		"/reports/trial-balance":                                          "company_id",
		"/reports/balance-sheet?company_id=1&view=tree":                   "view",
		"/reports/profit-loss?company_id=1&from=2024-13-01":               "from",
		"/reports/profit-loss?company_id=1&from=2024-05-01&to=2024-04-01": "from",
		"/stock/summary?company_id=1&fiscal_year=24":                      "fiscal_year",
		"/groups/abc/total?company_id=1":                                  "id",
	}
	for target, field := range cases {
		rr := doGet(t, router, target)
		require.Equal(t, http.StatusBadRequest, rr.Code, target)
		var problem httpx.ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
		require.Contains(t, problem.Fields, field, target)
	}
}

func TestBalanceSheetSummaryView(t *testing.T) {
	svc := &stubService{}
	_, router := newTestRouter(svc)
	rr := doGet(t, router, "/reports/balance-sheet?company_id=1&to=2025-03-31&view=summary")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, ledger.ViewSummary, svc.lastQuery.View)
	require.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), svc.lastQuery.From)

	var vm reports.BalanceSheetViewModel
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &vm))
	require.Equal(t, "summary", vm.FilterView)
}

func TestMalformedHierarchyIsUnprocessable(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("%w: %w", httpx.ErrUnprocessable, ledger.ErrMalformedHierarchy)}
	_, router := newTestRouter(svc)
	rr := doGet(t, router, "/reports/profit-loss?company_id=1")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}

func TestGroupTotalRoutes(t *testing.T) {
	_, router := newTestRouter(&stubService{})

	rr := doGet(t, router, "/groups/-5/total?company_id=1")
	require.Equal(t, http.StatusOK, rr.Code)
	var res reporting.GroupTotalResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.Equal(t, int64(-5), res.GroupID)

	rr = doGet(t, router, "/groups/404/total?company_id=1")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStockSummaryFiscalYear(t *testing.T) {
	svc := &stubService{}
	_, router := newTestRouter(svc)

	require.Equal(t, http.StatusOK, doGet(t, router, "/stock/summary?company_id=1").Code)
	require.Equal(t, 2024, svc.lastFY)

	require.Equal(t, http.StatusOK, doGet(t, router, "/stock/summary?company_id=1&fiscal_year=2022").Code)
	require.Equal(t, 2022, svc.lastFY)
}

func multipartUpload(t *testing.T, target, name string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if name != "" {
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

const registerCSV = "Invoice No,Invoice Date,Invoice Value\nINV-1,15/04/2024,1180\nINV-2,15/04/2024,590\n"

func TestReconcileUpload(t *testing.T) {
	_, router := newTestRouter(&stubService{})
	req := multipartUpload(t, "/reconcile/gst?company_id=1", "register.csv", []byte(registerCSV))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var out reporting.ReconcileOutcome
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Equal(t, "run-1", out.RunID)
	require.Equal(t, 2, out.Result.Stats.MissingInInternal)
	require.Equal(t, "Invoice No", out.Mapping.Columns[reconcile.FieldVoucherNo])
}

func TestReconcileUploadCSVExport(t *testing.T) {
	_, router := newTestRouter(&stubService{})
	req := multipartUpload(t, "/reconcile/gst?company_id=1&format=csv", "register.csv", []byte(registerCSV))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\r\n")
	require.Len(t, lines, 5)
	require.True(t, strings.HasPrefix(lines[0], "# run_id=run-1"))
	require.Equal(t, "status,key,reason,internal_ref,external_ref", lines[2])
	require.Equal(t, "MISSING_IN_INTERNAL,INV-1,,,INV-1", lines[3])
}

func TestReconcileUploadQueuedWhenLarge(t *testing.T) {
	_, router := newTestRouter(&stubService{async: true})
	req := multipartUpload(t, "/reconcile/gst?company_id=1", "register.csv", []byte(registerCSV))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Contains(t, rr.Body.String(), `"run_id":"queued"`)
}

func TestReconcileUploadErrors(t *testing.T) {
	_, router := newTestRouter(&stubService{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, multipartUpload(t, "/reconcile/gst?company_id=1", "", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), `"file"`)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, multipartUpload(t, "/reconcile/gst?company_id=1", "register.pdf", []byte("x")))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReconcileUploadTooLarge(t *testing.T) {
	svc := &stubService{}
	h := NewHandler(nil, svc, Options{MaxUploadBytes: 64, UploadsPerMinute: 100})
	r := chi.NewRouter()
	h.MountRoutes(r)

	big := bytes.Repeat([]byte("INV-9,15/04/2024,1\n"), 100)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, multipartUpload(t, "/reconcile/gst?company_id=1", "register.csv", big))
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestNewerRequestSupersedesOlder(t *testing.T) {
	svc := &stubService{started: make(chan struct{}, 2)}
	_, router := newTestRouter(svc)

	first := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		req := httptest.NewRequest(http.MethodGet, "/reports/trial-balance?company_id=1", nil)
		req.Header.Set("X-Client-ID", "tab-1")
		router.ServeHTTP(first, req)
	}()
	<-svc.started

	second := httptest.NewRecorder()
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/reports/trial-balance?company_id=1", nil)
		req.Header.Set("X-Client-ID", "tab-1")
		router.ServeHTTP(second, req)
	}()
	<-done
	require.Equal(t, http.StatusConflict, first.Code)
	<-svc.started
}

func TestInvalidateCompany(t *testing.T) {
	svc := &stubService{}
	_, router := newTestRouter(svc)
	req := httptest.NewRequest(http.MethodPost, "/companies/7/invalidate", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, []int64{7}, svc.invalidated)
}
