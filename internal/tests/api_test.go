package tests

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settlement/internal/app"
	"settlement/internal/handler"
	"settlement/internal/settlement"
)

func newTestRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := newFixture(t)
	router := app.NewRouter(app.RouterDeps{
		SettlementHandler: handler.NewSettlementHandler(f.svc, settlement.DefaultOutputSchema(), 1<<20),
		RatePlanHandler:   handler.NewRatePlanHandler(f.plans),
	})
	return router, f
}

func request(router http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func settleBody(t *testing.T, rows [][]any, options map[string]any) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{"columns": headers, "rows": rows, "options": options})
	require.NoError(t, err)
	return string(body)
}

func TestAPI_SettleJSON(t *testing.T) {
	router, _ := newTestRouter(t)

	w := request(router, http.MethodPost, "/v1/settlements", "application/json", settleBody(t, overlapRows(), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp handler.SettlementResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, int64(147), resp.TotalPremium)
	assert.Equal(t, "union", resp.Basis)
	require.Len(t, resp.Detail, 2)
	assert.Equal(t, "2025-11-01 09:15:00", resp.Detail[1].Start)
	assert.True(t, resp.Detail[1].OverlapsPrevious)
	assert.Equal(t, "정상", resp.Detail[0].StatusLabel)
	require.Len(t, resp.Summary, 1)
	assert.Equal(t, int64(15), resp.Summary[0].OverlapMinutes)
	require.Len(t, resp.Merged, 1)
	assert.Equal(t, "2025-11-01 09:45:00", resp.Merged[0].End)
	assert.Empty(t, resp.Errors)
}

func TestAPI_LargeNumericEntityIDsStayDistinct(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{"columns":["기사이이디","시작시간","종료시간","담보","보험사 정산 상태 정보"],"rows":[
		[9007199254740993,"2025-11-01 09:00:00","2025-11-01 09:30:00","대인1지원","00"],
		[9007199254740992,"2025-11-01 09:15:00","2025-11-01 09:45:00","대인1지원","00"]
	]}`

	w := request(router, http.MethodPost, "/v1/settlements", "application/json", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp handler.SettlementResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Summary, 2)
	assert.Equal(t, "9007199254740992", resp.Summary[0].EntityID)
	assert.Equal(t, "9007199254740993", resp.Summary[1].EntityID)
	for _, s := range resp.Summary {
		assert.Equal(t, 1, s.RecordCount)
		assert.Zero(t, s.OverlapMinutes)
	}
	assert.Equal(t, 2, resp.EntityCount)
}

func TestAPI_SerialTimestampsAsJSONNumbers(t *testing.T) {
	router, _ := newTestRouter(t)

	// 45962.375 is 2025-11-01 09:00, 45962.395833333336 is 09:30.
	body := `{"columns":["기사이이디","시작시간","종료시간","담보","보험사 정산 상태 정보"],"rows":[
		["D1",45962.375,45962.395833333336,"대인1지원","00"]
	]}`

	w := request(router, http.MethodPost, "/v1/settlements", "application/json", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp handler.SettlementResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Detail, 1)
	assert.Equal(t, "2025-11-01 09:00:00", resp.Detail[0].Start)
	assert.Equal(t, "2025-11-01 09:30:00", resp.Detail[0].End)
	assert.Empty(t, resp.Errors)
}

func TestAPI_SettleCSVBodyWithQueryOptions(t *testing.T) {
	router, _ := newTestRouter(t)

	body := "\ufeff" + strings.Join(headers, ",") + "\n" +
		"D1,2025-11-01 09:00:00,2025-11-01 09:30:00,대인1지원,00\n" +
		"D1,2025-11-01 09:15:00,2025-11-01 09:45:00,대인1지원,00\n"

	w := request(router, http.MethodPost, "/v1/settlements?basis=raw", "text/csv", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp handler.SettlementResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "raw", resp.Basis)
	assert.Equal(t, int64(196), resp.TotalPremium)
}

func TestAPI_SettleCSVOutput(t *testing.T) {
	router, _ := newTestRouter(t)

	w := request(router, http.MethodPost, "/v1/settlements?format=csv&table=merged", "application/json", settleBody(t, overlapRows(), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "settlement_merged_")

	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(w.Body.Bytes(), []byte("\ufeff")))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "D1", records[1][0])
}

func TestAPI_SettleTextReport(t *testing.T) {
	router, _ := newTestRouter(t)

	w := request(router, http.MethodPost, "/v1/settlements?format=text", "application/json", settleBody(t, overlapRows(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "147 KRW")
}

func TestAPI_SettleErrors(t *testing.T) {
	router, f := newTestRouter(t)

	testCases := []struct {
		name        string
		path        string
		contentType string
		body        string
		want        int
	}{
		{"malformed json", "/v1/settlements", "application/json", "{", http.StatusBadRequest},
		{"missing columns", "/v1/settlements", "application/json", `{"columns":["기사이이디"],"rows":[["D1"]]}`, http.StatusBadRequest},
		{"empty rows", "/v1/settlements", "application/json", settleBody(t, nil, nil), http.StatusBadRequest},
		{"bad rule option", "/v1/settlements", "application/json", settleBody(t, overlapRows(), map[string]any{"rule": "weekly"}), http.StatusBadRequest},
		{"bad strict query", "/v1/settlements?strict=maybe", "application/json", settleBody(t, overlapRows(), nil), http.StatusBadRequest},
		{"bad format", "/v1/settlements?format=xlsx", "application/json", settleBody(t, overlapRows(), nil), http.StatusBadRequest},
		{"bad table", "/v1/settlements?format=csv&table=all", "application/json", settleBody(t, overlapRows(), nil), http.StatusBadRequest},
		{"empty csv", "/v1/settlements", "text/csv", "", http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := request(router, http.MethodPost, tc.path, tc.contentType, tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}

	assert.Equal(t, int32(0), f.locks.AcquireCallCount)
}

func TestAPI_MissingColumnsListed(t *testing.T) {
	router, _ := newTestRouter(t)

	w := request(router, http.MethodPost, "/v1/settlements", "application/json", `{"columns":["driver_id","start_time"],"rows":[["D1","x"]]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp handler.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"end", "coverage", "status_code"}, resp.Missing)
}

func TestAPI_SettleConflict(t *testing.T) {
	router, f := newTestRouter(t)
	f.locks.Hold("batch", time.Minute)

	w := request(router, http.MethodPost, "/v1/settlements", "application/json", settleBody(t, overlapRows(), nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAPI_RatePlan(t *testing.T) {
	router, f := newTestRouter(t)

	w := request(router, http.MethodGet, "/v1/rate-plan", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var plan handler.RatePlanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
	assert.Len(t, plan.Rates, 4)
	assert.Len(t, plan.Statuses, 3)

	w = request(router, http.MethodPut, "/v1/rate-plan/rates/"+url.PathEscape("대인1"), "application/json", `{"rate": 3.28}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rate, ok := f.repo.Rate("대인1")
	assert.True(t, ok)
	assert.Equal(t, 3.28, rate)

	assert.Equal(t, http.StatusBadRequest, request(router, http.MethodPut, "/v1/rate-plan/rates/"+url.PathEscape("대물"), "application/json", `{"rate": -1}`).Code)
	assert.Equal(t, http.StatusBadRequest, request(router, http.MethodPut, "/v1/rate-plan/rates/"+url.PathEscape("대물"), "application/json", `{}`).Code)

	assert.Equal(t, http.StatusNoContent, request(router, http.MethodDelete, "/v1/rate-plan/rates/"+url.PathEscape("대인1"), "", "").Code)
	assert.Equal(t, http.StatusNotFound, request(router, http.MethodDelete, "/v1/rate-plan/rates/"+url.PathEscape("대인1"), "", "").Code)

	w = request(router, http.MethodPut, "/v1/rate-plan/statuses/03", "application/json", `{"label":"보류","payable":true}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = request(router, http.MethodGet, "/v1/rate-plan", "", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
	assert.Contains(t, plan.Statuses, handler.StatusResponse{Code: "03", Label: "보류", Payable: true})
}

func TestAPI_Health(t *testing.T) {
	router, _ := newTestRouter(t)
	assert.Equal(t, http.StatusOK, request(router, http.MethodGet, "/health", "", "").Code)
}
