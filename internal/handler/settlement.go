package handler

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"settlement/internal/domain"
	"settlement/internal/service"
	"settlement/internal/settlement"
)

const timeLayout = "2006-01-02 15:04:05"

// SettlementHandler handles HTTP requests for settlement runs.
type SettlementHandler struct {
	settlementService *service.SettlementService
	schema            settlement.OutputSchema
	maxBodyBytes      int64
}

// NewSettlementHandler creates a new SettlementHandler. A non-positive
// maxBodyBytes disables the body limit.
func NewSettlementHandler(settlementService *service.SettlementService, schema settlement.OutputSchema, maxBodyBytes int64) *SettlementHandler {
	return &SettlementHandler{
		settlementService: settlementService,
		schema:            schema,
		maxBodyBytes:      maxBodyBytes,
	}
}

// SettleRequest is the JSON request body for a settlement run.
type SettleRequest struct {
	Columns []string              `json:"columns"`
	Rows    [][]any               `json:"rows"`
	Options service.SettleOptions `json:"options"`
}

// SettlementResponse is the HTTP response of a settlement run.
type SettlementResponse struct {
	RunID        string               `json:"run_id"`
	CreatedAt    string               `json:"created_at"`
	Rule         string               `json:"business_day_rule"`
	Rounding     string               `json:"rounding"`
	Basis        string               `json:"premium_basis"`
	TotalPremium int64                `json:"total_premium"`
	PayableCount int                  `json:"payable_count"`
	EntityCount  int                  `json:"entity_count"`
	Detail       []DetailRowResponse  `json:"detail"`
	Summary      []SummaryRowResponse `json:"summary"`
	Merged       []MergedRowResponse  `json:"merged"`
	Errors       []RowErrorResponse   `json:"errors"`
}

// DetailRowResponse is one annotated input row.
type DetailRowResponse struct {
	Row              int            `json:"row"`
	EntityID         string         `json:"entity_id"`
	Start            string         `json:"start,omitempty"`
	End              string         `json:"end,omitempty"`
	Coverage         string         `json:"coverage"`
	StatusCode       string         `json:"status_code"`
	StatusLabel      string         `json:"status_label,omitempty"`
	Payable          bool           `json:"payable"`
	SelfInsured      bool           `json:"self_insured"`
	CalendarDay      string         `json:"calendar_day,omitempty"`
	PlatformDay      string         `json:"platform_day,omitempty"`
	BusinessDay      string         `json:"business_day,omitempty"`
	BusinessDayKey   string         `json:"business_day_key,omitempty"`
	DurationMinutes  *int64         `json:"duration_minutes"`
	OverlapsPrevious bool           `json:"overlaps_previous"`
	Rate             float64        `json:"rate"`
	Premium          int64          `json:"premium"`
	Fields           map[string]any `json:"fields,omitempty"`
}

// SummaryRowResponse is one (entity, business day) billing row.
type SummaryRowResponse struct {
	EntityID                           string                    `json:"entity_id"`
	BusinessDay                        string                    `json:"business_day"`
	TotalMinutes                       int64                     `json:"total_minutes"`
	OverlapMinutes                     int64                     `json:"overlap_minutes"`
	SettledMinutes                     int64                     `json:"settled_minutes"`
	RecordCount                        int                       `json:"record_count"`
	MinutesIncludingSelfInsured        int64                     `json:"minutes_including_self_insured"`
	MinutesExcludingSelfInsured        int64                     `json:"minutes_excluding_self_insured"`
	OverlapExcludingSelfInsuredMinutes int64                     `json:"overlap_excluding_self_insured_minutes"`
	SelfInsuredOverlapMinutes          int64                     `json:"adjacent_self_insured_overlap_minutes"`
	StandardOverlapMinutes             int64                     `json:"adjacent_standard_overlap_minutes"`
	Premium                            int64                     `json:"premium"`
	Breakdown                          []CategoryPremiumResponse `json:"breakdown"`
}

// CategoryPremiumResponse itemizes one coverage category of a summary row.
type CategoryPremiumResponse struct {
	Category string  `json:"category"`
	Minutes  int64   `json:"minutes"`
	Rate     float64 `json:"rate"`
	Premium  int64   `json:"premium"`
}

// MergedRowResponse is one merged segment.
type MergedRowResponse struct {
	EntityID        string `json:"entity_id"`
	BusinessDay     string `json:"business_day"`
	Seq             int    `json:"seq"`
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes int64  `json:"duration_minutes"`
}

// RowErrorResponse is a non-fatal row problem.
type RowErrorResponse struct {
	Row     int    `json:"row"`
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// Settle handles POST /v1/settlements
func (h *SettlementHandler) Settle(c *gin.Context) {
	if h.maxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	}

	var req service.SettleRequest
	if strings.HasPrefix(c.ContentType(), "text/csv") {
		headers, rows, err := readCSV(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		req.Headers, req.Rows = headers, rows
	} else {
		// Numbers stay json.Number so numeric driver ids keep every digit.
		var body SettleRequest
		dec := json.NewDecoder(c.Request.Body)
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
		req.Headers, req.Rows, req.Options = body.Columns, body.Rows, body.Options
	}

	if err := queryOptions(c, &req.Options); err != nil {
		respondError(c, err)
		return
	}

	format := c.DefaultQuery("format", "json")
	table := c.DefaultQuery("table", "summary")
	switch {
	case format != "json" && format != "csv" && format != "text":
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("unknown format %q", format)})
		return
	case format == "csv" && table != "detail" && table != "summary" && table != "merged":
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("unknown table %q", table)})
		return
	}

	result, err := h.settlementService.Settle(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	switch format {
	case "text":
		c.String(http.StatusOK, service.FormatReport(result))
	case "csv":
		h.writeCSV(c, table, result)
	default:
		respondJSON(c, http.StatusOK, toSettlementResponse(result))
	}
}

func (h *SettlementHandler) writeCSV(c *gin.Context, name string, result *domain.Settlement) {
	var table [][]string
	switch name {
	case "detail":
		table = h.schema.DetailTable(result.Detail)
	case "merged":
		table = h.schema.MergedTable(result.Merged)
	default:
		table = h.schema.SummaryTable(result.Summary)
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="settlement_%s_%s.csv"`, name, result.RunID))
	c.Status(http.StatusOK)
	// BOM so spreadsheet tools detect UTF-8 headers.
	_, _ = c.Writer.WriteString("\ufeff")
	w := csv.NewWriter(c.Writer)
	if err := w.WriteAll(table); err != nil {
		_ = c.Error(err)
	}
}

// queryOptions applies rule, rounding, basis and strict query parameters on
// top of opts.
func queryOptions(c *gin.Context, opts *service.SettleOptions) error {
	if v := c.Query("rule"); v != "" {
		opts.Rule = v
	}
	if v := c.Query("rounding"); v != "" {
		opts.Rounding = v
	}
	if v := c.Query("basis"); v != "" {
		opts.Basis = v
	}
	if v := c.Query("strict"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: strict must be a boolean, got %q", service.ErrInvalidOption, v)
		}
		opts.Strict = &strict
	}
	return nil
}

// readCSV reads a header line followed by data rows. Short rows are kept; the
// table loader pads them.
func readCSV(r io.Reader) ([]string, [][]any, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errors.New("csv body has no header line")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}

	var rows [][]any
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv row %d: %w", len(rows), err)
		}
		row := make([]any, len(record))
		for i, cell := range record {
			row[i] = cell
		}
		rows = append(rows, row)
	}
	return headers, rows, nil
}

func toSettlementResponse(s *domain.Settlement) SettlementResponse {
	resp := SettlementResponse{
		RunID:        s.RunID,
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
		Rule:         string(s.Rule),
		Rounding:     string(s.Rounding),
		Basis:        string(s.Basis),
		TotalPremium: s.TotalPremium,
		PayableCount: s.PayableCount,
		EntityCount:  s.EntityCount,
		Detail:       make([]DetailRowResponse, 0, len(s.Detail)),
		Summary:      make([]SummaryRowResponse, 0, len(s.Summary)),
		Merged:       make([]MergedRowResponse, 0, len(s.Merged)),
		Errors:       make([]RowErrorResponse, 0, len(s.Errors)),
	}

	for _, d := range s.Detail {
		resp.Detail = append(resp.Detail, DetailRowResponse{
			Row:              d.Record.Row,
			EntityID:         d.Record.EntityID,
			Start:            formatOptionalTime(d.Start),
			End:              formatOptionalTime(d.End),
			Coverage:         d.Record.Coverage,
			StatusCode:       d.Record.StatusCode,
			StatusLabel:      d.StatusLabel,
			Payable:          d.Payable,
			SelfInsured:      d.SelfInsured,
			CalendarDay:      d.CalendarDay,
			PlatformDay:      d.PlatformDay,
			BusinessDay:      d.BusinessDay,
			BusinessDayKey:   d.BusinessDayKey,
			DurationMinutes:  d.DurationMinutes,
			OverlapsPrevious: d.OverlapsPrevious,
			Rate:             d.Rate,
			Premium:          d.Premium,
			Fields:           d.Record.Fields,
		})
	}

	for _, r := range s.Summary {
		row := SummaryRowResponse{
			EntityID:                           r.EntityID,
			BusinessDay:                        r.BusinessDay,
			TotalMinutes:                       r.TotalMinutes,
			OverlapMinutes:                     r.OverlapMinutes,
			SettledMinutes:                     r.SettledMinutes,
			RecordCount:                        r.RecordCount,
			MinutesIncludingSelfInsured:        r.MinutesIncludingSelfInsured,
			MinutesExcludingSelfInsured:        r.MinutesExcludingSelfInsured,
			OverlapExcludingSelfInsuredMinutes: r.OverlapExcludingSelfInsuredMinutes,
			SelfInsuredOverlapMinutes:          r.SelfInsuredOverlapMinutes,
			StandardOverlapMinutes:             r.StandardOverlapMinutes,
			Premium:                            r.Premium,
			Breakdown:                          make([]CategoryPremiumResponse, 0, len(r.Breakdown)),
		}
		for _, b := range r.Breakdown {
			row.Breakdown = append(row.Breakdown, CategoryPremiumResponse{
				Category: b.Category,
				Minutes:  b.Minutes,
				Rate:     b.Rate,
				Premium:  b.Premium,
			})
		}
		resp.Summary = append(resp.Summary, row)
	}

	for _, m := range s.Merged {
		resp.Merged = append(resp.Merged, MergedRowResponse{
			EntityID:        m.EntityID,
			BusinessDay:     m.BusinessDay,
			Seq:             m.Seq,
			Start:           m.Start.Format(timeLayout),
			End:             m.End.Format(timeLayout),
			DurationMinutes: m.DurationMinutes,
		})
	}

	for _, e := range s.Errors {
		resp.Errors = append(resp.Errors, RowErrorResponse{
			Row:     e.Row,
			Kind:    string(e.Kind),
			Field:   e.Field,
			Value:   e.Value,
			Message: e.Message,
		})
	}

	return resp
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}
