package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"settlement/internal/domain"
	"settlement/internal/service"
)

// RatePlanHandler handles HTTP requests for the rate plan.
type RatePlanHandler struct {
	ratePlanService *service.RatePlanService
}

// NewRatePlanHandler creates a new RatePlanHandler.
func NewRatePlanHandler(ratePlanService *service.RatePlanService) *RatePlanHandler {
	return &RatePlanHandler{ratePlanService: ratePlanService}
}

// SetRateRequest is the HTTP request body for setting a coverage rate.
type SetRateRequest struct {
	Rate *float64 `json:"rate"`
}

// SetStatusRequest is the HTTP request body for setting a settlement status.
type SetStatusRequest struct {
	Label   string `json:"label"`
	Payable bool   `json:"payable"`
}

// RatePlanResponse is the HTTP response for the current rate plan.
type RatePlanResponse struct {
	Rates               []RateResponse   `json:"rates"`
	Statuses            []StatusResponse `json:"statuses"`
	SelfInsuredKeywords []string         `json:"self_insured_keywords"`
}

// RateResponse is one coverage rate.
type RateResponse struct {
	Category string  `json:"category"`
	Rate     float64 `json:"rate"`
}

// StatusResponse is one settlement status.
type StatusResponse struct {
	Code    string `json:"code"`
	Label   string `json:"label"`
	Payable bool   `json:"payable"`
}

// Get handles GET /v1/rate-plan
func (h *RatePlanHandler) Get(c *gin.Context) {
	plan, err := h.ratePlanService.Current(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRatePlanResponse(plan))
}

// SetRate handles PUT /v1/rate-plan/rates/:category
func (h *RatePlanHandler) SetRate(c *gin.Context) {
	var req SetRateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Rate == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	category := c.Param("category")
	if err := h.ratePlanService.SetRate(c.Request.Context(), category, *req.Rate); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, RateResponse{Category: category, Rate: *req.Rate})
}

// DeleteRate handles DELETE /v1/rate-plan/rates/:category
func (h *RatePlanHandler) DeleteRate(c *gin.Context) {
	if err := h.ratePlanService.DeleteRate(c.Request.Context(), c.Param("category")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetStatus handles PUT /v1/rate-plan/statuses/:code
func (h *RatePlanHandler) SetStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	code := c.Param("code")
	if err := h.ratePlanService.SetStatus(c.Request.Context(), code, req.Label, req.Payable); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, StatusResponse{Code: code, Label: req.Label, Payable: req.Payable})
}

func toRatePlanResponse(plan *domain.RatePlan) RatePlanResponse {
	resp := RatePlanResponse{
		Rates:               make([]RateResponse, 0, len(plan.Rates)),
		Statuses:            make([]StatusResponse, 0, len(plan.Statuses)),
		SelfInsuredKeywords: plan.SelfInsuredKeywords,
	}
	for _, r := range plan.Rates {
		resp.Rates = append(resp.Rates, RateResponse{Category: r.Category, Rate: r.Rate})
	}
	for _, s := range plan.Statuses {
		resp.Statuses = append(resp.Statuses, StatusResponse{Code: s.Code, Label: s.Label, Payable: s.Payable})
	}
	return resp
}
