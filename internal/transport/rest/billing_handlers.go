package rest

import (
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/towerly/building-service/internal/domain"
	"github.com/towerly/building-service/internal/transport/rest/response"
)

// CreatePaymentIntent converts the dollar amount from the client into cents
// and returns the provider's client secret for the card confirmation step.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount   float64 `json:"amount" validate:"gt=0"`
		Currency string  `json:"currency"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}
	if msg, ok := validateRequest(req); !ok {
		fail(w, r, http.StatusBadRequest, "request.invalid", msg, nil)
		return
	}

	amountCents := int64(math.Round(req.Amount * 100))

	secret, err := h.billing.CreateChargeIntent(r.Context(), amountCents, req.Currency)
	if err != nil {
		handleErr(w, r, err)
		return
	}

	response.Data(w, http.StatusOK, map[string]any{"clientSecret": secret})
}

type paymentView struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Month         string    `json:"month"`
	AmountCents   int64     `json:"amountCents"`
	ApartmentNo   int       `json:"apartmentNo"`
	BlockName     string    `json:"blockName"`
	Floor         int       `json:"floor"`
	TransactionID string    `json:"transactionId,omitempty"`
	PaidAt        time.Time `json:"paidAt"`
}

func toPaymentView(p domain.Payment) paymentView {
	return paymentView{
		ID:            p.ID,
		Email:         p.Email,
		Month:         p.Month,
		AmountCents:   p.AmountCents,
		ApartmentNo:   p.ApartmentNo,
		BlockName:     p.BlockName,
		Floor:         p.Floor,
		TransactionID: p.TransactionID,
		PaidAt:        p.PaidAt,
	}
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email         string `json:"email" validate:"required,email"`
		Month         string `json:"month" validate:"required"`
		AmountCents   int64  `json:"amountCents" validate:"gt=0"`
		ApartmentNo   int    `json:"apartmentNo"`
		BlockName     string `json:"blockName"`
		Floor         int    `json:"floor"`
		TransactionID string `json:"transactionId"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}
	if msg, ok := validateRequest(req); !ok {
		fail(w, r, http.StatusBadRequest, "request.invalid", msg, nil)
		return
	}

	id, err := h.billing.RecordPayment(r.Context(), domain.Payment{
		Email:       req.Email,
		Month:       req.Month,
		AmountCents: req.AmountCents,
		ApartmentRef: domain.ApartmentRef{
			ApartmentNo: req.ApartmentNo,
			BlockName:   req.BlockName,
			Floor:       req.Floor,
		},
		TransactionID: req.TransactionID,
	})
	if err != nil {
		handleErr(w, r, err)
		return
	}

	response.Data(w, http.StatusOK, map[string]any{
		"success":    true,
		"insertedId": id,
	})
}

// ListPayments resolves the email from the query string; the authenticated
// principal is the fallback so members see their own history by default.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		if p, ok := GetPrincipal(r.Context()); ok {
			email = p.Email
		}
	}
	h.writePayments(w, r, email)
}

func (h *Handler) ListPaymentsByUser(w http.ResponseWriter, r *http.Request) {
	h.writePayments(w, r, chi.URLParam(r, "email"))
}

func (h *Handler) writePayments(w http.ResponseWriter, r *http.Request, email string) {
	items, err := h.billing.ListPayments(r.Context(), email)
	if err != nil {
		handleErr(w, r, err)
		return
	}

	views := make([]paymentView, 0, len(items))
	for _, p := range items {
		views = append(views, toPaymentView(p))
	}
	response.Data(w, http.StatusOK, map[string]any{"payments": views})
}

type couponView struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	DiscountPct int       `json:"discountPct"`
	Description string    `json:"description,omitempty"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code        string `json:"code" validate:"required"`
		DiscountPct int    `json:"discountPct" validate:"gt=0,lte=100"`
		Description string `json:"description"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}
	if msg, ok := validateRequest(req); !ok {
		fail(w, r, http.StatusBadRequest, "request.invalid", msg, nil)
		return
	}

	id, err := h.billing.CreateCoupon(r.Context(), domain.Coupon{
		Code:        req.Code,
		DiscountPct: req.DiscountPct,
		Description: req.Description,
	})
	if err != nil {
		handleErr(w, r, err)
		return
	}

	response.Data(w, http.StatusOK, map[string]any{
		"success":    true,
		"insertedId": id,
	})
}

func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	items, err := h.billing.ListCoupons(r.Context())
	if err != nil {
		handleErr(w, r, err)
		return
	}

	views := make([]couponView, 0, len(items))
	for _, c := range items {
		views = append(views, couponView{
			ID:          c.ID,
			Code:        c.Code,
			DiscountPct: c.DiscountPct,
			Description: c.Description,
			Available:   c.Available,
			CreatedAt:   c.CreatedAt,
		})
	}
	response.Data(w, http.StatusOK, map[string]any{"coupons": views})
}

func (h *Handler) SetCouponAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid coupon id", map[string]string{
			"id": "must be a valid uuid",
		})
		return
	}

	var req struct {
		Available *bool `json:"available" validate:"required"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}
	if req.Available == nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "available is required", nil)
		return
	}

	modified, err := h.billing.SetCouponAvailability(r.Context(), id, *req.Available)
	if err != nil {
		handleErr(w, r, err)
		return
	}

	response.Data(w, http.StatusOK, map[string]any{
		"success":  true,
		"modified": modified,
	})
}

func (h *Handler) DeactivateCoupon(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	modified, err := h.billing.DeactivateCoupon(r.Context(), code)
	if err != nil {
		handleErr(w, r, err)
		return
	}

	response.Data(w, http.StatusOK, map[string]any{
		"success":  true,
		"modified": modified,
	})
}
