package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/towerly/building-service/internal/domain"
	appCtx "github.com/towerly/building-service/internal/pkg/context"
	"github.com/towerly/building-service/internal/service"
	"github.com/towerly/building-service/internal/transport/rest/response"
)

type Handler struct {
	agreements *service.AgreementService
	accounts   *service.AccountService
	catalog    *service.CatalogService
	billing    *service.BillingService
}

func NewHandler(agreements *service.AgreementService, accounts *service.AccountService, catalog *service.CatalogService, billing *service.BillingService) *Handler {
	return &Handler{agreements: agreements, accounts: accounts, catalog: catalog, billing: billing}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response.Data(w, http.StatusOK, map[string]string{
		"service": "building-service",
		"status":  "ok",
	})
}

type agreementView struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	UserName    string     `json:"userName,omitempty"`
	ApartmentNo int        `json:"apartmentNo"`
	BlockName   string     `json:"blockName"`
	Floor       int        `json:"floor"`
	Rent        int64      `json:"rent"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	DecidedAt   *time.Time `json:"decidedAt,omitempty"`
}

func toAgreementView(a domain.Agreement) agreementView {
	return agreementView{
		ID:          a.ID,
		Email:       a.Email,
		UserName:    a.UserName,
		ApartmentNo: a.ApartmentNo,
		BlockName:   a.BlockName,
		Floor:       a.Floor,
		Rent:        a.Rent,
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
		DecidedAt:   a.DecidedAt,
	}
}

func (h *Handler) SubmitAgreement(w http.ResponseWriter, r *http.Request) {
	// apartmentNo is a pointer so that unit 0 passes the required check;
	// required on an int would treat the zero value as missing.
	var req struct {
		Email       string `json:"email" validate:"required,email"`
		UserName    string `json:"userName"`
		ApartmentNo *int   `json:"apartmentNo" validate:"required"`
		BlockName   string `json:"blockName" validate:"required"`
		Floor       int    `json:"floor"`
		Rent        int64  `json:"rent" validate:"gte=0"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}
	if msg, ok := validateRequest(req); !ok {
		fail(w, r, http.StatusBadRequest, "request.invalid", msg, nil)
		return
	}

	id, err := h.agreements.Submit(r.Context(), traceID(r), domain.Agreement{
		Email:    req.Email,
		UserName: req.UserName,
		ApartmentRef: domain.ApartmentRef{
			ApartmentNo: *req.ApartmentNo,
			BlockName:   req.BlockName,
			Floor:       req.Floor,
		},
		Rent: req.Rent,
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

func (h *Handler) ListPendingAgreements(w http.ResponseWriter, r *http.Request) {
	items, err := h.agreements.ListPending(r.Context())
	if err != nil {
		handleErr(w, r, err)
		return
	}

	views := make([]agreementView, 0, len(items))
	for _, a := range items {
		views = append(views, toAgreementView(a))
	}
	response.Data(w, http.StatusOK, map[string]any{"requests": views})
}

func (h *Handler) ListAgreementsByEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	items, err := h.agreements.ListByEmail(r.Context(), email)
	if err != nil {
		handleErr(w, r, err)
		return
	}

	views := make([]agreementView, 0, len(items))
	for _, a := range items {
		views = append(views, toAgreementView(a))
	}
	response.Data(w, http.StatusOK, map[string]any{"agreements": views})
}

func (h *Handler) DecideAgreement(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid agreement id", map[string]string{
			"id": "must be a valid uuid",
		})
		return
	}

	var req struct {
		Action    string `json:"action" validate:"required"`
		UserEmail string `json:"userEmail" validate:"omitempty,email"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}
	if msg, ok := validateRequest(req); !ok {
		fail(w, r, http.StatusBadRequest, "request.invalid", msg, nil)
		return
	}

	action, ok := domain.ParseAction(req.Action)
	if !ok {
		fail(w, r, http.StatusBadRequest, "request.invalid", "action must be accept or reject", nil)
		return
	}

	if err := h.agreements.Decide(r.Context(), traceID(r), id, action, req.UserEmail); err != nil {
		handleErr(w, r, err)
		return
	}

	response.Data(w, http.StatusOK, map[string]any{"success": true})
}

func traceID(r *http.Request) string {
	tid := appCtx.GetRequestID(r.Context())
	if tid == "" {
		tid = "no-request-id"
	}
	return tid
}

func handleErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrEmailRequired),
		errors.Is(err, domain.ErrInvalidAmount):
		fail(w, r, http.StatusBadRequest, "request.invalid", err.Error(), nil)

	case errors.Is(err, domain.ErrAgreementExists):
		fail(w, r, http.StatusConflict, "agreement.exists", err.Error(), nil)
	case errors.Is(err, domain.ErrAgreementDecided):
		fail(w, r, http.StatusConflict, "agreement.already_decided", err.Error(), nil)
	case errors.Is(err, domain.ErrAgreementNotFound):
		fail(w, r, http.StatusNotFound, "agreement.not_found", err.Error(), nil)

	case errors.Is(err, domain.ErrUserNotFound):
		fail(w, r, http.StatusNotFound, "user.not_found", err.Error(), nil)
	case errors.Is(err, domain.ErrApartmentNotFound):
		fail(w, r, http.StatusNotFound, "apartment.not_found", err.Error(), nil)

	case errors.Is(err, domain.ErrCouponExists):
		fail(w, r, http.StatusConflict, "coupon.exists", err.Error(), nil)
	case errors.Is(err, domain.ErrCouponNotFound):
		fail(w, r, http.StatusNotFound, "coupon.not_found", err.Error(), nil)

	case errors.Is(err, domain.ErrForbidden):
		fail(w, r, http.StatusForbidden, "auth.forbidden", "forbidden access", nil)

	default:
		// Do not leak internal details.
		fail(w, r, http.StatusInternalServerError, "internal", "internal error", nil)
	}
}

func fail(w http.ResponseWriter, r *http.Request, status int, code, message string, meta map[string]string) {
	reqID := appCtx.GetRequestID(r.Context())
	if reqID == "" {
		reqID = "no-request-id"
	}
	response.Fail(w, status, code, message, meta, reqID)
}
