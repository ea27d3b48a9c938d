package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/towerly/building-service/internal/domain"
	"github.com/towerly/building-service/internal/transport/rest/response"
)

type apartmentView struct {
	ApartmentNo int    `json:"apartmentNo"`
	BlockName   string `json:"blockName"`
	Floor       int    `json:"floor"`
	Rent        int64  `json:"rent"`
	Status      string `json:"status"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// ListApartments serves the public listing with page/limit paging and
// optional minRent/maxRent bounds. Invalid query values fall back to
// defaults instead of erroring.
func (h *Handler) ListApartments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ApartmentFilter{
		Page:    parseIntDefault(q.Get("page"), 1),
		Limit:   parseIntDefault(q.Get("limit"), 0),
		MinRent: parseRentBound(q.Get("minRent")),
		MaxRent: parseRentBound(q.Get("maxRent")),
	}

	items, total, err := h.catalog.ListApartments(r.Context(), filter)
	if err != nil {
		handleErr(w, r, err)
		return
	}

	views := make([]apartmentView, 0, len(items))
	for _, a := range items {
		views = append(views, apartmentView{
			ApartmentNo: a.ApartmentNo,
			BlockName:   a.BlockName,
			Floor:       a.Floor,
			Rent:        a.Rent,
			Status:      string(a.Status),
			ImageURL:    a.ImageURL,
		})
	}

	response.Data(w, http.StatusOK, map[string]any{
		"total":      total,
		"apartments": views,
	})
}

type announcementView struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (h *Handler) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title" validate:"required"`
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

	id, err := h.catalog.CreateAnnouncement(r.Context(), domain.Announcement{
		Title:       req.Title,
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

func (h *Handler) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListAnnouncements(r.Context())
	if err != nil {
		handleErr(w, r, err)
		return
	}

	views := make([]announcementView, 0, len(items))
	for _, a := range items {
		views = append(views, announcementView{
			ID:          a.ID,
			Title:       a.Title,
			Description: a.Description,
			CreatedAt:   a.CreatedAt,
		})
	}
	response.Data(w, http.StatusOK, map[string]any{"announcements": views})
}
