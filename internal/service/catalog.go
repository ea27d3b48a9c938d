package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/towerly/building-service/internal/domain"
)

// CatalogService serves the public building catalog: apartment listings and
// announcements.
type CatalogService struct {
	apartments    domain.ApartmentRepository
	announcements domain.AnnouncementRepository
}

func NewCatalogService(apartments domain.ApartmentRepository, announcements domain.AnnouncementRepository) *CatalogService {
	return &CatalogService{apartments: apartments, announcements: announcements}
}

func (s *CatalogService) ListApartments(ctx context.Context, f domain.ApartmentFilter) ([]domain.Apartment, int, error) {
	return s.apartments.ListApartments(ctx, f.Normalized())
}

func (s *CatalogService) CreateAnnouncement(ctx context.Context, a domain.Announcement) (uuid.UUID, error) {
	a.Title = strings.TrimSpace(a.Title)
	a.CreatedAt = time.Now().UTC()
	return s.announcements.CreateAnnouncement(ctx, a)
}

func (s *CatalogService) ListAnnouncements(ctx context.Context) ([]domain.Announcement, error) {
	return s.announcements.ListAnnouncements(ctx)
}
