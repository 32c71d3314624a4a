package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
)

type wishlistRepository interface {
	Add(ctx context.Context, studentID, tutorID string) error
	Remove(ctx context.Context, studentID, tutorID string) (bool, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.WishlistEntry, error)
}

// WishlistService manages the tutors a student has saved.
type WishlistService struct {
	repo      wishlistRepository
	tutors    *TutorService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewWishlistService constructs a WishlistService.
func NewWishlistService(repo wishlistRepository, tutors *TutorService, validate *validator.Validate, logger *zap.Logger) *WishlistService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WishlistService{repo: repo, tutors: tutors, validator: validate, logger: logger}
}

// List returns the caller's saved tutors with their profiles.
func (s *WishlistService) List(ctx context.Context, actor models.Actor) ([]models.WishlistEntry, error) {
	entries, err := s.repo.ListByStudent(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load wishlist")
	}
	out := make([]models.WishlistEntry, 0, len(entries))
	for _, entry := range entries {
		tutor, err := s.tutors.Get(ctx, entry.TutorID)
		if err != nil {
			s.logger.Debug("skipping wishlist entry", zap.String("tutor_id", entry.TutorID), zap.Error(err))
			continue
		}
		entry.Tutor = tutor
		out = append(out, entry)
	}
	return out, nil
}

// Add saves a tutor for the caller.
func (s *WishlistService) Add(ctx context.Context, actor models.Actor, req models.AddWishlistRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid wishlist payload")
	}
	if _, err := s.tutors.Get(ctx, req.TutorID); err != nil {
		return err
	}
	if err := s.repo.Add(ctx, actor.UserID, req.TutorID); err != nil {
		return appErrors.Internal(err, "failed to update wishlist")
	}
	return nil
}

// Remove drops a saved tutor.
func (s *WishlistService) Remove(ctx context.Context, actor models.Actor, tutorID string) error {
	removed, err := s.repo.Remove(ctx, actor.UserID, tutorID)
	if err != nil {
		return appErrors.Internal(err, "failed to update wishlist")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "tutor is not in your wishlist")
	}
	return nil
}
