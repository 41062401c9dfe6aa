package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bsrBe/Vent/internal/apperrors"
	"github.com/bsrBe/Vent/internal/audit"
	"github.com/bsrBe/Vent/internal/models"
	"github.com/bsrBe/Vent/internal/repository"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProfileInput struct {
	Name  *string `json:"name" validate:"omitempty,max=100"`
	Email *string `json:"email" validate:"omitempty,email"`
}

type UserService struct {
	store    repository.UserStore
	uploader ImageUploader
	audit    audit.Recorder
	log      logrus.FieldLogger
}

func NewUserService(store repository.UserStore, uploader ImageUploader, recorder audit.Recorder, log logrus.FieldLogger) *UserService {
	return &UserService{store: store, uploader: uploader, audit: recorder, log: log}
}

func (s *UserService) Profile(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrUserGone
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, in ProfileInput) (*models.User, error) {
	update := repository.UserUpdate{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.Validation("Name cannot be empty")
		}
		update.Name = &name
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email == "" {
			return nil, apperrors.Validation("Email cannot be empty")
		}
		update.Email = &email
	}
	if update.Name == nil && update.Email == nil {
		return s.Profile(ctx, userID)
	}

	user, err := s.store.UpdateProfile(ctx, userID, update)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return nil, apperrors.ErrDuplicateEmail
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.ErrUserGone
	case err != nil:
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// UploadProfileImage stores the image externally, then records its URL. A failed upload changes nothing.
func (s *UserService) UploadProfileImage(ctx context.Context, userID primitive.ObjectID, image io.Reader) (*models.User, error) {
	url, err := s.uploader.UploadImage(ctx, image, ProfileImageFolder, userID.Hex())
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID.Hex()).Error("profile image upload failed")
		return nil, apperrors.ErrImageUploadFailed.Wrap(err)
	}

	if err := s.store.SetProfileImage(ctx, userID, url); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrUserGone
		}
		return nil, fmt.Errorf("set profile image: %w", err)
	}
	return s.Profile(ctx, userID)
}

// Activity lists the user's recent authentication events, newest first.
func (s *UserService) Activity(ctx context.Context, userID primitive.ObjectID, limit int) ([]audit.Event, error) {
	events, err := s.audit.Recent(ctx, userID.Hex(), limit)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	if events == nil {
		events = []audit.Event{}
	}
	return events, nil
}
