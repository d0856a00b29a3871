package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/GregMSThompson/dockly/internal/cache"
	"github.com/GregMSThompson/dockly/internal/dto"
	"github.com/GregMSThompson/dockly/internal/errs"
	"github.com/GregMSThompson/dockly/internal/models"
	"github.com/GregMSThompson/dockly/pkg/logger"
	"github.com/GregMSThompson/dockly/pkg/sanitize"
)

type userUSStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, uid string, patch dto.UserPatch) error
	GetUser(ctx context.Context, uid string) (*models.User, error)
}

type byteCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type userService struct {
	Store    userUSStore
	Cache    byteCache
	TTL      time.Duration
	Validate *validator.Validate
}

func NewUserService(store userUSStore, c byteCache, ttl time.Duration, validate *validator.Validate) *userService {
	if c == nil {
		c = cache.Noop{}
	}
	return &userService{
		Store:    store,
		Cache:    c,
		TTL:      ttl,
		Validate: validate,
	}
}

func userCacheKey(uid string) string {
	return "dockly:user:" + uid
}

// CreateUser stores the profile of the signed-in user. tokenEmail is used
// when the request carries no email.
func (s *userService) CreateUser(ctx context.Context, uid, tokenEmail string, req dto.CreateUserRequest) error {
	log := logger.FromContext(ctx)

	if req.UID != "" && req.UID != uid {
		return errs.NewPermissionDeniedError("cannot create a profile for another user")
	}

	req.UID = uid
	req.DisplayName = sanitize.Text(req.DisplayName)
	if req.Email == "" {
		req.Email = tokenEmail
	}
	if err := s.Validate.Struct(req); err != nil {
		return validationError(err)
	}

	user := &models.User{
		UID:         uid,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		PhotoURL:    sanitize.URL(req.PhotoURL),
	}
	if err := s.Store.CreateUser(ctx, user); err != nil {
		log.Error("failed to create user in store", "error", err)
		return err
	}

	s.InvalidateUser(ctx, uid)
	log.Info("user created successfully")
	log.Debug("user created with full details", "user", user)
	return nil
}

// GetUser reads a profile, serving from the cache when possible.
func (s *userService) GetUser(ctx context.Context, uid string) (*models.User, error) {
	log := logger.FromContext(ctx)
	key := userCacheKey(uid)

	if b, err := s.Cache.Get(ctx, key); err == nil {
		var user models.User
		if err := json.Unmarshal(b, &user); err == nil {
			return &user, nil
		}
		log.Warn("discarding unreadable cached profile", "uid", uid)
	} else if !errors.Is(err, cache.ErrMiss) {
		log.Warn("profile cache read failed", "error", err)
	}

	user, err := s.Store.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(user); err == nil {
		if err := s.Cache.Set(ctx, key, b, s.TTL); err != nil {
			log.Warn("profile cache write failed", "error", err)
		}
	}
	return user, nil
}

// UpdateUser applies patch to uid's profile. Only the owner may update it.
func (s *userService) UpdateUser(ctx context.Context, callerUID, uid string, patch dto.UserPatch) error {
	log := logger.FromContext(ctx)

	if uid != callerUID {
		return errs.NewPermissionDeniedError("cannot update another user's profile")
	}
	if patch.Empty() {
		return errs.NewValidationError("no fields to update")
	}

	if patch.DisplayName != nil {
		name := sanitize.Text(*patch.DisplayName)
		patch.DisplayName = &name
	}
	if patch.PhotoURL != nil && *patch.PhotoURL != "" {
		photo := sanitize.URL(*patch.PhotoURL)
		if photo == "" {
			return errs.NewValidationError("photoURL must be an http or https URL")
		}
		patch.PhotoURL = &photo
	}
	if err := s.Validate.Struct(patch); err != nil {
		return validationError(err)
	}

	if err := s.Store.UpdateUser(ctx, uid, patch); err != nil {
		log.Error("failed to update user", "error", err)
		return err
	}

	s.InvalidateUser(ctx, uid)
	log.Info("user updated")
	return nil
}

// InvalidateUser drops the cached profile for uid.
func (s *userService) InvalidateUser(ctx context.Context, uid string) {
	if err := s.Cache.Delete(ctx, userCacheKey(uid)); err != nil {
		logger.FromContext(ctx).Warn("profile cache delete failed", "uid", uid, "error", err)
	}
}
