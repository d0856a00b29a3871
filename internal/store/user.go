package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GregMSThompson/dockly/internal/dto"
	"github.com/GregMSThompson/dockly/internal/errs"
	"github.com/GregMSThompson/dockly/internal/models"
)

type userStore struct {
	Client     *firestore.Client
	Collection *firestore.CollectionRef
}

func NewUserStore(client *firestore.Client) *userStore {
	return &userStore{
		Client:     client,
		Collection: client.Collection("users"),
	}
}

func (us *userStore) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := us.Collection.Doc(user.UID).Create(ctx, user)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errs.NewAlreadyExistsError("user already exists")
		}
		return errs.NewDatabaseError("create", "failed to create user", err)
	}
	return nil
}

// UpdateUser applies the non-nil fields of patch to the user document.
func (us *userStore) UpdateUser(ctx context.Context, uid string, patch dto.UserPatch) error {
	updates := []firestore.Update{{Path: "updatedAt", Value: time.Now()}}
	if patch.Email != nil {
		updates = append(updates, firestore.Update{Path: "email", Value: *patch.Email})
	}
	if patch.DisplayName != nil {
		updates = append(updates, firestore.Update{Path: "displayName", Value: *patch.DisplayName})
	}
	if patch.PhotoURL != nil {
		updates = append(updates, firestore.Update{Path: "photoURL", Value: *patch.PhotoURL})
	}

	_, err := us.Collection.Doc(uid).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errs.NewNotFoundError("user not found")
		}
		return errs.NewDatabaseError("update", "failed to update user", err)
	}
	return nil
}

func (us *userStore) GetUser(ctx context.Context, uid string) (*models.User, error) {
	var user models.User

	doc, err := us.Collection.Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errs.NewNotFoundError("user not found")
		}
		return nil, errs.NewDatabaseError("read", "failed to get user", err)
	}
	if err := doc.DataTo(&user); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to parse user data", err)
	}
	user.UID = uid

	return &user, nil
}
