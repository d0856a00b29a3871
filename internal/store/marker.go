package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GregMSThompson/dockly/internal/errs"
	"github.com/GregMSThompson/dockly/internal/models"
	"github.com/GregMSThompson/dockly/pkg/logger"
)

type markerStore struct {
	client *firestore.Client
}

func NewMarkerStore(client *firestore.Client) *markerStore {
	return &markerStore{client: client}
}

func (s *markerStore) collection() *firestore.CollectionRef {
	return s.client.Collection("markers")
}

func (s *markerStore) List(ctx context.Context) ([]*models.Marker, error) {
	iter := s.collection().OrderBy("createdAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	markers := make([]*models.Marker, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errs.NewDatabaseError("read", "failed to list markers", err)
		}
		var m models.Marker
		if err := doc.DataTo(&m); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse marker data", err)
		}
		m.ID = doc.Ref.ID
		markers = append(markers, &m)
	}
	return markers, nil
}

// Create stores a new marker under a generated id and credits the creator's
// contribution count in the same transaction.
func (s *markerStore) Create(ctx context.Context, uid string, m *models.Marker) (string, error) {
	now := time.Now()
	m.CreatedBy = uid
	m.CreatedAt = now
	m.UpdatedAt = now

	ref := s.collection().NewDoc()
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(ref, m); err != nil {
			return err
		}
		if uid == "" {
			return nil
		}
		return tx.Set(s.client.Collection("users").Doc(uid), map[string]any{
			"contributions": firestore.Increment(1),
			"updatedAt":     now,
		}, firestore.MergeAll)
	})
	if err != nil {
		return "", errs.NewDatabaseError("create", "failed to create marker", err)
	}

	m.ID = ref.ID
	logger.FromContext(ctx).Debug("marker stored", "markerId", ref.ID)
	return ref.ID, nil
}

// Update overwrites the editable fields of an existing marker.
func (s *markerStore) Update(ctx context.Context, id string, m *models.Marker) error {
	m.UpdatedAt = time.Now()
	_, err := s.collection().Doc(id).Update(ctx, []firestore.Update{
		{Path: "title", Value: m.Title},
		{Path: "latitude", Value: m.Latitude},
		{Path: "longitude", Value: m.Longitude},
		{Path: "description", Value: m.Description},
		{Path: "rating", Value: m.Rating},
		{Path: "file", Value: m.File},
		{Path: "updatedAt", Value: m.UpdatedAt},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errs.NewNotFoundError("marker not found")
		}
		return errs.NewDatabaseError("update", "failed to update marker", err)
	}
	m.ID = id
	return nil
}
