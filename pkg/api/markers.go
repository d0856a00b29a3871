package api

import (
	"context"
	"net/http"
)

// ListMarkers fetches every marker. There is no pagination.
func (c *Client) ListMarkers(ctx context.Context) ([]Marker, error) {
	var markers []Marker
	if err := c.doJSON(ctx, "list markers", http.MethodGet, "/api/markers", nil, nil, &markers); err != nil {
		return nil, err
	}
	if markers == nil {
		markers = []Marker{}
	}
	return markers, nil
}

// CreateMarker stores m and returns the id assigned by the backend.
func (c *Client) CreateMarker(ctx context.Context, m Marker) (string, error) {
	m.ID = ""
	var resp idResponse
	if err := c.doJSON(ctx, "create marker", http.MethodPost, "/api/markers", nil, m, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) UpdateMarker(ctx context.Context, id string, m Marker) error {
	m.ID = id
	return c.doJSON(ctx, "update marker", http.MethodPut, "/api/markers", nil, m, &idResponse{})
}
