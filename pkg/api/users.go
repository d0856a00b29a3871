package api

import (
	"context"
	"net/http"
	"net/url"
)

// GetUser fetches a profile. A missing profile is a *TransportError for
// which IsNotFound reports true.
func (c *Client) GetUser(ctx context.Context, uid string) (*UserProfile, error) {
	var p UserProfile
	if err := c.doJSON(ctx, "get user", http.MethodGet, "/api/users", url.Values{"uid": {uid}}, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateUser(ctx context.Context, p UserProfile) error {
	body := struct {
		UID         string `json:"uid"`
		Email       string `json:"email,omitempty"`
		DisplayName string `json:"displayName"`
		PhotoURL    string `json:"photoURL,omitempty"`
	}{p.UID, p.Email, p.DisplayName, p.PhotoURL}
	return c.doJSON(ctx, "create user", http.MethodPost, "/api/users", nil, body, nil)
}

func (c *Client) UpdateUser(ctx context.Context, uid string, patch UserPatch) error {
	return c.doJSON(ctx, "update user", http.MethodPut, "/api/users", url.Values{"uid": {uid}}, patch, nil)
}

// VerificationStatus reports whether the signed-in user's email is verified.
func (c *Client) VerificationStatus(ctx context.Context) (bool, error) {
	var resp verificationResponse
	if err := c.doJSON(ctx, "verification status", http.MethodGet, "/api/users/verification", nil, nil, &resp); err != nil {
		return false, err
	}
	return resp.EmailVerified, nil
}

// SendVerificationEmail asks the backend to mail a new verification link.
func (c *Client) SendVerificationEmail(ctx context.Context) error {
	return c.doJSON(ctx, "send verification", http.MethodPost, "/api/users/verification", nil, nil, nil)
}
