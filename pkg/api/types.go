package api

import "time"

// Marker is the wire form of a bike-lock station.
type Marker struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
	Description string `json:"description"`
	Rating      int    `json:"rating"`
	File        string `json:"file"`
}

type UserProfile struct {
	UID           string    `json:"uid"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"displayName"`
	PhotoURL      string    `json:"photoURL,omitempty"`
	Contributions int64     `json:"contributions"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// UserPatch is a partial profile update. Nil fields are left unchanged.
type UserPatch struct {
	Email       *string `json:"email,omitempty"`
	DisplayName *string `json:"displayName,omitempty"`
	PhotoURL    *string `json:"photoURL,omitempty"`
}

// File is a local image not yet uploaded.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type idResponse struct {
	ID string `json:"id"`
}

type urlResponse struct {
	URL string `json:"url"`
}

type verificationResponse struct {
	EmailVerified bool `json:"emailVerified"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
