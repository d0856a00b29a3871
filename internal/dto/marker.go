package dto

// MarkerRequest is the body of POST and PUT /api/markers.
type MarkerRequest struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title" validate:"required,max=120"`
	Latitude    string `json:"latitude" validate:"required,latitude"`
	Longitude   string `json:"longitude" validate:"required,longitude"`
	Description string `json:"description" validate:"max=200"`
	Rating      int    `json:"rating" validate:"min=0,max=5"`
	File        string `json:"file" validate:"omitempty,url"`
}

type MarkerIDResponse struct {
	ID string `json:"id"`
}
