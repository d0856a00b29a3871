package models

import "time"

// Marker is a bike-lock station. The document ID is assigned by Firestore
// and is not stored in the document body.
type Marker struct {
	ID          string    `firestore:"-" json:"id"`
	Title       string    `firestore:"title" json:"title"`
	Latitude    string    `firestore:"latitude" json:"latitude"`
	Longitude   string    `firestore:"longitude" json:"longitude"`
	Description string    `firestore:"description" json:"description"`
	Rating      int       `firestore:"rating" json:"rating"`
	File        string    `firestore:"file" json:"file"`
	CreatedBy   string    `firestore:"createdBy" json:"createdBy,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt" json:"updatedAt"`
}
