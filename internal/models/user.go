package models

import (
	"time"
)

type User struct {
	UID           string    `firestore:"uid" json:"uid"`
	Email         string    `firestore:"email" json:"email"`
	DisplayName   string    `firestore:"displayName" json:"displayName"`
	PhotoURL      string    `firestore:"photoURL,omitempty" json:"photoURL,omitempty"`
	Contributions int64     `firestore:"contributions" json:"contributions"`
	CreatedAt     time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt" json:"updatedAt"`
}
