package dto

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	UID         string `json:"uid"`
	Email       string `json:"email" validate:"omitempty,email"`
	DisplayName string `json:"displayName" validate:"max=80"`
	PhotoURL    string `json:"photoURL" validate:"omitempty,url"`
}

// UserPatch is the body of PUT /api/users. Nil fields are left unchanged.
type UserPatch struct {
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	DisplayName *string `json:"displayName,omitempty" validate:"omitempty,max=80"`
	PhotoURL    *string `json:"photoURL,omitempty" validate:"omitempty,url"`
}

func (p UserPatch) Empty() bool {
	return p.Email == nil && p.DisplayName == nil && p.PhotoURL == nil
}

type VerificationStatus struct {
	EmailVerified bool `json:"emailVerified"`
}
