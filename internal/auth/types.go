package auth

import "github.com/google/uuid"

const maxDisplayNameLength = 40

// GuestRequest asks for an ephemeral identity.
type GuestRequest struct {
	DisplayName string `json:"displayName"`
}

// GuestSession is a freshly minted guest identity with its token.
type GuestSession struct {
	UserID      uuid.UUID
	DisplayName string
	AccessToken string
	ExpiresIn   int64
}
