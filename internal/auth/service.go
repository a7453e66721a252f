package auth

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/code-battle/internal/auth/jwt"
)

// Service issues guest identities and validates access tokens. Accounts
// live outside this service; any token signed with the shared secret is
// accepted.
type Service struct {
	tokenMgr *jwt.Manager
	logger   zerolog.Logger
}

func NewService(cfg jwt.TokenConfig, logger zerolog.Logger) *Service {
	return &Service{
		tokenMgr: jwt.NewManager(cfg),
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

// CreateGuest mints a new random identity under the given display name.
func (s *Service) CreateGuest(req GuestRequest) (*GuestSession, error) {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return nil, fmt.Errorf("display name required")
	}
	if len([]rune(name)) > maxDisplayNameLength {
		return nil, fmt.Errorf("display name must be at most %d characters", maxDisplayNameLength)
	}

	userID := uuid.New()
	token, err := s.tokenMgr.GenerateAccessToken(jwt.User{ID: userID, DisplayName: name, IsGuest: true})
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	s.logger.Info().Str("user_id", userID.String()).Msg("guest created")
	return &GuestSession{
		UserID:      userID,
		DisplayName: name,
		AccessToken: token,
		ExpiresIn:   int64(s.tokenMgr.TTL().Seconds()),
	}, nil
}

// ValidateToken checks an access token and returns its claims.
func (s *Service) ValidateToken(tokenString string) (*jwt.Claims, error) {
	return s.tokenMgr.ValidateAccessToken(tokenString)
}
