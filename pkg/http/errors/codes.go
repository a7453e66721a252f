package errors

// Error codes shared by the REST and websocket surfaces.
const (
	// Authentication
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"
	ErrCodeForbidden              = "forbidden"

	// Validation
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"

	// Battles
	ErrCodeBattleNotFound      = "battle_not_found"
	ErrCodeBattleConflict      = "battle_conflict"
	ErrCodeInsufficientContent = "insufficient_questions"
	ErrCodeLanguageNotAllowed  = "language_not_allowed"

	// WebSocket
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"
	ErrCodeNotInRoom          = "not_in_room"

	// Server
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"

	// Leaderboard
	ErrCodeLeaderboardFetchFailed = "leaderboard_fetch_failed"
)
