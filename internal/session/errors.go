package session

import (
	"errors"
	"net/http"

	"github.com/gokatarajesh/code-battle/internal/battle"
	httperrors "github.com/gokatarajesh/code-battle/pkg/http/errors"
)

var (
	errNotInRoom          = errors.New("connection is not bound to this room")
	errLanguageNotAllowed = errors.New("language not allowed")
)

// errorCode maps an error to the code clients see.
func errorCode(err error) string {
	switch {
	case errors.Is(err, errNotInRoom):
		return httperrors.ErrCodeNotInRoom
	case errors.Is(err, errLanguageNotAllowed):
		return httperrors.ErrCodeLanguageNotAllowed
	}
	switch battle.KindOf(err) {
	case battle.KindValidation:
		return httperrors.ErrCodeValidationFailed
	case battle.KindNotFound:
		return httperrors.ErrCodeBattleNotFound
	case battle.KindForbidden:
		return httperrors.ErrCodeForbidden
	case battle.KindConflict:
		return httperrors.ErrCodeBattleConflict
	case battle.KindInsufficientContent:
		return httperrors.ErrCodeInsufficientContent
	}
	return httperrors.ErrCodeInternalError
}

// clientMessage hides unclassified error text from clients.
func clientMessage(err error) string {
	var domainErr *battle.Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	if errors.Is(err, errNotInRoom) || errors.Is(err, errLanguageNotAllowed) {
		return err.Error()
	}
	return "internal error"
}

// respondError writes the REST form of err.
func respondError(w http.ResponseWriter, err error) {
	code := errorCode(err)
	msg := clientMessage(err)

	var domainErr *battle.Error
	if errors.As(err, &domainErr) && domainErr.Field != "" {
		httperrors.RespondValidationError(w, code, msg, domainErr.Field)
		return
	}

	switch battle.KindOf(err) {
	case battle.KindValidation, battle.KindInsufficientContent:
		httperrors.RespondBadRequest(w, code, msg)
	case battle.KindNotFound:
		httperrors.RespondNotFound(w, code, msg)
	case battle.KindForbidden:
		httperrors.RespondForbidden(w, code, msg)
	case battle.KindConflict:
		httperrors.RespondConflict(w, code, msg)
	default:
		httperrors.RespondInternalError(w, msg)
	}
}
