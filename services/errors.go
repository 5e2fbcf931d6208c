package services

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindMissingField        ErrorKind = "MissingField"
	KindValidationFailed    ErrorKind = "ValidationFailed"
	KindDuplicateResource   ErrorKind = "DuplicateResource"
	KindForbidden           ErrorKind = "Forbidden"
	KindNotFound            ErrorKind = "NotFound"
	KindInvalidState        ErrorKind = "InvalidState"
	KindCapacityViolation   ErrorKind = "CapacityViolation"
	KindSelfActionForbidden ErrorKind = "SelfActionForbidden"
)

// Error is a rejected domain operation. Code is the numeric code exposed to API clients,
// Field names the input or entity the failure concerns.
type Error struct {
	Kind    ErrorKind
	Code    int
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, code int, field, message string) *Error {
	return &Error{Kind: kind, Code: code, Field: field, Message: message}
}

// MissingFieldError and ValidationError build per-field input errors.
func MissingFieldError(field string) *Error {
	return newError(KindMissingField, 2, field, fmt.Sprintf("%s is required", field))
}

func ValidationError(field, message string) *Error {
	return newError(KindValidationFailed, 3, field, message)
}

// Is lets per-field input errors match the generic ErrMissingField and ErrValidationFailed sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Field != "" {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// KindOf returns the kind of a domain error, or "" for unexpected errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

var (
	ErrInvalidCredentials = newError(KindForbidden, 1, "password", "invalid username or password")
	ErrValidationFailed   = newError(KindValidationFailed, 3, "", "validation failed")
	ErrMissingField       = newError(KindMissingField, 2, "", "required field is missing")

	ErrUsernameTaken       = newError(KindDuplicateResource, 4, "username", "username is already taken")
	ErrEmailTaken          = newError(KindDuplicateResource, 4, "email", "email is already taken")
	ErrTeamNameTaken       = newError(KindDuplicateResource, 4, "name", "team name is already taken")
	ErrTournamentNameTaken = newError(KindDuplicateResource, 4, "name", "tournament name is already taken")

	ErrAdminsOnly   = newError(KindForbidden, 8, "role", "only admins can perform this action")
	ErrCaptainsOnly = newError(KindForbidden, 9, "role", "only team captains can perform this action")
	ErrForbidden    = newError(KindForbidden, 9, "role", "operation not allowed for the current user")

	ErrUserNotFound       = newError(KindNotFound, 10, "user", "user not found")
	ErrTeamNotFound       = newError(KindNotFound, 14, "team", "team not found")
	ErrTournamentNotFound = newError(KindNotFound, 15, "tournament", "tournament not found")
	ErrUserHasNoTeam      = newError(KindNotFound, 16, "team", "user has no team")
	ErrPlayerNotFound     = newError(KindNotFound, 23, "member", "player not found in team")
	ErrRequestNotFound    = newError(KindNotFound, 20, "name", "no such join request")
	ErrTeamNotInStage     = newError(KindNotFound, 35, "team", "team has no match in the current stage")
	ErrMatchNotFound      = newError(KindNotFound, 37, "match", "match not found")

	ErrTeamNotFree          = newError(KindInvalidState, 17, "team", "team is not free")
	ErrUserAlreadyInTeam    = newError(KindInvalidState, 18, "team", "user already has a team")
	ErrRequestAlreadySent   = newError(KindDuplicateResource, 19, "name", "join request already sent")
	ErrTeamFull             = newError(KindCapacityViolation, 21, "team", "team is full")
	ErrCaptainSelfKick      = newError(KindSelfActionForbidden, 22, "member", "captain can't kick himself")
	ErrTournamentNotSigning = newError(KindInvalidState, 25, "tournament", "tournament is not in signing stage")
	ErrTeamAlreadySigned    = newError(KindInvalidState, 26, "team", "team is already signed into a tournament")
	ErrTeamNotComplete      = newError(KindCapacityViolation, 27, "team", "team is not full")
	ErrTeamNotCompeting     = newError(KindInvalidState, 28, "team", "team is not signed into a tournament")
	ErrTournamentNotRunning = newError(KindInvalidState, 29, "tournament", "tournament is not running")
	ErrScoreAlreadySent     = newError(KindDuplicateResource, 30, "winner", "captain already sent match score")
	ErrTournamentFull       = newError(KindCapacityViolation, 31, "tournament", "tournament is full")
	ErrTournamentNotFull    = newError(KindCapacityViolation, 32, "tournament", "tournament is not full")
	ErrStageNotRunning      = newError(KindInvalidState, 33, "stage", "stage is not running")
	ErrStageNotResolved     = newError(KindInvalidState, 34, "stage", "not all matches of the stage are finished")
	ErrStageAlreadyAdvanced = newError(KindInvalidState, 36, "stage", "stage already advanced")
	ErrMatchDisputed        = newError(KindInvalidState, 38, "match", "match is disputed and awaits an administrator")
	ErrMatchResolved        = newError(KindInvalidState, 39, "match", "match is already resolved")
	ErrInvalidTransition    = newError(KindInvalidState, 29, "status", "invalid tournament status transition")
	ErrTeamNotEditable      = newError(KindInvalidState, 40, "team", "team roster is frozen while entered in a tournament")
	ErrConcurrentUpdate     = newError(KindInvalidState, 41, "team", "team changed while the request was processed, retry")
	ErrLockTimeout          = newError(KindInvalidState, 42, "", "resource is busy, retry later")
)
