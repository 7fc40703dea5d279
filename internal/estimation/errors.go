package estimation

import "errors"

var (
	ErrEmptyName      = errors.New("name is required")
	ErrNameTaken      = errors.New("name already taken")
	ErrNotParticipant = errors.New("join the session before voting")
	ErrUnknownPhase   = errors.New("unknown phase")
	ErrInvalidValue   = errors.New("value is not on the estimate scale")
	ErrRevealed       = errors.New("estimations are revealed; votes are locked until reset")
	ErrAdminRequired  = errors.New("admin rights required")
	ErrAdminDenied    = errors.New("invalid admin password")
	ErrUnknownAction  = errors.New("unknown action")
)
