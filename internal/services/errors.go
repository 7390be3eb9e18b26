package services

import "errors"

var (
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrUserNotFound      = errors.New("user not found")
	ErrListenerNotFound  = errors.New("listener not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrCallNotFound      = errors.New("call not found")
	ErrRoomNotFound      = errors.New("support room not found")
)
