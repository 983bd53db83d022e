package room

import "errors"

var (
	ErrRoomNotFound   = errors.New("room_not_found")
	ErrPlayerNotFound = errors.New("player_not_found")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid_input")
	ErrCodesExhausted = errors.New("room_codes_exhausted")
)
