package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room code does not resolve in the store.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomExists is returned when a generated room code collides with a live room.
	ErrRoomExists = errors.New("room code already in use")
	// ErrQuizNotFound indicates an archived quiz id is unknown or expired.
	ErrQuizNotFound = errors.New("archived quiz not found")
	// ErrInvalidState is returned when an operation is attempted outside its legal phase.
	ErrInvalidState = errors.New("operation not allowed in current room state")
	// ErrUpstreamFailure indicates the question generator failed or returned malformed output.
	ErrUpstreamFailure = errors.New("question generator failure")
	// ErrConflict is returned by the room store when a concurrent writer won the race.
	ErrConflict = errors.New("room was modified concurrently")
	// ErrPlayerNameTaken is returned when a joining player's name is already in use.
	ErrPlayerNameTaken = errors.New("player name already taken")
	// ErrInvalidQuestion indicates a question violating the 4-option MCQ shape.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrInvalidRoomCode indicates a code that is not 6 upper-case alphanumerics.
	ErrInvalidRoomCode = errors.New("invalid room code")
	// ErrInvalidChoice indicates a chosen option index outside [0,3].
	ErrInvalidChoice = errors.New("chosen option out of range")
)
