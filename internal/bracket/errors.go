package bracket

import "errors"

var (
	ErrWindowTooShort = errors.New("daily window is shorter than one game")
	ErrNotPowerOfTwo  = errors.New("player count must be a power of two of at least 2")
	ErrInvalidPhase   = errors.New("action not allowed in the current tournament phase")
	ErrGameDecided    = errors.New("game already has a winner")
	ErrGameNotReady   = errors.New("game is still waiting for its players")
	ErrNotParticipant = errors.New("winner is not a player in this game")
	ErrNoNextRound    = errors.New("no next round to advance into")
	ErrGameNotFound   = errors.New("game not found in bracket")

	// ErrBracketCorrupt means the stored game sequence no longer matches the
	// shape of a single elimination tree. It is never a user error.
	ErrBracketCorrupt = errors.New("bracket is corrupt")
)
