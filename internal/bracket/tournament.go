package bracket

import (
	"time"

	"github.com/google/uuid"
)

type Phase string

const (
	PhaseRegistration Phase = "registration"
	PhaseTournament   Phase = "tournament"
	PhaseCompletion   Phase = "completion"
)

type Tournament struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	OrganizerID uuid.UUID  `db:"organizer_id" json:"organizer_id"`
	Name        string     `db:"name" json:"name"`
	CountryCode string     `db:"country_code" json:"country_code"`
	StartAt     time.Time  `db:"start_at" json:"start_at"`
	EndAt       time.Time  `db:"end_at" json:"end_at"`
	Phase       Phase      `db:"phase" json:"phase"`
	IsCanceled  bool       `db:"is_canceled" json:"is_canceled"`
	MaxPlayers  int        `db:"max_players" json:"max_players"`
	WinnerID    *uuid.UUID `db:"winner_id" json:"winner_id,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

func (t *Tournament) CanRegister() bool {
	return !t.IsCanceled && t.Phase == PhaseRegistration
}

func (t *Tournament) InProgress() bool {
	return !t.IsCanceled && t.Phase == PhaseTournament
}

// StartBracket moves a tournament out of registration once its games exist.
func (t *Tournament) StartBracket() error {
	if !t.CanRegister() {
		return ErrInvalidPhase
	}
	t.Phase = PhaseTournament
	return nil
}

func (t *Tournament) Complete(winnerID uuid.UUID) error {
	if !t.InProgress() {
		return ErrInvalidPhase
	}
	t.Phase = PhaseCompletion
	t.WinnerID = &winnerID
	return nil
}

// Cancel is allowed from registration or an ongoing tournament and is terminal.
func (t *Tournament) Cancel() error {
	if t.IsCanceled || t.Phase == PhaseCompletion {
		return ErrInvalidPhase
	}
	t.IsCanceled = true
	return nil
}
