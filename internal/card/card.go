package card

type Card struct {
	ID           int64   `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	Illustration *string `db:"illustration" json:"illustration,omitempty"`
	Attack       int     `db:"attack" json:"attack"`
	Defense      int     `db:"defense" json:"defense"`
}

// Series groups cards; a tournament only accepts decks built from its series.
type Series struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

const MaxDeckSize = 15
