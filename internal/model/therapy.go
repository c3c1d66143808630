package model

import (
	"github.com/lib/pq"
)

// Therapy is a purchasable service offering. Read-only reference data from
// the booking workflow's perspective; administrative tooling maintains it.
type Therapy struct {
	Base
	Name        string         `db:"name" json:"name"`
	Category    string         `db:"category" json:"category"`
	Description string         `db:"description" json:"description"`
	Duration    int            `db:"duration" json:"duration"` // in minutes
	Price       float64        `db:"price" json:"price"`
	Benefits    pq.StringArray `db:"benefits" json:"benefits"`
	Active      bool           `db:"active" json:"active"`
}
