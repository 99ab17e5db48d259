package models

import "time"

// Record is a row of the run ledger: a [Run] or a [JobRecord].
type Record interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error // checked before every insert
}

// Ledger writes records of one kind and reads them back by id. Job records are write-once, so update and
// listing methods belong to the concrete stores.
type Ledger[T Record] interface {
	Create(record T) error
	Get(id string) (T, error)
}

var (
	_ Record = (*Run)(nil)
	_ Record = (*JobRecord)(nil)
)
