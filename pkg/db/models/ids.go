package models

import "github.com/google/uuid"

// assignID fills a missing primary key so inserts behave the same on
// Postgres and sqlite.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
