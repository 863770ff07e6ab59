package model

import "github.com/google/uuid"

// assignID gives a new row its primary key before insert so every driver,
// including sqlite, gets the same uuid behaviour.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
