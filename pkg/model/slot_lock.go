package model

import "time"

// SlotLock is an advisory lock preventing concurrent block creation for the
// same vehicle and date. The deterministic _id makes the second acquirer fail
// with a duplicate key error.
type SlotLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
