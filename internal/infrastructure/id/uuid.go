package id

import "github.com/google/uuid"

// UUIDGenerator issues random version 4 identifiers.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }
