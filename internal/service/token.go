package service

import "github.com/google/uuid"

// TokenGenerator produces opaque magic link tokens.
type TokenGenerator interface {
	Generate() (string, error)
}

// UUIDTokenGenerator issues random version 4 UUIDs (122 random bits).
type UUIDTokenGenerator struct{}

// Generate returns a new token.
func (UUIDTokenGenerator) Generate() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
