package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrSessionNotFound = errors.New("map session not found")
	ErrSessionLimit    = errors.New("map session limit reached")
	ErrAlreadyMounted  = errors.New("renderer already mounted")
	ErrNotMounted      = errors.New("renderer not mounted")
	ErrEngineReleased  = errors.New("map engine released")
	ErrInvalidPress    = errors.New("invalid press payload")
)
