// Package domain contains the marketplace entities shared by all modules.
package domain

import "errors"

// ErrInvalidID is returned when a document identifier cannot be parsed by the store.
var ErrInvalidID = errors.New("invalid id")
