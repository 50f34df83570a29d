package store

import "errors"

var (
	ErrInvalidConfig    = errors.New("store: invalid configuration")
	ErrInvalidStoreType = errors.New("store: invalid store type")
	ErrInvalidID        = errors.New("store: invalid session id")
	ErrClosed           = errors.New("store: closed")
)
