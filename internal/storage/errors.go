package storage

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSchemaConflict is returned when the existing database schema is
	// incompatible with the store's expected layout. Always fatal,
	// detected before any write.
	ErrSchemaConflict = errors.New("store schema conflict")

	// ErrWriteFailure is returned when a batch load cannot commit. The
	// transaction rolls back, so the batch either commits whole or not
	// at all.
	ErrWriteFailure = errors.New("store write failure")

	// ErrIntegrity is returned when post-load verification finds that
	// the persisted rows do not match the in-memory batch.
	ErrIntegrity = errors.New("store integrity violation")
)
