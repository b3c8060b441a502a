package repositories

import (
	"errors"
	"fmt"

	"beer-and-hike/backend/internal/models/gorm"
)

var (
	// ErrStorageUnavailable wraps any failure of the store during an upsert
	ErrStorageUnavailable = errors.New("spatial store unavailable")

	// ErrInvalidRecord is returned before touching the store when a record
	// lacks an external id or name, or has coordinates outside WGS84 bounds
	ErrInvalidRecord = errors.New("invalid record")
)

func validateRecord(externalID, name string, loc gorm.GeoPoint) error {
	if externalID == "" {
		return fmt.Errorf("%w: missing external id", ErrInvalidRecord)
	}
	if name == "" {
		return fmt.Errorf("%w: missing name for %s", ErrInvalidRecord, externalID)
	}
	if !loc.Valid() {
		return fmt.Errorf("%w: coordinates out of range for %s: %s", ErrInvalidRecord, externalID, loc)
	}
	return nil
}

func storageError(op, externalID string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrStorageUnavailable, op, externalID, err)
}
