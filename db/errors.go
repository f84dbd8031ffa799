package db

import "fmt"

// Common errors
var (
	ErrSnapshotNotFound   = fmt.Errorf("snapshot not found")
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrDatabaseConnection = fmt.Errorf("database connection error")
)
