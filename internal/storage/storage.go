package storage

import (
	"errors"

	"deviationScope/internal/model"
)

// ErrDuplicateRecord is returned when an append-only record id already exists.
var ErrDuplicateRecord = errors.New("record already stored")

// Storage defines a sink for log records.
type Storage interface {
	PutLogBatch(logs []model.LogRecord) error
}
