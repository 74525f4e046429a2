package record

import "errors"

var (
	ErrRecordNotFound      = errors.New("prescription record not found")
	ErrDuplicateTrackingID = errors.New("tracking ID already exists")
	ErrInvalidTransition   = errors.New("record is already in a terminal status")
	ErrInvalidStatus       = errors.New("invalid record status")
)
