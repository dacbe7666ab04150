package approvalflow

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies timestamps for record creation and status changes
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface
type ClockFunc func() time.Time

// Now returns the function's time
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock returns the wall clock in UTC
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// IDGenerator assigns submission ids
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a function to the IDGenerator interface
type IDGeneratorFunc func() string

// NewID returns the function's id
func (f IDGeneratorFunc) NewID() string {
	return f()
}

// UUIDGenerator produces random v4 UUIDs
type UUIDGenerator struct{}

// NewID returns a fresh UUID string
func (UUIDGenerator) NewID() string {
	return uuid.New().String()
}
