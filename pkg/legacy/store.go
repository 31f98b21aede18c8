// Package legacy reads and writes the flat key-value store the school records
// lived in before the relational store. Values are opaque strings, usually
// JSON documents, and keys keep their insertion order.
package legacy

import (
	"context"
	"errors"
	"fmt"
)

// Well-known keys.
const (
	KeyAcademicYears = "academicYears"
	KeyStudents      = "students"
	KeyTeachers      = "teachers"
	KeyClasses       = "classes"
	KeyEnrollments   = "enrollments"
	KeyStudentFees   = "studentFees"
	KeyExtraFees     = "studentsExtraFees"
	KeyServices      = "studentsServices"
	KeyPayments      = "studentPayments"
	KeyActiveYearID  = "activeYearId"
	KeySidebarHidden = "sidebarHidden"
)

// DefaultActiveYearID is assumed when no active year was ever recorded.
const DefaultActiveYearID = "2024-2025"

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("legacy store closed")

// Store is an ordered string key-value store.
type Store interface {
	// Keys lists every key in insertion order.
	Keys(ctx context.Context) ([]string, error)
	// Get returns the raw value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes a value. Existing keys keep their position.
	Set(ctx context.Context, key, value string) error
	// Remove deletes a key; missing keys are ignored.
	Remove(ctx context.Context, key string) error
	Close() error
}

// KeyForYear derives the year-scoped variant of a base key.
func KeyForYear(base, yearID string) string {
	return fmt.Sprintf("%s__%s", base, yearID)
}

// DefaultKeepKeys are the UI state keys that survive a purge.
func DefaultKeepKeys() []string {
	return []string{KeySidebarHidden, KeyActiveYearID}
}
