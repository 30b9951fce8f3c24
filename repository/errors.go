package repository

import (
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// postgres unique_violation
const pqUniqueViolation = "23505"

// IsDuplicateKey reports whether err is a primary key or unique constraint conflict.
// The pgx and sqlite dialectors translate conflicts into gorm.ErrDuplicatedKey; the
// lib/pq driver surfaces *pq.Error with SQLSTATE 23505.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqUniqueViolation
	}
	return false
}
