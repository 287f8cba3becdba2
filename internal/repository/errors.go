package repository

import (
	"errors"
	"strings"

	"github.com/jobtalk/jobtalk-backend/internal/common"
	"gorm.io/gorm"
)

// isDuplicateKey reports whether err is a unique constraint violation.
// gorm translates it when TranslateError is on; the string checks cover
// connections opened without it.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "Duplicate entry") || // mysql
		strings.Contains(msg, "duplicate key value") // postgres
}

// notFoundAs maps gorm.ErrRecordNotFound to the given business error
func notFoundAs(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

// conflictOr maps duplicate key errors to common.ErrConflict
func conflictOr(err error) error {
	if isDuplicateKey(err) {
		return common.ErrConflict
	}
	return err
}
