// Package domain holds the typed identifiers and enumerations shared across
// modules. Identifiers are store-assigned positive integers.
package domain

import (
	"strconv"
	"strings"

	dErrors "auditflow/pkg/domain-errors"
)

// UserID identifies a row in the users table.
type UserID int64

// AuditID identifies a row in the audits table.
type AuditID int64

func (id UserID) IsNil() bool    { return id <= 0 }
func (id UserID) String() string { return strconv.FormatInt(int64(id), 10) }

func (id AuditID) IsNil() bool    { return id <= 0 }
func (id AuditID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseUserID parses a decimal user identifier.
func ParseUserID(s string) (UserID, error) {
	n, err := parsePositive(s)
	if err != nil {
		return 0, err
	}
	return UserID(n), nil
}

// ParseAuditID parses a decimal audit identifier, typically a path segment.
func ParseAuditID(s string) (AuditID, error) {
	n, err := parsePositive(s)
	if err != nil {
		return 0, err
	}
	return AuditID(n), nil
}

func parsePositive(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeValidation, "identifier is required")
	}
	if len(s) > 19 {
		return 0, dErrors.New(dErrors.CodeValidation, "identifier is too long")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, dErrors.New(dErrors.CodeValidation, "identifier must be numeric")
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "identifier must be a positive integer")
	}
	return n, nil
}
