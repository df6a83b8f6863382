package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/scrubbe-dev/incident-service/internal/domain"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: incidentTicketIDConstraint}
	other := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "users_email_lower_key"}
	fk := &pgconn.PgError{Code: "23503", ConstraintName: incidentTicketIDConstraint}

	assert.True(t, isUniqueViolation(dup, incidentTicketIDConstraint))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", dup), incidentTicketIDConstraint))
	assert.True(t, isUniqueViolation(other, ""))
	assert.False(t, isUniqueViolation(other, incidentTicketIDConstraint))
	assert.False(t, isUniqueViolation(fk, incidentTicketIDConstraint))
	assert.False(t, isUniqueViolation(errors.New("boom"), ""))
	assert.False(t, isUniqueViolation(nil, ""))
}

func TestActionStrings(t *testing.T) {
	assert.Empty(t, actionStrings(nil))
	assert.Equal(t, []string{"BLOCK_IP", "MONITOR"}, actionStrings([]domain.RecommendedAction{domain.ActionBlockIP, domain.ActionMonitor}))
}
