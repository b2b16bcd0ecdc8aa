package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, want: true},
		{
			name: "duplicate order number",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"},
			want: true,
		},
		{
			name: "other unique violation",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "customers_email_key"},
			want: false,
		},
		{
			name: "wrapped",
			err:  fmt.Errorf("failed to create order: %w", &pgconn.PgError{Code: "40P01"}),
			want: true,
		},
		{name: "check violation", err: &pgconn.PgError{Code: "23514"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
