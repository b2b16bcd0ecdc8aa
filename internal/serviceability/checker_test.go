package serviceability

import (
	"context"
	"path/filepath"
	"testing"

	"storefront/internal/config"
	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChecker_Disabled(t *testing.T) {
	checker, err := NewChecker(context.Background(), config.ServiceabilityConfig{Enabled: false}, zerolog.Nop())
	require.NoError(t, err)

	assert.NoError(t, checker.Check(context.Background(), "000000"))
	assert.NoError(t, checker.Close())
}

func TestNewChecker_LocalFile(t *testing.T) {
	filePath := createTestPincodeFile(t, "pincodes.gz", []string{"560001", "110001"})

	checker, err := NewChecker(context.Background(), config.ServiceabilityConfig{
		Enabled:  true,
		FilePath: filePath,
	}, zerolog.Nop())
	require.NoError(t, err)

	tests := []struct {
		name    string
		pincode string
		wantErr bool
	}{
		{name: "listed", pincode: "560001"},
		{name: "listed with spaces", pincode: " 110 001 "},
		{name: "not listed", pincode: "400001", wantErr: true},
		{name: "empty", pincode: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checker.Check(context.Background(), tt.pincode)
			if tt.wantErr {
				assert.ErrorIs(t, err, model.ErrPincodeNotServiceable)
				assert.True(t, model.HasCode(err, model.ErrCodePincodeNotServiceable))
				return
			}
			assert.NoError(t, err)
		})
	}

	require.NoError(t, checker.Close())
	assert.ErrorIs(t, checker.Check(context.Background(), "560001"), model.ErrPincodeNotServiceable)
}

func TestNewChecker_MissingFile(t *testing.T) {
	checker, err := NewChecker(context.Background(), config.ServiceabilityConfig{
		Enabled:  true,
		FilePath: filepath.Join(t.TempDir(), "missing.gz"),
	}, zerolog.Nop())

	assert.Error(t, err)
	assert.Nil(t, checker)
}
