package serviceability

import (
	"context"
	"fmt"

	"storefront/internal/config"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// setChecker implements Checker against a loaded PincodeSet.
type setChecker struct {
	set    PincodeSet
	logger zerolog.Logger
}

// NewChecker builds a Checker from configuration. When the feature is
// disabled every pincode is accepted and nothing is loaded.
func NewChecker(ctx context.Context, cfg config.ServiceabilityConfig, logger zerolog.Logger) (Checker, error) {
	logger = logger.With().Str("component", "serviceability").Logger()

	if !cfg.Enabled {
		logger.Info().Msg("serviceability check disabled, all pincodes accepted")
		return AllowAll(), nil
	}

	var s3 Loader
	if cfg.S3.Enabled {
		var err error
		s3, err = NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialise S3 loader, using local file system only")
			s3 = nil
		}
	}

	loader := NewFallbackLoader(s3, NewFileLoader(logger), cfg.S3.Prefix, logger)

	return NewCheckerFromLoader(ctx, loader, cfg.FilePath, logger)
}

// NewCheckerFromLoader loads path with loader and checks against the result.
func NewCheckerFromLoader(ctx context.Context, loader Loader, path string, logger zerolog.Logger) (Checker, error) {
	set, err := loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load serviceable pincodes: %w", err)
	}

	if set.Size() == 0 {
		logger.Warn().Str("file", path).Msg("serviceable pincode list is empty, every order will be rejected")
	}

	return NewSetChecker(set, logger), nil
}

// NewSetChecker checks pincodes against set.
func NewSetChecker(set PincodeSet, logger zerolog.Logger) Checker {
	return &setChecker{
		set:    set,
		logger: logger,
	}
}

func (c *setChecker) Check(ctx context.Context, pincode string) error {
	if c.set == nil || !c.set.Contains(pincode) {
		c.logger.Debug().Str("pincode", pincode).Msg("pincode not serviceable")
		return model.ErrPincodeNotServiceable
	}
	return nil
}

func (c *setChecker) Close() error {
	c.set = nil
	return nil
}

type allowAll struct{}

// AllowAll returns a Checker that accepts every pincode.
func AllowAll() Checker {
	return allowAll{}
}

func (allowAll) Check(context.Context, string) error { return nil }
func (allowAll) Close() error                        { return nil }
