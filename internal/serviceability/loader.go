package serviceability

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// fileLoader implements Loader for gzipped files on local disk.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based pincode loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "pincode-loader").Logger(),
	}
}

// Load reads a gzipped pincode file from disk.
func (l *fileLoader) Load(ctx context.Context, path string) (PincodeSet, error) {
	l.logger.Info().Str("file", path).Msg("loading pincode file")

	file, err := os.Open(path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to open pincode file")
		return nil, fmt.Errorf("failed to open pincode file %s: %w", path, err)
	}
	defer file.Close()

	set, err := readPincodes(ctx, file)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to read pincode file")
		return nil, fmt.Errorf("failed to read pincode file %s: %w", path, err)
	}

	l.logger.Info().
		Str("file", path).
		Int("pincodes_loaded", set.Size()).
		Msg("pincode file loaded successfully")

	return set, nil
}

// readPincodes decompresses r and collects one pincode per line.
func readPincodes(ctx context.Context, r io.Reader) (*mapPincodeSet, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	set := newMapPincodeSet()

	scanner := bufio.NewScanner(gzipReader)
	lineCount := 0
	for scanner.Scan() {
		if lineCount%100_000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		set.Add(scanner.Text())
		lineCount++
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return set, nil
}
