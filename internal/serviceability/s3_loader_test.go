package serviceability

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	keys    []string
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(params.Key)
	f.keys = append(f.keys, key)

	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

// mockLoader is a Loader driven by a function.
type mockLoader struct {
	loadFunc func(ctx context.Context, path string) (PincodeSet, error)
}

func (m *mockLoader) Load(ctx context.Context, path string) (PincodeSet, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx, path)
	}
	return nil, errors.New("not implemented")
}

func TestS3Loader_Load(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{
		"serviceability/pincodes.gz": gzipLines(t, []string{"560001", "110001"}),
		"serviceability/broken.gz":   []byte("not gzip"),
	}}
	loader := newS3Loader(client, "storefront-config", zerolog.Nop())

	t.Run("success", func(t *testing.T) {
		set, err := loader.Load(context.Background(), "serviceability/pincodes.gz")
		require.NoError(t, err)
		assert.Equal(t, 2, set.Size())
		assert.True(t, set.Contains("110001"))
	})

	t.Run("missing object", func(t *testing.T) {
		set, err := loader.Load(context.Background(), "serviceability/other.gz")
		assert.Error(t, err)
		assert.Nil(t, set)
		assert.Contains(t, err.Error(), "bucket=storefront-config")
	})

	t.Run("corrupt object", func(t *testing.T) {
		set, err := loader.Load(context.Background(), "serviceability/broken.gz")
		assert.Error(t, err)
		assert.Nil(t, set)
	})
}

func TestFallbackLoader_S3Success(t *testing.T) {
	s3Loader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) (PincodeSet, error) {
			assert.Equal(t, "serviceability/pincodes.gz", path, "S3 key should have prefix and base name")
			return NewMapPincodeSet("560001"), nil
		},
	}
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) (PincodeSet, error) {
			t.Error("file loader should not be called when S3 succeeds")
			return nil, errors.New("should not be called")
		},
	}

	fallback := NewFallbackLoader(s3Loader, fileLoader, "serviceability/", zerolog.Nop())

	set, err := fallback.Load(context.Background(), "data/pincodes.gz")
	require.NoError(t, err)
	assert.True(t, set.Contains("560001"))
}

func TestFallbackLoader_S3FailsFallsBackToLocal(t *testing.T) {
	s3Loader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) (PincodeSet, error) {
			return nil, errors.New("S3 connection failed")
		},
	}
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) (PincodeSet, error) {
			assert.Equal(t, "data/pincodes.gz", path, "local path should be used as-is")
			return NewMapPincodeSet("110001"), nil
		},
	}

	fallback := NewFallbackLoader(s3Loader, fileLoader, "serviceability/", zerolog.Nop())

	set, err := fallback.Load(context.Background(), "data/pincodes.gz")
	require.NoError(t, err)
	assert.True(t, set.Contains("110001"))
}

func TestFallbackLoader_LocalOnly(t *testing.T) {
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) (PincodeSet, error) {
			return NewMapPincodeSet("400001"), nil
		},
	}

	fallback := NewFallbackLoader(nil, fileLoader, "serviceability/", zerolog.Nop())

	set, err := fallback.Load(context.Background(), "data/pincodes.gz")
	require.NoError(t, err)
	assert.True(t, set.Contains("400001"))
}

func TestFallbackLoader_BothFail(t *testing.T) {
	s3Loader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) (PincodeSet, error) {
			return nil, errors.New("S3 error")
		},
	}
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) (PincodeSet, error) {
			return nil, errors.New("file not found")
		},
	}

	fallback := NewFallbackLoader(s3Loader, fileLoader, "serviceability/", zerolog.Nop())

	set, err := fallback.Load(context.Background(), "data/pincodes.gz")
	assert.Error(t, err)
	assert.Nil(t, set)
	assert.Contains(t, err.Error(), "file not found")
}
