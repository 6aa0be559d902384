package s3_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	s3aws "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dealqueue/core/storage"
	"github.com/dmitrymomot/dealqueue/integration/storage/s3"
)

type mockS3Client struct {
	mock.Mock
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3aws.PutObjectInput, _ ...func(*s3aws.Options)) (*s3aws.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3aws.PutObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockS3Client) HeadObject(ctx context.Context, params *s3aws.HeadObjectInput, _ ...func(*s3aws.Options)) (*s3aws.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3aws.HeadObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockS3Client) DeleteObject(ctx context.Context, params *s3aws.DeleteObjectInput, _ ...func(*s3aws.Options)) (*s3aws.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3aws.DeleteObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func newStorage(t *testing.T, client s3.S3Client, cfg s3.Config) *s3.S3Storage {
	t.Helper()
	if cfg.Bucket == "" {
		cfg.Bucket = "reports"
	}
	if cfg.Region == "" {
		cfg.Region = "eu-west-1"
	}
	store, err := s3.New(context.Background(), cfg, s3.WithS3Client(client))
	require.NoError(t, err)
	return store
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()
	_, err := s3.New(context.Background(), s3.Config{Region: "eu-west-1"})
	assert.ErrorIs(t, err, storage.ErrInvalidConfig)
	assert.False(t, s3.Config{}.Enabled())
}

func TestPut(t *testing.T) {
	t.Parallel()

	t.Run("uploads and returns url", func(t *testing.T) {
		t.Parallel()
		client := &mockS3Client{}
		client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3aws.PutObjectInput) bool {
			body, _ := io.ReadAll(in.Body)
			return *in.Bucket == "reports" &&
				*in.Key == "deal_summary/42.pdf" &&
				*in.ContentType == "application/pdf" &&
				string(body) == "%PDF"
		})).Return(&s3aws.PutObjectOutput{}, nil).Once()

		store := newStorage(t, client, s3.Config{})
		url, err := store.Put(context.Background(), "/deal_summary/42.pdf", "application/pdf", strings.NewReader("%PDF"))
		require.NoError(t, err)
		assert.Equal(t, "https://reports.s3.eu-west-1.amazonaws.com/deal_summary/42.pdf", url)
		client.AssertExpectations(t)
	})

	t.Run("rejects traversal", func(t *testing.T) {
		t.Parallel()
		store := newStorage(t, &mockS3Client{}, s3.Config{})
		_, err := store.Put(context.Background(), "../etc/passwd", "text/plain", strings.NewReader(""))
		assert.ErrorIs(t, err, storage.ErrInvalidPath)
	})

	t.Run("classifies api errors", func(t *testing.T) {
		t.Parallel()
		client := &mockS3Client{}
		client.On("PutObject", mock.Anything, mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}).Once()

		store := newStorage(t, client, s3.Config{})
		_, err := store.Put(context.Background(), "a.csv", "text/csv", strings.NewReader("x"))
		assert.ErrorIs(t, err, storage.ErrAccessDenied)
	})

	t.Run("classifies context errors", func(t *testing.T) {
		t.Parallel()
		client := &mockS3Client{}
		client.On("PutObject", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded).Once()

		store := newStorage(t, client, s3.Config{})
		_, err := store.Put(context.Background(), "a.csv", "text/csv", strings.NewReader("x"))
		assert.ErrorIs(t, err, storage.ErrOperationTimeout)
	})
}

func TestExistsAndDelete(t *testing.T) {
	t.Parallel()

	client := &mockS3Client{}
	client.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3aws.HeadObjectInput) bool {
		return *in.Key == "present.pdf"
	})).Return(&s3aws.HeadObjectOutput{}, nil)
	client.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3aws.HeadObjectInput) bool {
		return *in.Key == "missing.pdf"
	})).Return(nil, errors.New("not found"))
	client.On("DeleteObject", mock.Anything, mock.Anything).
		Return(nil, &types.NoSuchBucket{}).Once()

	store := newStorage(t, client, s3.Config{})
	assert.True(t, store.Exists(context.Background(), "present.pdf"))
	assert.False(t, store.Exists(context.Background(), "missing.pdf"))
	assert.ErrorIs(t, store.Delete(context.Background(), "present.pdf"), storage.ErrBucketNotFound)
}

func TestURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  s3.Config
		want string
	}{
		{"aws virtual hosted", s3.Config{}, "https://reports.s3.eu-west-1.amazonaws.com/r/1.pdf"},
		{"aws path style", s3.Config{ForcePathStyle: true}, "https://s3.eu-west-1.amazonaws.com/reports/r/1.pdf"},
		{"custom base url", s3.Config{BaseURL: "https://cdn.example.com/"}, "https://cdn.example.com/r/1.pdf"},
		{"minio path style", s3.Config{Endpoint: "http://localhost:9000", ForcePathStyle: true}, "http://localhost:9000/reports/r/1.pdf"},
		{"endpoint virtual hosted", s3.Config{Endpoint: "https://spaces.example.com"}, "https://reports.spaces.example.com/r/1.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := newStorage(t, &mockS3Client{}, tt.cfg)
			assert.Equal(t, tt.want, store.URL("/r/1.pdf"))
		})
	}
}
