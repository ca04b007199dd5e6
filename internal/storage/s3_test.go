package storage

import (
	"context"
	"testing"

	"github.com/vidtube/backend/internal/config"
)

func TestS3PublicBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.ObjectStoreConfig
		want string
	}{
		{
			name: "configured base url",
			cfg:  config.ObjectStoreConfig{Bucket: "media", Region: "eu-west-1", Endpoint: "http://localhost:9000", PublicBaseURL: "https://cdn.example.com/"},
			want: "https://cdn.example.com",
		},
		{
			name: "custom endpoint",
			cfg:  config.ObjectStoreConfig{Bucket: "media", Region: "us-east-1", Endpoint: "http://localhost:9000/"},
			want: "http://localhost:9000/media",
		},
		{
			name: "endpoint without scheme",
			cfg:  config.ObjectStoreConfig{Bucket: "media", Region: "us-east-1", Endpoint: "storage.internal:9000", UseSSL: true},
			want: "https://storage.internal:9000/media",
		},
		{
			name: "aws",
			cfg:  config.ObjectStoreConfig{Bucket: "media", Region: "eu-west-1"},
			want: "https://media.s3.eu-west-1.amazonaws.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s3PublicBaseURL(tt.cfg); got != tt.want {
				t.Fatalf("expected %q got %q", tt.want, got)
			}
		})
	}
}

func TestNewS3StorageAlwaysHasPublicBaseURL(t *testing.T) {
	store, err := NewS3Storage(context.Background(), config.ObjectStoreConfig{
		Bucket:    "media",
		Region:    "us-east-1",
		AccessKey: "key",
		SecretKey: "secret",
	})
	if err != nil {
		t.Fatalf("NewS3Storage: %v", err)
	}
	if store.baseURL != "https://media.s3.us-east-1.amazonaws.com" {
		t.Fatalf("unexpected base url %q", store.baseURL)
	}
}
