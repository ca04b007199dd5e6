package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
)

// ObjectStore is the narrow surface of the hosting provider used by the media store.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
}

// Kind groups assets under a key prefix.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// ErrNoFile is returned when Store is called without a staged file.
var ErrNoFile = errors.New("no local file to upload")

// Observer is notified of each provider operation, e.g. to count outcomes.
type Observer func(operation string, kind Kind, err error)

// MediaStore uploads staged local files to the object store and removes them afterwards.
type MediaStore struct {
	objects ObjectStore
	observe Observer
}

// NewMediaStore wraps an ObjectStore. observe may be nil.
func NewMediaStore(objects ObjectStore, observe Observer) *MediaStore {
	if objects == nil {
		panic("storage: object store must not be nil")
	}
	if observe == nil {
		observe = func(string, Kind, error) {}
	}
	return &MediaStore{objects: objects, observe: observe}
}

// Store uploads the file at localPath and returns a reference to the hosted copy.
// The local file is removed whether or not the upload succeeds.
func (m *MediaStore) Store(ctx context.Context, localPath, contentType string, kind Kind) (models.MediaRef, error) {
	if strings.TrimSpace(localPath) == "" {
		return models.MediaRef{}, ErrNoFile
	}
	defer func() {
		if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.FromContext(ctx).Warn("failed to remove staged file", slog.String("path", localPath), slog.Any("error", err))
		}
	}()

	f, err := os.Open(localPath)
	if err != nil {
		return models.MediaRef{}, fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return models.MediaRef{}, fmt.Errorf("stat staged file: %w", err)
	}

	key := fmt.Sprintf("%ss/%s%s", kind, uuid.NewString(), strings.ToLower(filepath.Ext(localPath)))
	location, err := m.objects.Put(ctx, key, f, info.Size(), contentType)
	m.observe("upload", kind, err)
	if err != nil {
		return models.MediaRef{}, fmt.Errorf("upload %s: %w", kind, err)
	}

	return models.MediaRef{
		URL:        location,
		SecureURL:  secureURL(location),
		ProviderID: key,
	}, nil
}

// Delete removes a previously stored asset. An empty id is a no-op.
func (m *MediaStore) Delete(ctx context.Context, providerID string, kind Kind) error {
	if strings.TrimSpace(providerID) == "" {
		return nil
	}
	err := m.objects.Remove(ctx, providerID)
	m.observe("delete", kind, err)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, providerID, err)
	}
	return nil
}

// DeleteQuietly removes an asset and only logs failures. Used when cleaning up
// after the database no longer references the asset.
func (m *MediaStore) DeleteQuietly(ctx context.Context, ref models.MediaRef, kind Kind) {
	if err := m.Delete(ctx, ref.ProviderID, kind); err != nil {
		logging.FromContext(ctx).Warn("failed to delete media asset",
			slog.String("publicId", ref.ProviderID),
			slog.Any("error", err),
		)
	}
}

func secureURL(location string) string {
	if rest, ok := strings.CutPrefix(location, "http://"); ok {
		return "https://" + rest
	}
	return location
}
