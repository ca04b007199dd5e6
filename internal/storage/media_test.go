package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	removed []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return "http://media.test/" + key, nil
}

func (f *fakeObjectStore) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestMediaStoreStoreUploadsAndRemovesLocalFile(t *testing.T) {
	objects := newFakeObjectStore()
	var ops []string
	media := NewMediaStore(objects, func(op string, kind Kind, err error) {
		ops = append(ops, op+":"+string(kind))
	})

	path := writeTemp(t, "clip.MP4", "video-bytes")
	ref, err := media.Store(context.Background(), path, "video/mp4", KindVideo)
	if err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	if !strings.HasPrefix(ref.ProviderID, "videos/") || !strings.HasSuffix(ref.ProviderID, ".mp4") {
		t.Fatalf("unexpected provider id %q", ref.ProviderID)
	}
	if ref.URL != "http://media.test/"+ref.ProviderID {
		t.Fatalf("unexpected url %q", ref.URL)
	}
	if ref.SecureURL != "https://media.test/"+ref.ProviderID {
		t.Fatalf("unexpected secure url %q", ref.SecureURL)
	}
	if got := string(objects.objects[ref.ProviderID]); got != "video-bytes" {
		t.Fatalf("unexpected uploaded content %q", got)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected local file to be removed, stat err=%v", err)
	}
	if len(ops) != 1 || ops[0] != "upload:video" {
		t.Fatalf("unexpected observed ops %v", ops)
	}
}

func TestMediaStoreStoreRemovesLocalFileOnFailure(t *testing.T) {
	objects := newFakeObjectStore()
	objects.putErr = errors.New("provider down")
	media := NewMediaStore(objects, nil)

	path := writeTemp(t, "avatar.png", "png")
	if _, err := media.Store(context.Background(), path, "image/png", KindImage); err == nil {
		t.Fatal("expected upload failure")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected local file to be removed, stat err=%v", err)
	}
}

func TestMediaStoreStoreRequiresPath(t *testing.T) {
	media := NewMediaStore(newFakeObjectStore(), nil)
	if _, err := media.Store(context.Background(), "", "image/png", KindImage); !errors.Is(err, ErrNoFile) {
		t.Fatalf("expected ErrNoFile, got %v", err)
	}
}

func TestMediaStoreDelete(t *testing.T) {
	objects := newFakeObjectStore()
	media := NewMediaStore(objects, nil)

	if err := media.Delete(context.Background(), "", KindImage); err != nil {
		t.Fatalf("expected empty id to be a no-op, got %v", err)
	}
	if len(objects.removed) != 0 {
		t.Fatalf("expected no provider calls, got %v", objects.removed)
	}

	if err := media.Delete(context.Background(), "images/a.png", KindImage); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(objects.removed) != 1 || objects.removed[0] != "images/a.png" {
		t.Fatalf("unexpected removals %v", objects.removed)
	}
}

func TestStageUpload(t *testing.T) {
	dir := t.TempDir()

	staged, err := StageUpload(dir, "Holiday.JPG", "image/jpeg", bytes.NewBufferString("12345"), 10)
	if err != nil {
		t.Fatalf("StageUpload returned error: %v", err)
	}
	defer staged.Discard()

	if !staged.Present() || staged.Size != 5 {
		t.Fatalf("unexpected staged file %+v", staged)
	}
	if filepath.Ext(staged.Path) != ".jpg" {
		t.Fatalf("expected extension to be preserved, got %q", staged.Path)
	}

	_, err = StageUpload(dir, "big.mp4", "video/mp4", bytes.NewBufferString("0123456789ABC"), 10)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected oversized upload to leave nothing behind, found %d entries", len(entries))
	}
}
