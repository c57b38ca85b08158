package ingest

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docquery/docquery/internal/storage"
)

// fakeStorage serves objects out of a map keyed by bucket/key.
type fakeStorage struct {
	objects map[string][]byte
	heads   []string
}

func newFakeStorage(keys ...string) *fakeStorage {
	fs := &fakeStorage{objects: make(map[string][]byte)}
	for _, k := range keys {
		fs.objects[k] = []byte("content of " + k)
	}
	return fs
}

func (f *fakeStorage) Put(key string, data []byte) {
	f.objects[key] = data
}

func (f *fakeStorage) Upload(_ context.Context, _, key string, data io.Reader, _ string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[key] = b
	return nil
}

func (f *fakeStorage) Download(_ context.Context, _, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) Head(_ context.Context, _, key string) error {
	f.heads = append(f.heads, key)
	if _, ok := f.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	return nil
}

func (f *fakeStorage) List(_ context.Context, _, prefix string) ([]storage.ObjectInfo, error) {
	var infos []storage.ObjectInfo
	for k, v := range f.objects {
		if strings.HasPrefix(k, prefix) {
			infos = append(infos, storage.ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return infos, nil
}

func (f *fakeStorage) Delete(_ context.Context, _, key string) error {
	delete(f.objects, key)
	return nil
}

func TestResolveLiteralKey(t *testing.T) {
	fs := newFakeStorage("uploads/u1/d1/report.pdf")
	r := NewKeyResolver(fs)

	key, err := r.Resolve(context.Background(), "docs", "uploads/u1/d1/report.pdf")

	require.NoError(t, err)
	assert.Equal(t, "uploads/u1/d1/report.pdf", key)
	// Literal hit means no further variants are probed.
	assert.Equal(t, []string{"uploads/u1/d1/report.pdf"}, fs.heads)
}

func TestResolveStoredWithLiteralSpace(t *testing.T) {
	// The event key arrives plus-encoded but the object was stored with
	// a literal space.
	fs := newFakeStorage("uploads/u1/d1/annual report.pdf")
	r := NewKeyResolver(fs)

	key, err := r.Resolve(context.Background(), "docs", "uploads/u1/d1/annual+report.pdf")

	require.NoError(t, err)
	assert.Equal(t, "uploads/u1/d1/annual report.pdf", key)
}

func TestResolveStoredPercentEncoded(t *testing.T) {
	// Stored percent-encoded, requested with a literal space.
	fs := newFakeStorage("uploads/u1/d1/annual%20report.pdf")
	r := NewKeyResolver(fs)

	key, err := r.Resolve(context.Background(), "docs", "uploads/u1/d1/annual report.pdf")

	require.NoError(t, err)
	assert.Equal(t, "uploads/u1/d1/annual%20report.pdf", key)
}

func TestResolveStoredPlusEncoded(t *testing.T) {
	// Stored plus-encoded, requested already decoded.
	fs := newFakeStorage("uploads/u1/d1/annual+report.pdf")
	r := NewKeyResolver(fs)

	key, err := r.Resolve(context.Background(), "docs", "uploads/u1/d1/annual report.pdf")

	require.NoError(t, err)
	assert.Equal(t, "uploads/u1/d1/annual+report.pdf", key)
}

func TestResolveByListingFallback(t *testing.T) {
	// Mixed encoding in the stored key that no direct variant can
	// reproduce; only the prefix listing finds it, matching filenames
	// once + and %20 are normalised to spaces.
	fs := newFakeStorage("uploads/u1/d1/annual+report%20v2.pdf")
	r := NewKeyResolver(fs)

	key, err := r.Resolve(context.Background(), "docs", "uploads/u1/d1/annual report v2.pdf")

	require.NoError(t, err)
	assert.Equal(t, "uploads/u1/d1/annual+report%20v2.pdf", key)
}

func TestResolveNotFoundListsVariants(t *testing.T) {
	fs := newFakeStorage()
	r := NewKeyResolver(fs)

	_, err := r.Resolve(context.Background(), "docs", "uploads/u1/d1/missing+file.pdf")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "uploads/u1/d1/missing+file.pdf")
	assert.Contains(t, err.Error(), "uploads/u1/d1/missing file.pdf")
}
