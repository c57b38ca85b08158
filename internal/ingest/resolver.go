package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/docquery/docquery/internal/storage"
)

// ErrNotFound is returned when no encoding variant of a key matches a
// stored object.
var ErrNotFound = errors.New("storage object not found")

// KeyResolver maps a nominal storage key, whose URL encoding may have
// been mangled upstream, to the key that actually exists in the bucket.
type KeyResolver struct {
	store storage.Storage
}

func NewKeyResolver(store storage.Storage) *KeyResolver {
	return &KeyResolver{store: store}
}

// Resolve tries key variants in a fixed order and returns the first one
// the store confirms: the literal key, the plus-decoded key, the
// plus-re-encoded key, the percent-re-encoded key (slashes kept), then
// a listing of the parent prefix matched on the filename component.
func (r *KeyResolver) Resolve(ctx context.Context, bucket, key string) (string, error) {
	variants := []string{key}

	decoded := unquotePlus(key)
	if decoded != key {
		variants = append(variants, decoded)
	}

	plusEncoded := quotePlus(decoded)
	if plusEncoded != key && plusEncoded != decoded {
		variants = append(variants, plusEncoded)
	}

	pctEncoded := quotePath(decoded)
	if pctEncoded != key && !contains(variants, pctEncoded) {
		variants = append(variants, pctEncoded)
	}

	for _, v := range variants {
		if err := r.store.Head(ctx, bucket, v); err == nil {
			if v != key {
				slog.Info("resolved storage key through encoding variant", "requested", key, "resolved", v)
			}
			return v, nil
		} else if !errors.Is(err, storage.ErrObjectNotFound) {
			slog.Warn("head failed for key variant", "key", v, "error", err)
		}
	}

	// None of the direct variants exist; scan the parent prefix for an
	// object whose filename matches once +/%20 are normalised to spaces.
	if resolved, ok := r.resolveByListing(ctx, bucket, key); ok {
		return resolved, nil
	}

	return "", fmt.Errorf("bucket %q key %q (tried %s): %w",
		bucket, key, strings.Join(variants, ", "), ErrNotFound)
}

func (r *KeyResolver) resolveByListing(ctx context.Context, bucket, key string) (string, bool) {
	prefix := parentPrefix(key)
	objects, err := r.store.List(ctx, bucket, prefix)
	if err != nil {
		slog.Error("listing parent prefix failed", "prefix", prefix, "error", err)
		return "", false
	}

	want := normalizeFilename(filenameOf(key))
	for _, obj := range objects {
		if normalizeFilename(filenameOf(obj.Key)) != want {
			continue
		}
		if err := r.store.Head(ctx, bucket, obj.Key); err != nil {
			slog.Warn("matched object is not accessible", "key", obj.Key, "error", err)
			continue
		}
		slog.Info("resolved storage key by prefix listing", "requested", key, "resolved", obj.Key)
		return obj.Key, true
	}
	return "", false
}

// unquotePlus decodes percent escapes and turns + into spaces, leaving
// the input untouched when it is not valid percent-encoding.
func unquotePlus(key string) string {
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		return key
	}
	return decoded
}

// quotePlus re-encodes with spaces as +, the form-encoding convention.
func quotePlus(key string) string {
	return url.QueryEscape(key)
}

// quotePath percent-encodes but keeps slashes, the path convention.
func quotePath(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func parentPrefix(key string) string {
	idx := strings.LastIndex(key, "/")
	if idx < 0 {
		return ""
	}
	return key[:idx+1]
}

func filenameOf(key string) string {
	idx := strings.LastIndex(key, "/")
	return key[idx+1:]
}

func normalizeFilename(name string) string {
	name = strings.ReplaceAll(name, "+", " ")
	name = strings.ReplaceAll(name, "%20", " ")
	return name
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
