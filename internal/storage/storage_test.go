package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestDetectImageSniffsContent(t *testing.T) {
	img, err := DetectImage(pngHeader)
	if err != nil {
		t.Fatalf("DetectImage: %v", err)
	}
	if img.ContentType != "image/png" || img.Extension != ".png" {
		t.Fatalf("unexpected image %q %q", img.ContentType, img.Extension)
	}

	if _, err := DetectImage([]byte("plain text pretending to be an image")); !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage for text, got %v", err)
	}
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`)
	if _, err := DetectImage(svg); !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected svg to be rejected, got %v", err)
	}
}

func TestInlineStoreBuildsDataURL(t *testing.T) {
	url, err := InlineStore{}.Save(context.Background(), uuid.New(), Image{Data: []byte("abc"), ContentType: "image/png"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if url != "data:image/png;base64,YWJj" {
		t.Fatalf("unexpected data url %q", url)
	}
}

type fakeObjects struct {
	puts     map[string]string
	removed  []string
	prefixes []string
}

func (f *fakeObjects) PutObject(_ context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	if f.puts == nil {
		f.puts = map[string]string{}
	}
	f.puts[key] = contentType
	return nil
}

func (f *fakeObjects) RemoveObject(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	return nil
}

func (f *fakeObjects) RemovePrefix(_ context.Context, prefix string) error {
	f.prefixes = append(f.prefixes, prefix)
	return nil
}

func TestObjectStoreRoundTrip(t *testing.T) {
	objects := &fakeObjects{}
	store := NewObjectStore(objects)
	profileID := uuid.New()

	url, err := store.Save(context.Background(), profileID, Image{Data: pngHeader, ContentType: "image/png", Extension: ".png"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	key, ok := strings.CutPrefix(url, AssetRoutePrefix)
	if !ok {
		t.Fatalf("url %q missing asset prefix", url)
	}
	if !ValidAssetKey(key) {
		t.Fatalf("generated key %q should validate", key)
	}
	if objects.puts[key] != "image/png" {
		t.Fatalf("object not written with content type: %v", objects.puts)
	}

	if err := store.Remove(context.Background(), url); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := store.Remove(context.Background(), "data:image/png;base64,AAAA"); err != nil {
		t.Fatalf("Remove inline: %v", err)
	}
	if len(objects.removed) != 1 || objects.removed[0] != key {
		t.Fatalf("unexpected removals %v", objects.removed)
	}

	if err := store.RemoveProfile(context.Background(), profileID); err != nil {
		t.Fatalf("RemoveProfile: %v", err)
	}
	if len(objects.prefixes) != 1 || objects.prefixes[0] != "profile-assets/"+profileID.String()+"/" {
		t.Fatalf("unexpected prefix removal %v", objects.prefixes)
	}
}

func TestValidAssetKey(t *testing.T) {
	profileID := uuid.NewString()
	fileID := uuid.NewString()
	cases := []struct {
		key  string
		want bool
	}{
		{"profile-assets/" + profileID + "/" + fileID + ".png", true},
		{"profile-assets/" + profileID + "/" + fileID, false},
		{"profile-assets/" + profileID + "/../" + fileID + ".png", false},
		{"profile-assets/not-a-uuid/" + fileID + ".png", false},
		{"other/" + profileID + "/" + fileID + ".png", false},
		{"profile-assets/" + profileID + "/nested/" + fileID + ".png", false},
		{"profile-assets/" + profileID + "//" + fileID + ".png", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidAssetKey(tc.key); got != tc.want {
			t.Errorf("ValidAssetKey(%q) = %v, want %v", tc.key, got, tc.want)
		}
	}
}

func TestIsNoSuchKey(t *testing.T) {
	if IsNoSuchKey(nil) {
		t.Fatalf("nil is not a missing key")
	}
	if !IsNoSuchKey(errors.New("The specified key does not exist.")) {
		t.Fatalf("expected string fallback to match")
	}
	if IsNoSuchKey(errors.New("connection refused")) {
		t.Fatalf("unrelated error must not match")
	}
}
