package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

type recordingUploader struct {
	uploads []UploadParams
	err     error
}

func (u *recordingUploader) Upload(_ context.Context, params UploadParams) error {
	u.uploads = append(u.uploads, params)
	return u.err
}

type recordingInvalidator struct {
	paths []string
}

func (i *recordingInvalidator) Invalidate(_ context.Context, paths []string) error {
	i.paths = append(i.paths, paths...)
	return nil
}

func fixedArchiver(u Uploader, i Invalidator) *Archiver {
	a := NewArchiver(u, i)
	a.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	a.newID = func() string { return "abc" }
	return a
}

func TestArchive(t *testing.T) {
	up := &recordingUploader{}
	inv := &recordingInvalidator{}

	id, err := fixedArchiver(up, inv).Archive(context.Background(), Card{
		Name:   "Zoë Smith",
		Wishes: "Happy birthday!",
		Data:   []byte("jpeg"),
	})
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if id != "abc" {
		t.Errorf("id = %q", id)
	}

	names := []string{up.uploads[0].Name, up.uploads[1].Name}
	if !reflect.DeepEqual(names, []string{"cards/abc.jpg", "latest.jpg"}) {
		t.Errorf("uploaded %v", names)
	}
	want := map[string]string{
		"id":     "abc",
		"name":   "Zo%C3%AB+Smith",
		"wishes": "Happy+birthday%21",
		"date":   "2024-05-01T12:00:00Z",
	}
	if !reflect.DeepEqual(up.uploads[0].Metadata, want) {
		t.Errorf("metadata = %v", up.uploads[0].Metadata)
	}
	if up.uploads[0].ContentType != "image/jpeg" {
		t.Errorf("content type = %q", up.uploads[0].ContentType)
	}
	if !reflect.DeepEqual(inv.paths, []string{"/latest.jpg"}) {
		t.Errorf("invalidated %v", inv.paths)
	}
}

func TestArchiveUploadFailure(t *testing.T) {
	up := &recordingUploader{err: errors.New("denied")}
	inv := &recordingInvalidator{}
	if _, err := fixedArchiver(up, inv).Archive(context.Background(), Card{Data: []byte("x")}); err == nil {
		t.Fatal("expected error")
	}
	if len(up.uploads) != 1 || len(inv.paths) != 0 {
		t.Errorf("expected to stop after the failed upload, got %d uploads, %v", len(up.uploads), inv.paths)
	}
}

func TestFileUploader(t *testing.T) {
	dir := t.TempDir()
	u := &FileUploader{Dir: dir}
	if err := u.Upload(context.Background(), UploadParams{Name: "cards/abc.jpg", Data: []byte("jpeg")}); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "cards", "abc.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "jpeg" {
		t.Errorf("got %q", data)
	}
}

func TestEntryFromMetadata(t *testing.T) {
	modified := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	e := entryFromMetadata("cards/abc.jpg", map[string]string{
		"id":     "abc",
		"name":   "Zo%C3%AB+Smith",
		"wishes": "100%",
		"date":   "2024-05-01T12:00:00Z",
	}, modified)

	if e.Name != "Zoë Smith" {
		t.Errorf("name = %q", e.Name)
	}
	if e.Wishes != "100%" {
		t.Errorf("malformed escapes should pass through, got %q", e.Wishes)
	}
	if !e.Date.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", e.Date)
	}

	e = entryFromMetadata("cards/old.jpg", nil, modified)
	if !e.Date.Equal(modified) {
		t.Errorf("expected fallback to modification time, got %v", e.Date)
	}
}

func TestFileReader(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	if err := (&FileUploader{Dir: dir}).Upload(ctx, UploadParams{Name: CardName("abc"), Data: []byte("jpeg")}); err != nil {
		t.Fatal(err)
	}
	r := &FileReader{Dir: dir}

	data, err := r.Read(ctx, CardName("abc"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "jpeg" {
		t.Errorf("got %q", data)
	}
	for _, name := range []string{CardName("missing"), "../outside.jpg"} {
		if _, err := r.Read(ctx, name); !errors.Is(err, ErrNotFound) {
			t.Errorf("Read(%q): expected ErrNotFound, got %v", name, err)
		}
	}
}
