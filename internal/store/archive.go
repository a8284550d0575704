package store

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/dmorgan81/wishcard/internal/log"
	"github.com/google/uuid"
)

const (
	CardPrefix = "cards/"
	LatestName = "latest.jpg"
)

// Card is a finished card ready to be archived.
type Card struct {
	Name   string
	Wishes string
	Data   []byte
}

// Entry is an archived card as read back from storage.
type Entry struct {
	Key      string
	ID       string
	Name     string
	Wishes   string
	Date     time.Time
	Modified time.Time
}

type Lister interface {
	List(context.Context) ([]Entry, error)
}

// Archiver keeps every card under cards/<id>.jpg and the most recent one as
// latest.jpg.
type Archiver struct {
	Uploader    Uploader
	Invalidator Invalidator

	now   func() time.Time
	newID func() string
}

func NewArchiver(uploader Uploader, invalidator Invalidator) *Archiver {
	return &Archiver{
		Uploader:    uploader,
		Invalidator: invalidator,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Archive stores the card and returns its id.
func (a *Archiver) Archive(ctx context.Context, card Card) (string, error) {
	id := a.newID()
	log := log.FromContextOrDiscard(ctx).WithGroup("archive").With("id", id)
	log.Info("archiving card")

	metadata := map[string]string{
		"id":     id,
		"name":   url.QueryEscape(card.Name),
		"wishes": url.QueryEscape(card.Wishes),
		"date":   a.now().UTC().Format(time.RFC3339),
	}
	uploads := []UploadParams{
		{
			Name:        CardName(id),
			Data:        card.Data,
			ContentType: "image/jpeg",
			Metadata:    metadata,
		},
		{
			Name:        LatestName,
			Data:        card.Data,
			ContentType: "image/jpeg",
			Metadata:    metadata,
		},
	}
	for _, u := range uploads {
		if err := a.Uploader.Upload(ctx, u); err != nil {
			return "", fmt.Errorf("upload %s: %w", u.Name, err)
		}
	}

	if err := a.Invalidator.Invalidate(ctx, []string{"/" + LatestName}); err != nil {
		return "", fmt.Errorf("invalidate: %w", err)
	}
	return id, nil
}
