package feed

import (
	"context"
	"strings"
	"time"

	"github.com/dmorgan81/wishcard/internal/config"
	"github.com/dmorgan81/wishcard/internal/log"
	"github.com/dmorgan81/wishcard/internal/store"
	"github.com/gorilla/feeds"
	"github.com/samber/do"
	"github.com/samber/lo"
)

type Generator struct {
	lister   store.Lister
	cardBase string
	now      func() time.Time
}

func NewGenerator(i *do.Injector) (*Generator, error) {
	return New(do.MustInvoke[store.Lister](i), do.MustInvoke[*config.Config](i).CardBaseURL), nil
}

// New builds a generator whose item links are rooted at cardBase, or at the
// feed's own base when cardBase is empty.
func New(lister store.Lister, cardBase string) *Generator {
	return &Generator{lister: lister, cardBase: strings.TrimSuffix(cardBase, "/"), now: time.Now}
}

// Generate renders an RSS feed of archived cards, newest first. The channel
// links to base.
func (g *Generator) Generate(ctx context.Context, base string) ([]byte, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("feed")
	log.Info("generating rss feed")

	entries, err := g.lister.List(ctx)
	if err != nil {
		return nil, err
	}

	base = strings.TrimSuffix(base, "/")
	cardBase := lo.Ternary(g.cardBase != "", g.cardBase, base)
	feed := feeds.Feed{
		Title:       "Wish Cards",
		Description: "Greeting cards made from your photos",
		Link:        &feeds.Link{Href: base + "/"},
		Updated:     g.now(),
	}
	feed.Items = lo.Map(entries, func(e store.Entry, _ int) *feeds.Item {
		return &feeds.Item{
			Id:          e.ID,
			Title:       "For " + e.Name,
			Description: e.Wishes,
			Link:        &feeds.Link{Href: cardBase + "/" + e.Key},
			Created:     e.Date,
			Updated:     e.Modified,
		}
	})
	feed.Sort(func(a, b *feeds.Item) bool {
		return a.Created.After(b.Created)
	})

	log.Info("generated rss feed", "items", len(feed.Items))
	rss, err := feed.ToRss()
	return []byte(rss), err
}
