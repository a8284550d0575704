package inject

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/dmorgan81/wishcard/internal/card"
	"github.com/dmorgan81/wishcard/internal/config"
	"github.com/dmorgan81/wishcard/internal/feed"
	"github.com/dmorgan81/wishcard/internal/handle"
	"github.com/dmorgan81/wishcard/internal/handler"
	"github.com/dmorgan81/wishcard/internal/log"
	"github.com/dmorgan81/wishcard/internal/page"
	"github.com/dmorgan81/wishcard/internal/param"
	"github.com/dmorgan81/wishcard/internal/remover"
	"github.com/dmorgan81/wishcard/internal/server"
	"github.com/dmorgan81/wishcard/internal/store"
	"github.com/dmorgan81/wishcard/internal/style"
	"github.com/dmorgan81/wishcard/internal/typeface"
	"github.com/samber/do"
)

// Setup wires every component. AWS clients are only built when something
// configured needs them: the archive bucket, the CDN or the key parameter.
func Setup(ctx context.Context, cfg *config.Config) *do.Injector {
	log := log.FromContextOrDiscard(ctx)

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...))
		},
	})
	do.ProvideValue[*config.Config](injector, cfg)
	do.ProvideValue[*slog.Logger](injector, log)

	do.Provide[aws.Config](injector, func(i *do.Injector) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx)
	})
	do.Provide[*ssm.Client](injector, func(i *do.Injector) (*ssm.Client, error) {
		return ssm.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*s3.Client](injector, func(i *do.Injector) (*s3.Client, error) {
		return s3.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*cloudfront.Client](injector, func(i *do.Injector) (*cloudfront.Client, error) {
		return cloudfront.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.ProvideValue[*http.Client](injector, &http.Client{})

	do.ProvideNamed[*typeface.Font](injector, "wishes_font", func(i *do.Injector) (*typeface.Font, error) {
		return typeface.Load(cfg.WishesFontPath)
	})
	do.ProvideNamed[*typeface.Font](injector, "name_font", func(i *do.Injector) (*typeface.Font, error) {
		if cfg.NameFontPath == cfg.WishesFontPath {
			return do.InvokeNamed[*typeface.Font](i, "wishes_font")
		}
		return typeface.Load(cfg.NameFontPath)
	})

	do.Provide[param.Fetcher](injector, param.NewParameterStoreFetcher)
	do.ProvideNamed[string](injector, "remover_key", func(i *do.Injector) (string, error) {
		if cfg.RemoverKeyParam == "" {
			return cfg.RemoverKey, nil
		}
		return param.Resolve(ctx, do.MustInvoke[param.Fetcher](i), cfg.RemoverKeyParam, cfg.RemoverKey)
	})

	do.Provide[*style.Randomizer](injector, style.NewRandomizer)
	do.Provide[*card.Renderer](injector, card.NewRenderer)
	do.Provide[remover.Remover](injector, remover.NewRemover)

	switch {
	case cfg.Bucket != "":
		do.Provide[store.Uploader](injector, func(i *do.Injector) (store.Uploader, error) {
			return &store.S3Uploader{Client: do.MustInvoke[*s3.Client](i), Bucket: cfg.Bucket}, nil
		})
		do.Provide[store.Lister](injector, func(i *do.Injector) (store.Lister, error) {
			return &store.S3Lister{Client: do.MustInvoke[*s3.Client](i), Bucket: cfg.Bucket}, nil
		})
		do.Provide[store.Reader](injector, func(i *do.Injector) (store.Reader, error) {
			return &store.S3Reader{Client: do.MustInvoke[*s3.Client](i), Bucket: cfg.Bucket}, nil
		})
	case cfg.ArchiveDir != "":
		do.ProvideValue[store.Uploader](injector, &store.FileUploader{Dir: cfg.ArchiveDir})
		do.ProvideValue[store.Reader](injector, &store.FileReader{Dir: cfg.ArchiveDir})
	}
	do.Provide[store.Invalidator](injector, func(i *do.Injector) (store.Invalidator, error) {
		if cfg.Distribution == "" {
			return store.NopInvalidator{}, nil
		}
		return &store.CloudFrontInvalidator{Client: do.MustInvoke[*cloudfront.Client](i), Distribution: cfg.Distribution}, nil
	})
	if cfg.Bucket != "" || cfg.ArchiveDir != "" {
		do.Provide[*store.Archiver](injector, func(i *do.Injector) (*store.Archiver, error) {
			return store.NewArchiver(do.MustInvoke[store.Uploader](i), do.MustInvoke[store.Invalidator](i)), nil
		})
	}

	do.Provide[*feed.Generator](injector, feed.NewGenerator)
	do.Provide[*page.Templator](injector, page.NewTemplator)

	do.Provide[*handler.CardHandler](injector, handler.NewCardHandler)
	do.Provide[*handler.IndexHandler](injector, handler.NewIndexHandler)
	do.Provide[*handler.FeedHandler](injector, handler.NewFeedHandler)
	do.Provide[*handler.CardFileHandler](injector, handler.NewCardFileHandler)
	do.Provide[http.Handler](injector, server.NewRouter)
	do.Provide[*handle.URLHandler](injector, handle.NewURLHandler)

	return injector
}
