// Package app wires the service together: cache hydration, the poll loop,
// the download queues, the orchestrator and the command surface.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kvantor/telegram-sticker-vault/internal/bot"
	errs "github.com/kvantor/telegram-sticker-vault/internal/core/errors"
	"github.com/kvantor/telegram-sticker-vault/internal/entity"
	"github.com/kvantor/telegram-sticker-vault/internal/files"
	"github.com/kvantor/telegram-sticker-vault/internal/platform/config"
	"github.com/kvantor/telegram-sticker-vault/internal/platform/observability"
	"github.com/kvantor/telegram-sticker-vault/internal/poller"
	"github.com/kvantor/telegram-sticker-vault/internal/queue"
	"github.com/kvantor/telegram-sticker-vault/internal/stickers"
	db "github.com/kvantor/telegram-sticker-vault/internal/storage"
	"github.com/kvantor/telegram-sticker-vault/internal/telegram"
)

const (
	fileQueueName = "files"
	setQueueName  = "sticker_sets"

	filePathAttr = "file_path"
)

type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// StartHealthServer runs the health/metrics endpoint until ctx is canceled.
func (a *App) StartHealthServer(ctx context.Context) error {
	return observability.NewServer(a.database, a.cfg.HealthPort, a.logger).Start(ctx)
}

// Run hydrates the cache and drives the service until the context is
// canceled. Shutdown lets in-flight sticker sets finish within the grace
// period before stopping the workers.
func (a *App) Run(ctx context.Context) error {
	cache := entity.NewCache()
	if err := a.hydrate(ctx, cache); err != nil {
		return err
	}

	hub := entity.NewHub()
	normalizer := entity.NewNormalizer(cache, a.database, hub, a.logger)
	client := telegram.New(a.cfg.APIBaseURL, a.cfg.BotToken, a.cfg.HTTPTimeout, a.cfg.SendRateRPS, a.logger)

	fileStore, err := files.New(a.cfg.FilesDir)
	if err != nil {
		return err
	}

	assembler, err := stickers.NewZipAssembler(a.cfg.StickerSetsDir)
	if err != nil {
		return err
	}

	fileQueue := queue.New(queue.Config{
		Name:     fileQueueName,
		Interval: a.cfg.DownloadInterval,
		Fetch: func(ctx context.Context, fileID string) error {
			return a.fetchFile(ctx, client, normalizer, cache, fileStore, hub, fileID)
		},
		Satisfied: fileStore.Has,
		OnSatisfied: func(fileID string) {
			hub.EmitFileDownloaded(context.Background(), fileID)
		},
		Logger: a.logger,
	})

	setQueue := queue.New(queue.Config{
		Name:     setQueueName,
		Interval: a.cfg.DownloadInterval,
		Fetch: func(ctx context.Context, name string) error {
			return a.fetchStickerSet(ctx, client, normalizer, hub, name)
		},
		Satisfied: cache.HasStickerSet,
		OnSatisfied: func(name string) {
			hub.EmitStickerSetInfo(context.Background(), name)
		},
		Logger: a.logger,
	})

	orch := stickers.New(cache, fileStore, fileQueue, setQueue, assembler, a.cfg.StickerSetsDir, a.logger)
	orch.Subscribe(hub)

	botSvc := bot.New(client, cache, orch, a.database, a.cfg.BotName, a.logger)
	botSvc.Subscribe(hub)

	orch.OnComplete(botSvc.DeliverArchive)
	orch.OnFailed(botSvc.DeliverFailure)

	if err = botSvc.RegisterCommands(ctx); err != nil {
		a.logger.Error().Err(err).Msg("command registration failed")
	}

	offset, hasOffset := cache.NextOffset()
	poll := poller.New(client, normalizer, a.cfg.PollInterval, offset, hasOffset, a.logger)

	return a.runWorkers(ctx, poll, fileQueue, setQueue, orch)
}

type runner interface {
	Run(ctx context.Context) error
}

func (a *App) runWorkers(ctx context.Context, workers ...runner) error {
	// Workers run on their own context so in-flight sticker sets can drain
	// after the signal context is canceled.
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()

	errCh := make(chan error, len(workers))

	var orch *stickers.Orchestrator

	for _, w := range workers {
		if o, ok := w.(*stickers.Orchestrator); ok {
			orch = o
		}

		go func(w runner) {
			errCh <- w.Run(workCtx)
		}(w)
	}

	select {
	case <-ctx.Done():
		a.logger.Info().Msg("shutting down")

		if orch != nil {
			orch.BeginShutdown()
			orch.WaitIdle(a.cfg.ShutdownGrace)
		}

		cancelWork()

		return fmt.Errorf("app: %w", ctx.Err())
	case err := <-errCh:
		cancelWork()

		return err
	}
}

func (a *App) hydrate(ctx context.Context, cache *entity.Cache) error {
	for _, kind := range entity.Kinds {
		recs, err := a.database.LoadRecords(ctx, kind)
		if err != nil {
			return fmt.Errorf("hydrate %s: %w", kind, err)
		}

		cache.Hydrate(kind, recs)
	}

	sets, members, err := a.database.LoadStickerSets(ctx)
	if err != nil {
		return fmt.Errorf("hydrate sticker sets: %w", err)
	}

	cache.HydrateStickerSets(sets, members)

	a.logger.Info().
		Int("messages", cache.Len(entity.KindMessage)).
		Int("files", cache.Len(entity.KindFile)).
		Int("sticker_sets", cache.Len(entity.KindStickerSet)).
		Msg("cache hydrated")

	return nil
}

// fetchFile runs the two-step download: resolve metadata via getFile, fetch
// the payload behind the transient file_path, store it and strip the path.
func (a *App) fetchFile(ctx context.Context, client *telegram.Client, normalizer *entity.Normalizer, cache *entity.Cache, fileStore *files.Store, hub *entity.Hub, fileID string) error {
	result, err := client.GetFile(ctx, fileID)
	if err != nil {
		return err
	}

	id, err := normalizer.ParseFile(ctx, result)
	if err != nil {
		return err
	}

	rec, ok := cache.Get(entity.KindFile, id)
	if !ok || rec[filePathAttr] == "" {
		return fmt.Errorf("getFile %s: %w: no %s", fileID, errs.ErrUnexpectedPayload, filePathAttr)
	}

	payload, err := client.DownloadFile(ctx, rec[filePathAttr])
	if err != nil {
		return err
	}

	if err = fileStore.Write(id, payload); err != nil {
		return err
	}

	observability.FilesDownloaded.Inc()
	normalizer.StripFileAttribute(ctx, id, filePathAttr)
	hub.EmitFileDownloaded(ctx, id)

	return nil
}

// fetchStickerSet resolves set metadata; a rejected name surfaces as a
// failure event instead of a retry.
func (a *App) fetchStickerSet(ctx context.Context, client *telegram.Client, normalizer *entity.Normalizer, hub *entity.Hub, name string) error {
	result, err := client.GetStickerSet(ctx, name)
	if errors.Is(err, errs.ErrStickerSetInvalid) {
		hub.EmitStickerSetFailed(ctx, name)

		return err
	}

	if err != nil {
		return err
	}

	_, err = normalizer.ParseStickerSet(ctx, result)

	return err
}
