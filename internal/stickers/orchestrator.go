// Package stickers orchestrates whole-sticker-set downloads: metadata fetch,
// member file fetches, archive assembly and requester notification.
package stickers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	errs "github.com/kvantor/telegram-sticker-vault/internal/core/errors"
	"github.com/kvantor/telegram-sticker-vault/internal/entity"
	"github.com/kvantor/telegram-sticker-vault/internal/files"
	"github.com/kvantor/telegram-sticker-vault/internal/platform/observability"
)

const eventBuffer = 1024

// Destination identifies who asked for a set and where to deliver it.
type Destination struct {
	ChatID    int64
	UserID    int64
	MessageID int64
}

type enqueuer interface {
	Enqueue(id string)
}

type eventKind int

const (
	evRequest eventKind = iota
	evSetInfo
	evSetFailed
	evFile
	evShutdown
)

type event struct {
	kind   eventKind
	name   string
	fileID string
	dest   Destination
}

// setState tracks one in-flight set. remaining is nil until metadata is
// known, then holds the member file ids still missing from the file store.
type setState struct {
	remaining map[string]struct{}
	dests     []Destination
}

// Orchestrator serializes all sticker set work through one event loop,
// preserving the ordering guarantees the rest of the system relies on.
type Orchestrator struct {
	cache     *entity.Cache
	store     *files.Store
	fileQueue enqueuer
	setQueue  enqueuer
	assembler Assembler
	setsDir   string
	logger    zerolog.Logger

	events       chan event
	shuttingDown atomic.Bool
	draining     bool
	idleOnce     sync.Once
	idle         chan struct{}

	states  map[string]*setState
	waiting map[string]map[string]struct{}

	onComplete func(ctx context.Context, name, archivePath string, dests []Destination)
	onFailed   func(ctx context.Context, name string, dests []Destination)
}

func New(cache *entity.Cache, store *files.Store, fileQueue, setQueue enqueuer, assembler Assembler, setsDir string, logger *zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cache:     cache,
		store:     store,
		fileQueue: fileQueue,
		setQueue:  setQueue,
		assembler: assembler,
		setsDir:   setsDir,
		logger:    logger.With().Str("component", "orchestrator").Logger(),
		events:    make(chan event, eventBuffer),
		idle:      make(chan struct{}),
		states:    make(map[string]*setState),
		waiting:   make(map[string]map[string]struct{}),
	}
}

// OnComplete registers the delivery callback. Must be set before Run.
func (o *Orchestrator) OnComplete(fn func(ctx context.Context, name, archivePath string, dests []Destination)) {
	o.onComplete = fn
}

// OnFailed registers the failure callback. Must be set before Run.
func (o *Orchestrator) OnFailed(fn func(ctx context.Context, name string, dests []Destination)) {
	o.onFailed = fn
}

// Subscribe wires the orchestrator to entity events. Hub callbacks only post
// to the event channel, so subscribers never block on orchestrator work.
func (o *Orchestrator) Subscribe(hub *entity.Hub) {
	hub.OnStickerSetInfo(func(_ context.Context, name string) {
		o.post(event{kind: evSetInfo, name: name})
	})
	hub.OnStickerSetFailed(func(_ context.Context, name string) {
		o.post(event{kind: evSetFailed, name: name})
	})
	hub.OnFileDownloaded(func(_ context.Context, fileID string) {
		o.post(event{kind: evFile, fileID: fileID})
	})
}

// Request asks for a set to be downloaded and archived. Requests for a set
// already in flight are coalesced: the destination is recorded and served by
// the same completion.
func (o *Orchestrator) Request(name string, dest Destination) error {
	if o.shuttingDown.Load() {
		return errs.ErrShuttingDown
	}

	o.post(event{kind: evRequest, name: name, dest: dest})

	return nil
}

// BeginShutdown stops accepting requests. In-flight sets keep processing
// until Idle is closed or the caller's grace period expires.
func (o *Orchestrator) BeginShutdown() {
	o.shuttingDown.Store(true)
	o.post(event{kind: evShutdown})
}

// Idle is closed once shutdown began and no sets are in flight.
func (o *Orchestrator) Idle() <-chan struct{} {
	return o.idle
}

func (o *Orchestrator) post(ev event) {
	select {
	case o.events <- ev:
	default:
		o.logger.Warn().Str("name", ev.name).Str("file_id", ev.fileID).Msg("event buffer full, event dropped")
	}
}

// Run processes events until the context is canceled.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info().Msg("orchestrator starting")

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("orchestrator: %w", ctx.Err())
		case ev := <-o.events:
			o.handle(ctx, ev)
			o.maybeIdle()
		}
	}
}

func (o *Orchestrator) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case evShutdown:
		o.draining = true
	case evRequest:
		o.handleRequest(ctx, ev.name, ev.dest)
	case evSetInfo:
		o.handleSetInfo(ctx, ev.name)
	case evSetFailed:
		o.handleSetFailed(ctx, ev.name)
	case evFile:
		o.handleFile(ctx, ev.fileID)
	}
}

func (o *Orchestrator) maybeIdle() {
	if o.draining && len(o.states) == 0 {
		o.idleOnce.Do(func() { close(o.idle) })
	}
}

func (o *Orchestrator) handleRequest(ctx context.Context, name string, dest Destination) {
	if st, inFlight := o.states[name]; inFlight {
		st.dests = append(st.dests, dest)
		o.logger.Info().Str("name", name).Msg("request coalesced into in-flight download")

		return
	}

	if path := o.assembler.ArchivePath(name); fileExists(path) {
		o.logger.Info().Str("name", name).Msg("archive already present")
		o.complete(ctx, name, path, []Destination{dest})

		return
	}

	o.states[name] = &setState{dests: []Destination{dest}}

	if o.cache.HasStickerSet(name) {
		o.startFiles(ctx, name)

		return
	}

	o.setQueue.Enqueue(name)
}

func (o *Orchestrator) handleSetInfo(ctx context.Context, name string) {
	st, inFlight := o.states[name]
	if !inFlight || st.remaining != nil {
		return
	}

	o.startFiles(ctx, name)
}

// startFiles computes the member files still missing and queues them.
func (o *Orchestrator) startFiles(ctx context.Context, name string) {
	st := o.states[name]
	fileIDs := o.cache.StickerSetFiles(name)
	st.remaining = make(map[string]struct{})

	for _, fileID := range fileIDs {
		if !o.store.Has(fileID) {
			st.remaining[fileID] = struct{}{}
		}
	}

	if len(st.remaining) == 0 {
		o.assemble(ctx, name)

		return
	}

	o.logger.Info().Str("name", name).Int("missing", len(st.remaining)).Msg("downloading set members")

	for _, fileID := range fileIDs {
		if _, missing := st.remaining[fileID]; !missing {
			continue
		}

		sets, ok := o.waiting[fileID]
		if !ok {
			sets = make(map[string]struct{})
			o.waiting[fileID] = sets
		}

		sets[name] = struct{}{}

		o.fileQueue.Enqueue(fileID)
	}
}

func (o *Orchestrator) handleFile(ctx context.Context, fileID string) {
	names := o.waiting[fileID]
	delete(o.waiting, fileID)

	for name := range names {
		st, inFlight := o.states[name]
		if !inFlight || st.remaining == nil {
			continue
		}

		delete(st.remaining, fileID)

		if len(st.remaining) == 0 {
			o.assemble(ctx, name)
		}
	}
}

func (o *Orchestrator) handleSetFailed(ctx context.Context, name string) {
	st, inFlight := o.states[name]
	if !inFlight {
		return
	}

	delete(o.states, name)
	observability.StickerSetsFailed.Inc()
	o.logger.Warn().Str("name", name).Msg("sticker set rejected")

	if o.onFailed != nil {
		o.onFailed(ctx, name, st.dests)
	}
}

// assemble writes the numbered member files and zips them.
func (o *Orchestrator) assemble(ctx context.Context, name string) {
	st := o.states[name]
	delete(o.states, name)

	path, err := o.buildArchive(name)
	if err != nil {
		o.logger.Error().Err(err).Str("name", name).Msg("archive assembly failed")

		if o.onFailed != nil {
			o.onFailed(ctx, name, st.dests)
		}

		return
	}

	o.complete(ctx, name, path, st.dests)
}

func (o *Orchestrator) buildArchive(name string) (string, error) {
	fileIDs := o.cache.StickerSetFiles(name)
	memberDir := filepath.Join(o.setsDir, name)

	if err := os.MkdirAll(memberDir, 0o755); err != nil {
		return "", fmt.Errorf("create member dir: %w", err)
	}

	for i, fileID := range fileIDs {
		payload, err := o.store.Read(fileID)
		if err != nil {
			return "", err
		}

		member := filepath.Join(memberDir, fmt.Sprintf("Sticker_%03d%s", i+1, o.memberExtension(fileID)))
		if err = os.WriteFile(member, payload, 0o644); err != nil {
			return "", fmt.Errorf("write member: %w", err)
		}
	}

	return o.assembler.Assemble(name, memberDir)
}

func (o *Orchestrator) memberExtension(fileID string) string {
	rec, ok := o.cache.Get(entity.KindFile, fileID)
	if ok && rec["is_animated"] == "true" {
		return ".tgs"
	}

	return ".webp"
}

func (o *Orchestrator) complete(ctx context.Context, name, archivePath string, dests []Destination) {
	observability.StickerSetsCompleted.Inc()
	o.logger.Info().Str("name", name).Str("archive", archivePath).Int("requesters", len(dests)).Msg("sticker set ready")

	if o.onComplete != nil {
		o.onComplete(ctx, name, archivePath, dests)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}

// WaitIdle blocks until in-flight sets drained or the grace period expired.
func (o *Orchestrator) WaitIdle(grace time.Duration) {
	select {
	case <-o.idle:
	case <-time.After(grace):
		o.logger.Warn().Dur("grace", grace).Msg("shutdown grace expired with sets in flight")
	}
}
