// Package poller drives the getUpdates long-poll loop and advances the
// monotonic offset cursor.
package poller

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/kvantor/telegram-sticker-vault/internal/entity"
	"github.com/kvantor/telegram-sticker-vault/internal/platform/observability"
	"github.com/kvantor/telegram-sticker-vault/internal/platform/worker"
)

type updatesSource interface {
	GetUpdates(ctx context.Context, offset int64, hasOffset bool) ([]json.RawMessage, error)
}

type updateParser interface {
	ParseUpdate(ctx context.Context, raw []byte) (entity.Record, error)
}

type Poller struct {
	source   updatesSource
	parser   updateParser
	interval time.Duration
	logger   zerolog.Logger

	offset    int64
	hasOffset bool
}

// New creates a poller starting from the given offset cursor, typically
// recomputed from the persisted updates on startup.
func New(source updatesSource, parser updateParser, interval time.Duration, offset int64, hasOffset bool, logger *zerolog.Logger) *Poller {
	return &Poller{
		source:    source,
		parser:    parser,
		interval:  interval,
		logger:    logger.With().Str("component", "poller").Logger(),
		offset:    offset,
		hasOffset: hasOffset,
	}
}

// Offset returns the current cursor. The second return is false until the
// first update id is known.
func (p *Poller) Offset() (int64, bool) {
	return p.offset, p.hasOffset
}

// Run polls until the context is canceled.
func (p *Poller) Run(ctx context.Context) error {
	return worker.SingleTickerLoop(ctx, worker.SingleTickerConfig{
		Name:       "poller",
		Interval:   p.interval,
		OnTick:     p.Poll,
		RunOnStart: true,
		Logger:     &p.logger,
	})
}

// Poll fetches and normalizes one batch. The offset advances per
// successfully parsed update; the first parse failure aborts the rest of the
// batch so the failed update is fetched again next tick.
func (p *Poller) Poll(ctx context.Context) {
	updates, err := p.source.GetUpdates(ctx, p.offset, p.hasOffset)
	if err != nil {
		p.logger.Error().Err(err).Msg("getUpdates failed")

		return
	}

	for _, raw := range updates {
		observability.UpdatesReceived.Inc()

		rec, parseErr := p.parser.ParseUpdate(ctx, raw)
		if parseErr != nil {
			observability.UpdateParseFailures.Inc()
			p.logger.Error().Err(parseErr).Msg("update parse failed, batch aborted")

			return
		}

		p.advance(rec.Int64("update_id"))
	}
}

// advance moves the cursor to id+1, never backwards.
func (p *Poller) advance(updateID int64) {
	if !p.hasOffset || updateID+1 > p.offset {
		p.offset = updateID + 1
		p.hasOffset = true
	}
}
