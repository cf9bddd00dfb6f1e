package poller

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvantor/telegram-sticker-vault/internal/entity"
)

type fakeSource struct {
	updates []json.RawMessage
	err     error

	gotOffset    int64
	gotHasOffset bool
}

func (f *fakeSource) GetUpdates(_ context.Context, offset int64, hasOffset bool) ([]json.RawMessage, error) {
	f.gotOffset = offset
	f.gotHasOffset = hasOffset

	return f.updates, f.err
}

type fakeParser struct {
	failOn string
	parsed []string
}

func (f *fakeParser) ParseUpdate(_ context.Context, raw []byte) (entity.Record, error) {
	var update struct {
		UpdateID int64 `json:"update_id"`
	}

	if err := json.Unmarshal(raw, &update); err != nil {
		return nil, err
	}

	id := strconv.FormatInt(update.UpdateID, 10)
	if id == f.failOn {
		return nil, errors.New("parse failed")
	}

	f.parsed = append(f.parsed, id)

	return entity.Record{"update_id": id}, nil
}

func newTestPoller(source *fakeSource, parser *fakeParser, offset int64, hasOffset bool) *Poller {
	logger := zerolog.Nop()

	return New(source, parser, 0, offset, hasOffset, &logger)
}

func TestPollAdvancesOffset(t *testing.T) {
	source := &fakeSource{updates: []json.RawMessage{
		[]byte(`{"update_id": 10}`),
		[]byte(`{"update_id": 11}`),
	}}
	parser := &fakeParser{}

	p := newTestPoller(source, parser, 0, false)
	p.Poll(context.Background())

	offset, ok := p.Offset()
	require.True(t, ok)
	assert.Equal(t, int64(12), offset)
	assert.Equal(t, []string{"10", "11"}, parser.parsed)
	assert.False(t, source.gotHasOffset)
}

func TestPollPassesOffsetToSource(t *testing.T) {
	source := &fakeSource{}
	p := newTestPoller(source, &fakeParser{}, 42, true)

	p.Poll(context.Background())

	assert.Equal(t, int64(42), source.gotOffset)
	assert.True(t, source.gotHasOffset)
}

func TestPollAbortsBatchOnParseFailure(t *testing.T) {
	source := &fakeSource{updates: []json.RawMessage{
		[]byte(`{"update_id": 10}`),
		[]byte(`{"update_id": 11}`),
		[]byte(`{"update_id": 12}`),
	}}
	parser := &fakeParser{failOn: "11"}

	p := newTestPoller(source, parser, 0, false)
	p.Poll(context.Background())

	// The failed update is not skipped and will be fetched again.
	offset, ok := p.Offset()
	require.True(t, ok)
	assert.Equal(t, int64(11), offset)
	assert.Equal(t, []string{"10"}, parser.parsed)
}

func TestPollKeepsOffsetOnSourceError(t *testing.T) {
	source := &fakeSource{err: errors.New("network down")}

	p := newTestPoller(source, &fakeParser{}, 42, true)
	p.Poll(context.Background())

	offset, ok := p.Offset()
	require.True(t, ok)
	assert.Equal(t, int64(42), offset)
}

func TestOffsetNeverMovesBackwards(t *testing.T) {
	p := newTestPoller(&fakeSource{}, &fakeParser{}, 100, true)

	p.advance(50)

	offset, _ := p.Offset()
	assert.Equal(t, int64(100), offset)

	p.advance(200)

	offset, _ = p.Offset()
	assert.Equal(t, int64(201), offset)
}
