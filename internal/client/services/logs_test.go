package services

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/sanposhin/internal/client/syncer"
	"github.com/dmitrijs2005/sanposhin/internal/common"
	"github.com/dmitrijs2005/sanposhin/internal/logging"
)

func TestSave_Online(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.logs.Save(ctx, newEntry())
	require.NoError(t, err)
	assert.False(t, res.Queued)
	assert.NotEmpty(t, res.Entry.ID)
	assert.NotEmpty(t, res.Entry.ClientID)
	assert.NotEmpty(t, res.Entry.CreatedAt)

	cached, err := e.cache.Get(ctx, res.Entry.ClientID)
	require.NoError(t, err)
	assert.Equal(t, res.Entry.ID, cached.ID)

	n, err := e.queue.Len(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSave_InvalidInputNeverStored(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	bad := newEntry()
	bad.MissionText = ""
	_, err := e.logs.Save(ctx, bad)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	badImage := newEntry()
	badImage.ImageData = "data:image/png;base64,%%%"
	_, err = e.logs.Save(ctx, badImage)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	cached, err := e.cache.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, cached)
	assert.Zero(t, e.remote.SaveCalls)
}

func TestSave_UnavailableQueues(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.remote.SaveErr = common.ErrUnavailable

	res, err := e.logs.Save(ctx, newEntry())
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Empty(t, res.Entry.ID)

	n, err := e.queue.Len(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSave_RejectedDropsLocalCopy(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.remote.SaveErr = &common.RateLimitError{RetryAt: time.Now().Add(time.Hour)}

	_, err := e.logs.Save(ctx, newEntry())
	assert.ErrorIs(t, err, common.ErrRateLimited)

	cached, err := e.cache.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, cached)
	n, err := e.queue.Len(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSave_UploadsImage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	entry := newEntry()
	entry.ImageData = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png!"))

	res, err := e.logs.Save(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.test/images/alice/1.jpg", res.Entry.ImageURL)
	assert.Empty(t, res.Entry.ImageData)
	assert.Equal(t, []byte("png!"), e.remote.uploads["https://s3.test/put/alice"])
}

func TestSave_UploadRejectedKeepsInlineImage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.remote.UploadErr = errors.New("upload failed: 403 Forbidden")

	entry := newEntry()
	entry.ImageData = base64.StdEncoding.EncodeToString([]byte("jpeg"))

	res, err := e.logs.Save(ctx, entry)
	require.NoError(t, err)
	assert.False(t, res.Queued)
	assert.Empty(t, res.Entry.ImageURL)
	assert.Equal(t, entry.ImageData, res.Entry.ImageData)
}

func TestSave_UploadUnavailableQueues(t *testing.T) {
	e := newEnv(t)
	e.remote.PresignErr = common.ErrUnavailable

	entry := newEntry()
	entry.ImageData = base64.StdEncoding.EncodeToString([]byte("jpeg"))

	res, err := e.logs.Save(context.Background(), entry)
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Zero(t, e.remote.SaveCalls)
}

func TestList_PrefersRemoteFallsBackToCache(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	saved, err := e.logs.Save(ctx, newEntry())
	require.NoError(t, err)

	e.online.set(false)
	pending, err := e.logs.Save(ctx, newEntry())
	require.NoError(t, err)
	require.True(t, pending.Queued)

	e.online.set(true)
	res, err := e.logs.List(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Len(t, res.Logs, 2, "remote entry plus the unsynced local one")

	e.remote.ListErr = common.ErrUnavailable
	res, err = e.logs.List(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Len(t, res.Logs, 2)

	e.remote.ListErr = common.ErrorUnauthorized
	_, err = e.logs.List(ctx, "alice")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	e.online.set(false)
	res, err = e.logs.List(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, res.Cached)

	ids := []string{res.Logs[0].ID, res.Logs[1].ID}
	assert.Contains(t, ids, saved.Entry.ID)
}

func TestDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	saved, err := e.logs.Save(ctx, newEntry())
	require.NoError(t, err)

	e.online.set(false)
	pending, err := e.logs.Save(ctx, newEntry())
	require.NoError(t, err)
	e.online.set(true)

	// unsynced entries go by client id and never reach the server
	e.remote.DeleteErr = errors.New("must not be called")
	require.NoError(t, e.logs.Delete(ctx, "alice", pending.Entry.ClientID))

	e.remote.DeleteErr = nil
	require.NoError(t, e.logs.Delete(ctx, "alice", saved.Entry.ID))

	cached, err := e.cache.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, cached)
	assert.Empty(t, e.remote.logs["alice"])

	n, err := e.queue.Len(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteAll(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.logs.Save(ctx, newEntry())
	require.NoError(t, err)
	e.online.set(false)
	_, err = e.logs.Save(ctx, newEntry())
	require.NoError(t, err)
	e.online.set(true)

	n, err := e.logs.DeleteAll(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	q, err := e.queue.Len(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, q)
}

func TestDecodeImageData(t *testing.T) {
	raw, ct, err := DecodeImageData("data:image/webp;base64," + base64.StdEncoding.EncodeToString([]byte("x")))
	require.NoError(t, err)
	assert.Equal(t, "image/webp", ct)
	assert.Equal(t, []byte("x"), raw)

	_, ct, err = DecodeImageData(base64.StdEncoding.EncodeToString([]byte("y")))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)

	_, _, err = DecodeImageData("data:text/plain,hello")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

type flakyPinger struct{ err error }

func (p *flakyPinger) Ping(context.Context) error { return p.err }

func TestOfflineSaveThenReconnectSyncs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	pinger := &flakyPinger{err: common.ErrUnavailable}
	monitor := syncer.NewMonitor(pinger, time.Hour, logging.Nop())
	monitor.Check(ctx)

	svc := NewLogService(e.remote, e.cache, e.queue, monitor, logging.Nop())
	engine := syncer.NewEngine(e.queue, e.cache, svc, monitor, logging.Nop())
	cancel := engine.SetupAutoSync(ctx, "alice")
	defer cancel()

	res, err := svc.Save(ctx, newEntry())
	require.NoError(t, err)
	require.True(t, res.Queued)
	assert.Zero(t, e.remote.SaveCalls, "remote untouched while offline")

	cached, err := e.cache.Get(ctx, res.Entry.ClientID)
	require.NoError(t, err)
	assert.Empty(t, cached.ID)

	pinger.err = nil
	monitor.Check(ctx)
	engine.Wait()

	assert.Equal(t, 1, e.remote.SaveCalls)
	st, err := engine.Status(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, st.Pending)

	cached, err = e.cache.Get(ctx, res.Entry.ClientID)
	require.NoError(t, err)
	assert.NotEmpty(t, cached.ID)
	assert.Equal(t, res.Entry.ClientID, e.remote.logs["alice"][0].ClientID)
}
