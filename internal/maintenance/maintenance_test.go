package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fixedSize struct {
	size int64
	err  error
}

func (f fixedSize) Size(context.Context) (int64, error) { return f.size, f.err }

func TestMaintain_NotifiesOverThreshold(t *testing.T) {
	var (
		hits atomic.Int32
		got  Status
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(fixedSize{size: 2048}, srv.URL, 1024, time.Hour, zap.NewNop())
	n.Maintain(context.Background())
	n.Maintain(context.Background())
	n.Wait()

	assert.Equal(t, int32(1), hits.Load(), "second call must be rate limited")
	assert.Equal(t, int64(2048), got.Size)
	assert.Equal(t, int64(1024), got.Threshold)
}

func TestMaintain_UnderThreshold(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	n := New(fixedSize{size: 1024}, srv.URL, 1024, time.Hour, zap.NewNop())
	n.Maintain(context.Background())
	n.Wait()
	assert.Zero(t, hits.Load())
}

func TestMaintain_Disabled(t *testing.T) {
	n := New(fixedSize{err: errors.New("must not be asked")}, "", 0, 0, zap.NewNop())
	n.Maintain(context.Background())
	n.Wait()
}

func TestMaintain_FailuresAreLogged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	core, logs := observer.New(zap.ErrorLevel)
	n := New(fixedSize{size: 10}, srv.URL, 1, time.Hour, zap.New(core))
	n.Maintain(context.Background())
	n.Wait()

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "maintenance: notification failed", logs.All()[0].Message)
}

func TestMaintain_SizeError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	n := New(fixedSize{err: errors.New("io")}, "http://127.0.0.1:1", 1, time.Hour, zap.New(core))
	n.Maintain(context.Background())
	n.Wait()
	assert.Equal(t, 1, logs.FilterMessage("maintenance: store size").Len())
}
