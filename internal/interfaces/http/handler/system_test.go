package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOutbox struct {
	counts map[shared.OutboxStatus]int64
	err    error
}

func (s stubOutbox) CountByStatus(context.Context) (map[shared.OutboxStatus]int64, error) {
	return s.counts, s.err
}

type stubSessions int

func (s stubSessions) ActiveSessions() int { return int(s) }

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler("purchasing", "1.2.3")
	assert.False(t, h.startTime.IsZero())

	c, w := newTestContext(http.MethodGet, "/system/info", "")
	h.GetSystemInfo(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var info SystemInfoResponse
	resp := decodeResponse(t, w)
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &info))
	assert.Equal(t, "purchasing", info.Name)
	assert.Equal(t, "1.2.3", info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestSystemHandler_Live(t *testing.T) {
	h := NewSystemHandler("purchasing", "test", WithDependencyCheck("database", func(context.Context) error {
		return errors.New("down")
	}))
	c, w := newTestContext(http.MethodGet, "/health/live", "")
	h.Live(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestSystemHandler_Ready(t *testing.T) {
	readiness := func(t *testing.T, body []byte) ReadinessResponse {
		t.Helper()
		var out struct {
			Data ReadinessResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(body, &out))
		return out.Data
	}

	t.Run("all dependencies up", func(t *testing.T) {
		h := NewSystemHandler("purchasing", "test",
			WithDependencyCheck("database", func(context.Context) error { return nil }),
			WithDependencyCheck("redis", func(context.Context) error { return nil }),
			WithOutboxCounter(stubOutbox{counts: map[shared.OutboxStatus]int64{shared.OutboxStatusPending: 3}}),
			WithSessionCounter(stubSessions(2)),
		)
		c, w := newTestContext(http.MethodGet, "/health/ready", "")
		h.Ready(c)

		require.Equal(t, http.StatusOK, w.Code)
		got := readiness(t, w.Body.Bytes())
		assert.Equal(t, "ok", got.Status)
		assert.Equal(t, map[string]string{"database": "ok", "redis": "ok"}, got.Checks)
		assert.Equal(t, int64(3), got.Outbox["PENDING"])
		require.NotNil(t, got.ActiveSessions)
		assert.Equal(t, 2, *got.ActiveSessions)
	})

	t.Run("failing dependency", func(t *testing.T) {
		h := NewSystemHandler("purchasing", "test",
			WithDependencyCheck("database", func(context.Context) error { return nil }),
			WithDependencyCheck("redis", func(context.Context) error { return errors.New("dial tcp: refused") }),
		)
		c, w := newTestContext(http.MethodGet, "/health/ready", "")
		h.Ready(c)

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeUnavailable, resp.Error.Code)
		got := readiness(t, w.Body.Bytes())
		assert.Equal(t, "unavailable", got.Status)
		assert.Equal(t, "dial tcp: refused", got.Checks["redis"])
	})

	t.Run("outbox errors are reported but do not fail readiness", func(t *testing.T) {
		h := NewSystemHandler("purchasing", "test", WithOutboxCounter(stubOutbox{err: errors.New("no table")}))
		c, w := newTestContext(http.MethodGet, "/health/ready", "")
		h.Ready(c)

		require.Equal(t, http.StatusOK, w.Code)
		got := readiness(t, w.Body.Bytes())
		assert.Equal(t, "no table", got.Checks["outbox"])
	})
}

func TestSystemHandler_ReadyAgainstDatabase(t *testing.T) {
	s := newTestServer(t)
	s.call(http.MethodGet, "/api/v1/vendors/V1/challans/pending", nil, http.StatusOK, nil)

	var got ReadinessResponse
	s.call(http.MethodGet, "/health/ready", nil, http.StatusOK, &got)
	assert.Equal(t, "ok", got.Checks["database"])
	require.NotNil(t, got.ActiveSessions)
	assert.Equal(t, 1, *got.ActiveSessions)
}
