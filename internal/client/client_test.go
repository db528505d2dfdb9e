package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchase_DecodesBusinessOutcome(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/purchase", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":1001,"message":"库存不足","data":{"result":"insufficient_stock","goods_id":7}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	env, err := c.Purchase(context.Background(), 3, []PurchaseItem{{GoodsID: 7, Quantity: 2}})
	require.NoError(t, err)

	assert.False(t, env.OK())
	assert.Equal(t, 1001, env.Code)

	var data struct {
		Result  string `json:"result"`
		GoodsID int64  `json:"goods_id"`
	}
	require.NoError(t, env.Decode(&data))
	assert.Equal(t, "insufficient_stock", data.Result)
	assert.Equal(t, int64(7), data.GoodsID)
	assert.Equal(t, float64(3), got["customer_id"])
}

func TestAdminToken_SentAndForbiddenDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("X-Admin-Token") != "s3cret" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"code":403,"message":"管理令牌错误"}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":0,"message":"success"}`))
	}))
	defer srv.Close()

	target := DatabaseTarget{Driver: "sqlite", DSN: "file:x?mode=memory"}

	env, err := New(srv.URL, time.Second).TestDatabase(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, 403, env.Code)

	env, err = New(srv.URL, time.Second).WithAdminToken("s3cret").SwitchDatabase(context.Background(), target)
	require.NoError(t, err)
	assert.True(t, env.OK())
}

func TestHealth(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	require.NoError(t, c.Health(context.Background()))

	status.Store(http.StatusServiceUnavailable)
	err := c.Health(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestPost_NonJSONErrorIsUnexpected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).MarkRead(context.Background(), 1, 2)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}
