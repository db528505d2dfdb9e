// Package client 是 cafehub HTTP 接口的调用端，供 cafectl 和集成测试使用
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

var ErrUnexpectedStatus = errors.New("unexpected http status")

// Envelope 服务端统一响应
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// OK 请求成功且业务结果为成功
func (e *Envelope) OK() bool { return e.Code == 0 }

// Decode 把 data 解析到 v
func (e *Envelope) Decode(v interface{}) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

type Client struct {
	http       *resty.Client
	adminToken string
}

func New(baseURL string, timeout time.Duration) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	// 把当前 trace 上下文带到服务端
	http.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		otel.GetTextMapPropagator().Inject(r.Context(), propagation.HeaderCarrier(r.Header))
		return nil
	})
	return &Client{http: http}
}

// WithAdminToken 设置 /admin 接口使用的令牌
func (c *Client) WithAdminToken(token string) *Client {
	c.adminToken = token
	return c
}

// Post 发送 JSON 请求。业务失败（code != 0）不算 error，由调用方检查 Envelope。
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Envelope, error) {
	env := &Envelope{}
	req := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(env).
		SetError(env)
	if c.adminToken != "" {
		req.SetHeader("X-Admin-Token", c.adminToken)
	}

	resp, err := req.Post(path)
	if err != nil {
		return nil, fmt.Errorf("请求 %s 失败: %w", path, err)
	}
	if resp.IsError() && env.Message == "" {
		return nil, fmt.Errorf("%w: %s %d", ErrUnexpectedStatus, path, resp.StatusCode())
	}
	return env, nil
}

type PurchaseItem struct {
	GoodsID  int64 `json:"goods_id"`
	Quantity int   `json:"quantity"`
}

func (c *Client) Purchase(ctx context.Context, customerID int64, items []PurchaseItem) (*Envelope, error) {
	return c.Post(ctx, "/api/v1/purchase", map[string]interface{}{
		"customer_id": customerID,
		"items":       items,
	})
}

func (c *Client) Recharge(ctx context.Context, accountID int64, amount decimal.Decimal) (*Envelope, error) {
	return c.Post(ctx, "/api/v1/account/recharge", map[string]interface{}{
		"account_id": accountID,
		"amount":     amount,
	})
}

func (c *Client) Claim(ctx context.Context, itemID, claimantID int64) (*Envelope, error) {
	return c.Post(ctx, "/api/v1/lost/claim", map[string]int64{
		"item_id":     itemID,
		"claimant_id": claimantID,
	})
}

func (c *Client) MarkRead(ctx context.Context, messageID, accountID int64) (*Envelope, error) {
	return c.Post(ctx, "/api/v1/message/read", map[string]int64{
		"message_id": messageID,
		"account_id": accountID,
	})
}

// DatabaseTarget /admin/db 接口的请求体
type DatabaseTarget struct {
	Driver   string `json:"driver"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	Database string `json:"database,omitempty"`
	DSN      string `json:"dsn,omitempty"`
}

func (c *Client) TestDatabase(ctx context.Context, target DatabaseTarget) (*Envelope, error) {
	return c.Post(ctx, "/admin/db/test", target)
}

func (c *Client) SwitchDatabase(ctx context.Context, target DatabaseTarget) (*Envelope, error) {
	return c.Post(ctx, "/admin/db/switch", target)
}

// Health 服务和当前数据库是否可用
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("健康检查失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("%w: /health %d", ErrUnexpectedStatus, resp.StatusCode())
	}
	return nil
}
