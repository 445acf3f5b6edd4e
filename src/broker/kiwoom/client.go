package kiwoom

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"kiwoom-dashboard/src/cache"
	"kiwoom-dashboard/src/helpers"
	"kiwoom-dashboard/src/interfaces"
	"kiwoom-dashboard/src/logger"
	"kiwoom-dashboard/src/models"
	"kiwoom-dashboard/src/network"

	"github.com/go-resty/resty/v2"
)

const (
	pathAccount   = "/api/dostk/acnt"
	pathStockInfo = "/api/dostk/stkinfo"
	pathOrder     = "/api/dostk/ordr"
	pathChart     = "/api/dostk/chart"

	// continuation pages followed for one list query
	maxPages = 20
)

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

// Client calls the Kiwoom REST API with the token handed out by the session.
type Client struct {
	Config     *models.MBrokerConfig
	ServerType models.ServerType
	Net        *network.NetworkManager
	Tokens     interfaces.ITokenSource
	Cache      *cache.ResponseCache // nil disables caching
	Logger     *logger.Logger
	now        func() time.Time
}

// -----------------------------------------------------------------------------

func NewClient(cfg *models.MBrokerConfig, tokens interfaces.ITokenSource, log *logger.Logger) *Client {
	server := cfg.ActiveServer()
	c := &Client{
		Config:     cfg,
		ServerType: models.ServerType(cfg.ServerType),
		Net:        network.NewNetworkManager(cfg, server.Domain, log),
		Tokens:     tokens,
		Logger:     log,
		now:        time.Now,
	}
	if cfg.ResponseCacheTTL > 0 && cfg.ResponseCacheDir != "" {
		c.Cache = cache.NewResponseCache(cfg.ResponseCacheDir,
			time.Duration(cfg.ResponseCacheTTL)*time.Second, log.Named("ResponseCache"))
	}
	return c
}

// -----------------------------------------------------------------------------

type envelope struct {
	ReturnCode int    `json:"return_code"`
	ReturnMsg  string `json:"return_msg"`
}

type page struct {
	body    []byte
	contYn  string
	nextKey string
}

// -----------------------------------------------------------------------------

// call posts one request and decodes the payload into out. A rejected token
// (HTTP 401 or code 8005) is refreshed once and the request retried once.
func (c *Client) call(ctx context.Context, path, apiID string, body interface{}, out interface{}) error {
	p, err := c.callPage(ctx, path, apiID, body, "", "")
	if err != nil {
		return err
	}
	return decode(apiID, p.body, out)
}

// -----------------------------------------------------------------------------

// cachedCall is call for read-only lookups that may be served from the
// response cache. Only successful bodies are stored.
func (c *Client) cachedCall(ctx context.Context, path, apiID string, body interface{}, out interface{}) error {
	if c.Cache == nil {
		return c.call(ctx, path, apiID, body, out)
	}
	key, params, err := cache.Key(string(c.ServerType), apiID, body)
	if err != nil {
		return c.call(ctx, path, apiID, body, out)
	}
	if raw, ok := c.Cache.Get(key); ok {
		c.Logger.Debug("%s served from cache", apiID)
		return decode(apiID, raw, out)
	}

	p, err := c.callPage(ctx, path, apiID, body, "", "")
	if err != nil {
		return err
	}
	if err := decode(apiID, p.body, out); err != nil {
		return err
	}
	c.Cache.Set(key, apiID, params, p.body)
	return nil
}

// -----------------------------------------------------------------------------

// callPaged follows Kiwoom continuation headers and hands every page to fn.
func (c *Client) callPaged(ctx context.Context, path, apiID string, body interface{}, fn func([]byte) error) error {
	contYn, nextKey := "", ""
	for i := 0; i < maxPages; i++ {
		p, err := c.callPage(ctx, path, apiID, body, contYn, nextKey)
		if err != nil {
			return err
		}
		if err := fn(p.body); err != nil {
			return err
		}
		if p.contYn != "Y" || p.nextKey == "" {
			return nil
		}
		contYn, nextKey = p.contYn, p.nextKey
	}
	c.Logger.Warning("%s stopped after %d continuation pages", apiID, maxPages)
	return nil
}

// -----------------------------------------------------------------------------

func (c *Client) callPage(ctx context.Context, path, apiID string, body interface{}, contYn, nextKey string) (*page, error) {
	token, err := c.Tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	p, env, status, err := c.post(ctx, path, apiID, token, body, contYn, nextKey)
	if err != nil {
		return nil, err
	}

	if tokenRejected(status, env) {
		c.Logger.Info("%s: token rejected, refreshing once", apiID)
		token, err = c.Tokens.Refresh(ctx, token)
		if err != nil {
			return nil, err
		}
		p, env, status, err = c.post(ctx, path, apiID, token, body, contYn, nextKey)
		if err != nil {
			return nil, err
		}
		if tokenRejected(status, env) {
			c.Logger.Error("%s: refreshed token rejected as well", apiID)
			c.Tokens.Invalidate(token)
			return nil, helpers.NewAuthError("Session expired, please log in again", nil)
		}
	}

	if status < 200 || status > 299 {
		return nil, helpers.NewTransportError(apiID+" failed with HTTP "+strconv.Itoa(status), nil)
	}
	if env == nil {
		return nil, helpers.NewTransportError(apiID+" returned an undecodable body", nil)
	}
	if env.ReturnCode != 0 {
		c.Logger.Error("%s failed: [%d] %s", apiID, env.ReturnCode, env.ReturnMsg)
		return nil, upstreamError(env)
	}
	return p, nil
}

// -----------------------------------------------------------------------------

// post performs a single HTTP exchange. The envelope is nil when the body is
// not JSON.
func (c *Client) post(ctx context.Context, path, apiID, token string, body interface{}, contYn, nextKey string) (*page, *envelope, int, error) {
	req := c.Net.R(ctx).
		SetHeader("Content-Type", "application/json;charset=UTF-8").
		SetHeader("api-id", apiID).
		SetAuthToken(token).
		SetBody(body)
	if contYn != "" {
		req.SetHeader("cont-yn", contYn).SetHeader("next-key", nextKey)
	}

	resp, err := req.Post(path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, 0, helpers.NewTransportError(apiID+" cancelled", ctx.Err())
		}
		return nil, nil, 0, helpers.NewTransportError(apiID+" request failed", err)
	}

	p := pageOf(resp)
	var env envelope
	if err := json.Unmarshal(p.body, &env); err != nil {
		return p, nil, resp.StatusCode(), nil
	}
	return p, &env, resp.StatusCode(), nil
}

// -----------------------------------------------------------------------------

func pageOf(resp *resty.Response) *page {
	return &page{
		body:    resp.Body(),
		contYn:  resp.Header().Get("cont-yn"),
		nextKey: resp.Header().Get("next-key"),
	}
}

// -----------------------------------------------------------------------------

// tokenRejected reports HTTP 401 or an 8005 code in the body.
func tokenRejected(status int, env *envelope) bool {
	if status == http.StatusUnauthorized {
		return true
	}
	return env != nil && env.ReturnCode != 0 && helpers.IsTokenError(upstreamError(env))
}

// -----------------------------------------------------------------------------

func upstreamError(env *envelope) *helpers.UpstreamError {
	code := helpers.ExtractCode(env.ReturnMsg)
	if code == "" {
		code = strconv.Itoa(env.ReturnCode)
	}
	return helpers.NewUpstreamError(code, env.ReturnMsg)
}

// -----------------------------------------------------------------------------

func decode(apiID string, body []byte, out interface{}) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return helpers.NewTransportError(apiID+" returned an undecodable body", err)
	}
	return nil
}
