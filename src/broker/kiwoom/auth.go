package kiwoom

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"kiwoom-dashboard/src/helpers"
	"kiwoom-dashboard/src/logger"
	"kiwoom-dashboard/src/models"
	"kiwoom-dashboard/src/network"
)

const (
	pathToken  = "/oauth2/token"
	pathRevoke = "/oauth2/revoke"
	pathHealth = "/start.html"
)

// -----------------------------------------------------------------------------
// Authenticator
// -----------------------------------------------------------------------------

// Authenticator talks to the OAuth endpoints with the app key and secret of
// the configured server.
type Authenticator struct {
	Config     *models.MBrokerConfig
	ServerType models.ServerType
	Net        *network.NetworkManager
	Logger     *logger.Logger
	server     models.MBrokerServerConfig
	now        func() time.Time
}

// -----------------------------------------------------------------------------

func NewAuthenticator(cfg *models.MBrokerConfig, log *logger.Logger) *Authenticator {
	server := cfg.ActiveServer()
	return &Authenticator{
		Config:     cfg,
		ServerType: models.ServerType(cfg.ServerType),
		Net:        network.NewNetworkManager(cfg, server.Domain, log),
		Logger:     log,
		server:     server,
		now:        time.Now,
	}
}

// -----------------------------------------------------------------------------

type tokenResponse struct {
	Token      string `json:"token"`
	TokenType  string `json:"token_type"`
	ExpiresDt  string `json:"expires_dt"`
	ReturnCode int    `json:"return_code"`
	ReturnMsg  string `json:"return_msg"`
}

// -----------------------------------------------------------------------------
// IssueToken
// -----------------------------------------------------------------------------

func (a *Authenticator) IssueToken(ctx context.Context) (*models.MToken, error) {
	if a.server.AppKey == "" || a.server.SecretKey == "" {
		return nil, helpers.NewAuthError("app key and secret key are not configured for the "+string(a.ServerType)+" server", nil)
	}

	a.Logger.Info("issuing access token (server: %s)", a.ServerType)

	body := map[string]string{
		"grant_type": "client_credentials",
		"appkey":     a.server.AppKey,
		"secretkey":  a.server.SecretKey,
	}
	resp, err := a.Net.R(ctx).
		SetHeader("Content-Type", "application/json;charset=UTF-8").
		SetBody(body).
		Post(pathToken)
	if err != nil {
		return nil, helpers.NewTransportError("could not reach the broker to issue a token", err)
	}

	var res tokenResponse
	if jsonErr := json.Unmarshal(resp.Body(), &res); jsonErr != nil {
		if resp.StatusCode() != http.StatusOK {
			return nil, helpers.NewTransportError("token request failed with HTTP "+strconv.Itoa(resp.StatusCode()), nil)
		}
		return nil, helpers.NewTransportError("token response is not valid JSON", jsonErr)
	}
	if res.ReturnCode != 0 {
		code := helpers.ExtractCode(res.ReturnMsg)
		if code == "" {
			code = strconv.Itoa(res.ReturnCode)
		}
		a.Logger.Error("token issue failed: [%d] %s", res.ReturnCode, res.ReturnMsg)
		return nil, helpers.NewUpstreamError(code, res.ReturnMsg)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, helpers.NewTransportError("token request failed with HTTP "+strconv.Itoa(resp.StatusCode()), nil)
	}
	if res.Token == "" || res.ExpiresDt == "" {
		return nil, helpers.NewTransportError("token response is missing token or expiry", nil)
	}

	expires, err := parseTimestamp(res.ExpiresDt)
	if err != nil {
		return nil, helpers.NewTransportError("token expiry '"+res.ExpiresDt+"' is malformed", err)
	}

	a.Logger.Info("access token issued, expires %s", expires.Format(time.RFC3339))
	return &models.MToken{AccessToken: res.Token, ExpiresAt: expires, IssuedAt: a.now()}, nil
}

// -----------------------------------------------------------------------------
// RevokeToken
// -----------------------------------------------------------------------------

func (a *Authenticator) RevokeToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	body := map[string]string{
		"appkey":    a.server.AppKey,
		"secretkey": a.server.SecretKey,
		"token":     token,
	}
	resp, err := a.Net.R(ctx).
		SetHeader("Content-Type", "application/json;charset=UTF-8").
		SetBody(body).
		Post(pathRevoke)
	if err != nil {
		return helpers.NewTransportError("could not reach the broker to revoke the token", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return helpers.NewTransportError("revoke failed with HTTP "+strconv.Itoa(resp.StatusCode()), nil)
	}

	var res tokenResponse
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		return helpers.NewTransportError("revoke response is not valid JSON", err)
	}
	if res.ReturnCode != 0 {
		return helpers.NewUpstreamError(strconv.Itoa(res.ReturnCode), res.ReturnMsg)
	}

	a.Logger.Info("access token revoked")
	return nil
}

// -----------------------------------------------------------------------------
// CheckServer
// -----------------------------------------------------------------------------

func (a *Authenticator) CheckServer(ctx context.Context) error {
	resp, err := a.Net.R(ctx).Get(pathHealth)
	if err != nil {
		return helpers.NewTransportError("the broker server is unreachable", err)
	}
	if resp.StatusCode() != http.StatusOK {
		a.Logger.Warning("broker health check returned %d", resp.StatusCode())
		return helpers.NewTransportError("the broker server is under maintenance (HTTP "+strconv.Itoa(resp.StatusCode())+")", nil)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (a *Authenticator) ServerInfo() models.MServerInfo {
	return ServerInfoFor(a.ServerType, a.server.Domain)
}

// ServerInfoFor describes a server type for display.
func ServerInfoFor(serverType models.ServerType, domain string) models.MServerInfo {
	if serverType == models.ServerReal {
		return models.MServerInfo{ServerType: serverType, ServerName: "Real Trading", Color: "#F44336", Domain: domain}
	}
	return models.MServerInfo{ServerType: models.ServerMock, ServerName: "Mock Trading", Color: "#4CAF50", Domain: domain}
}
