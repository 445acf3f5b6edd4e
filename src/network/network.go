package network

import (
	"context"
	"time"

	"kiwoom-dashboard/src/logger"
	"kiwoom-dashboard/src/models"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// -----------------------------------------------------------------------------

// NetworkManager owns the HTTP client shared by every broker call. Requests
// are paced by a token bucket instead of a fixed sleep between calls.
type NetworkManager struct {
	Config  *models.MBrokerConfig
	Client  *resty.Client
	Limiter *rate.Limiter
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewNetworkManager(cfg *models.MBrokerConfig, baseURL string, log *logger.Logger) *NetworkManager {
	nm := &NetworkManager{
		Config:  cfg,
		Limiter: newLimiter(cfg.RequestsPerSecond),
		Logger:  log,
	}
	nm.Client = nm.createClient(baseURL)
	return nm
}

// -----------------------------------------------------------------------------

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// -----------------------------------------------------------------------------

func (nm *NetworkManager) createClient(baseURL string) *resty.Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(time.Duration(nm.Config.RequestTimeout) * time.Second)
	client.SetHeader("User-Agent", nm.Config.UserAgent)
	// the broker client performs its own single token retry
	client.SetRetryCount(0)

	if nm.Config.Proxy != "" {
		client.SetProxy(nm.Config.Proxy)
	}

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return nm.Limiter.Wait(req.Context())
	})
	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		nm.Logger.Debug("%s %s -> %d (%v)", resp.Request.Method, resp.Request.URL, resp.StatusCode(), resp.Time())
		return nil
	})

	return client
}

// -----------------------------------------------------------------------------

// R starts a request bound to ctx.
func (nm *NetworkManager) R(ctx context.Context) *resty.Request {
	return nm.Client.R().SetContext(ctx)
}
