package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	LogFile  string         `yaml:"log_file"`
	GrpcHost string         `yaml:"grpc_host"`
	GrpcPort int            `yaml:"grpc_port"`
	Broker   MBrokerConfig  `yaml:"broker"`
	Refresh  MRefreshConfig `yaml:"refresh"`
	Relay    MRelayConfig   `yaml:"relay"`
	Storage  MStorageConfig `yaml:"storage"`
}

type MBrokerConfig struct {
	ServerType         string              `yaml:"server_type"` // "mock" or "real"
	Mock               MBrokerServerConfig `yaml:"mock"`
	Real               MBrokerServerConfig `yaml:"real"`
	Exchange           string              `yaml:"exchange"`        // KRX or NXT
	RequestTimeout     int                 `yaml:"timeout_seconds"` // per request
	RequestsPerSecond  float64             `yaml:"requests_per_second"`
	TokenExpireBuffer  int                 `yaml:"token_expire_buffer_seconds"`
	TokenCacheDir      string              `yaml:"token_cache_dir"`
	CheckServerOnLogin bool                `yaml:"check_server_on_login"`
	RestoreCachedToken bool                `yaml:"restore_cached_token"`
	UserAgent          string              `yaml:"user_agent"`
	Proxy              string              `yaml:"proxy"`
	ResponseCacheDir   string              `yaml:"response_cache_dir"`
	ResponseCacheTTL   int                 `yaml:"response_cache_ttl_seconds"` // negative disables
}

type MBrokerServerConfig struct {
	Domain    string `yaml:"domain"`
	AppKey    string `yaml:"app_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
}

type MRefreshConfig struct {
	IntervalSeconds       int  `yaml:"interval_seconds"`
	PauseWhenMarketClosed bool `yaml:"pause_when_market_closed"`
}

type MRelayConfig struct {
	SendBuffer int `yaml:"send_buffer"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

// ActiveServer returns the endpoint settings for the selected server type.
func (b MBrokerConfig) ActiveServer() MBrokerServerConfig {
	if b.ServerType == string(ServerReal) {
		return b.Real
	}
	return b.Mock
}
