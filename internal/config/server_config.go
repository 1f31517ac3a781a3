package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const (
	// EnvPrefix is prepended to every environment variable, e.g. GATEWAY_CHAIN_RPC_URLS.
	EnvPrefix = "GATEWAY"
	// EnvConfigFile optionally points to a yaml/json/toml file read before the environment.
	EnvConfigFile = "GATEWAY_CONFIG_FILE"
	// DotEnvFile is loaded into the process environment when present.
	DotEnvFile = ".env"
)

type LoggerServer struct {
	Level              string `mapstructure:"level"`
	RequestLevel       string `mapstructure:"request_level"`
	LogRequestBody     bool   `mapstructure:"log_request_body"`
	LogResponseBody    bool   `mapstructure:"log_response_body"`
	PrettyPrintConsole bool   `mapstructure:"pretty_print_console"`
	Caller             bool   `mapstructure:"caller"`
}

// ZerologLevel parses Level, falling back to debug.
func (l LoggerServer) ZerologLevel() zerolog.Level {
	return parseLevel(l.Level)
}

// ZerologRequestLevel parses RequestLevel, falling back to debug.
func (l LoggerServer) ZerologRequestLevel() zerolog.Level {
	return parseLevel(l.RequestLevel)
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.DebugLevel
	}

	return level
}

type EchoServer struct {
	Debug                          bool          `mapstructure:"debug"`
	ListenAddress                  string        `mapstructure:"listen_address"`
	HideInternalServerErrorDetails bool          `mapstructure:"hide_internal_server_error_details"`
	BodyLimit                      string        `mapstructure:"body_limit"`
	EnableCORSMiddleware           bool          `mapstructure:"enable_cors_middleware"`
	EnableRecoverMiddleware        bool          `mapstructure:"enable_recover_middleware"`
	EnableRequestIDMiddleware      bool          `mapstructure:"enable_request_id_middleware"`
	EnableLoggerMiddleware         bool          `mapstructure:"enable_logger_middleware"`
	EnableTimeoutMiddleware        bool          `mapstructure:"enable_timeout_middleware"`
	RequestTimeout                 time.Duration `mapstructure:"request_timeout"`
	// Root-level routes (/deploy, /read, ...) kept for existing clients.
	EnableLegacyRoutes bool `mapstructure:"enable_legacy_routes"`
}

type ChainServer struct {
	// RPCURLs are tried in order; the client fails over to the next one.
	RPCURLs     []string      `mapstructure:"rpc_urls"`
	ChainID     int64         `mapstructure:"chain_id"` // zero asks the provider
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

type GatewayServer struct {
	SignTimeout        time.Duration `mapstructure:"sign_timeout"`
	SubmitTimeout      time.Duration `mapstructure:"submit_timeout"`
	SubmitAttempts     int           `mapstructure:"submit_attempts"`
	InitialBackoff     time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff         time.Duration `mapstructure:"max_backoff"`
	BackoffFactor      float64       `mapstructure:"backoff_factor"`
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	ConfirmTimeout     time.Duration `mapstructure:"confirm_timeout"`
	DefaultGasLimit    uint64        `mapstructure:"default_gas_limit"`
	GasPriceMultiplier uint64        `mapstructure:"gas_price_multiplier"`
	MaxInFlight        int           `mapstructure:"max_in_flight"`
	ReconcileInterval  time.Duration `mapstructure:"reconcile_interval"`
	EnableReconciler   bool          `mapstructure:"enable_reconciler"`
}

type ContractServer struct {
	ABIPath        string        `mapstructure:"abi_path"`
	BytecodePath   string        `mapstructure:"bytecode_path"`
	DeployGasLimit uint64        `mapstructure:"deploy_gas_limit"`
	WriteGasLimit  uint64        `mapstructure:"write_gas_limit"`
	CallRetryDelay time.Duration `mapstructure:"call_retry_delay"`
}

type JournalServer struct {
	// StoreType is "memory" or "bolt".
	StoreType string `mapstructure:"store_type"`
	Path      string `mapstructure:"path"`
}

type ManagementServer struct {
	EnableMetrics       bool          `mapstructure:"enable_metrics"`
	ReadinessTimeout    time.Duration `mapstructure:"readiness_timeout"`
	LivenessTimeout     time.Duration `mapstructure:"liveness_timeout"`
	ProbeListenAddress  string        `mapstructure:"probe_listen_address"`
	ProbeRequestTimeout time.Duration `mapstructure:"probe_request_timeout"`
}

type Server struct {
	Logger     LoggerServer     `mapstructure:"logger"`
	Echo       EchoServer       `mapstructure:"echo"`
	Chain      ChainServer      `mapstructure:"chain"`
	Gateway    GatewayServer    `mapstructure:"gateway"`
	Contract   ContractServer   `mapstructure:"contract"`
	Journal    JournalServer    `mapstructure:"journal"`
	Management ManagementServer `mapstructure:"management"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", zerolog.DebugLevel.String())
	v.SetDefault("logger.request_level", zerolog.DebugLevel.String())
	v.SetDefault("logger.log_request_body", false)
	v.SetDefault("logger.log_response_body", false)
	v.SetDefault("logger.pretty_print_console", false)
	v.SetDefault("logger.caller", false)

	v.SetDefault("echo.debug", false)
	v.SetDefault("echo.listen_address", ":8080")
	v.SetDefault("echo.hide_internal_server_error_details", true)
	v.SetDefault("echo.body_limit", "1M")
	v.SetDefault("echo.enable_cors_middleware", true)
	v.SetDefault("echo.enable_recover_middleware", true)
	v.SetDefault("echo.enable_request_id_middleware", true)
	v.SetDefault("echo.enable_logger_middleware", true)
	v.SetDefault("echo.enable_timeout_middleware", true)
	v.SetDefault("echo.request_timeout", 5*time.Minute)
	v.SetDefault("echo.enable_legacy_routes", true)

	v.SetDefault("chain.rpc_urls", []string{"http://127.0.0.1:8545"})
	v.SetDefault("chain.chain_id", 0)
	v.SetDefault("chain.call_timeout", 15*time.Second)

	v.SetDefault("gateway.sign_timeout", 5*time.Second)
	v.SetDefault("gateway.submit_timeout", 10*time.Second)
	v.SetDefault("gateway.submit_attempts", 5)
	v.SetDefault("gateway.initial_backoff", 500*time.Millisecond)
	v.SetDefault("gateway.max_backoff", 10*time.Second)
	v.SetDefault("gateway.backoff_factor", 2.0)
	v.SetDefault("gateway.poll_interval", 2*time.Second)
	v.SetDefault("gateway.confirm_timeout", 2*time.Minute)
	v.SetDefault("gateway.default_gas_limit", 300_000)
	v.SetDefault("gateway.gas_price_multiplier", 100)
	v.SetDefault("gateway.max_in_flight", 64)
	v.SetDefault("gateway.reconcile_interval", 30*time.Second)
	v.SetDefault("gateway.enable_reconciler", true)

	v.SetDefault("contract.abi_path", "contract.abi")
	v.SetDefault("contract.bytecode_path", "contract.bin")
	v.SetDefault("contract.deploy_gas_limit", 1_500_000)
	v.SetDefault("contract.write_gas_limit", 0)
	v.SetDefault("contract.call_retry_delay", 250*time.Millisecond)

	v.SetDefault("journal.store_type", "bolt")
	v.SetDefault("journal.path", "gateway-journal.db")

	v.SetDefault("management.enable_metrics", true)
	v.SetDefault("management.readiness_timeout", 4*time.Second)
	v.SetDefault("management.liveness_timeout", 9*time.Second)
	v.SetDefault("management.probe_listen_address", "http://127.0.0.1:8080")
	v.SetDefault("management.probe_request_timeout", 10*time.Second)
}

// Load reads the configuration from an optional .env file, an optional
// config file named by GATEWAY_CONFIG_FILE and GATEWAY_* environment
// variables, in increasing order of precedence.
func Load() (Server, error) {
	if err := gotenv.Load(DotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Server{}, errors.Wrapf(err, "failed to load %s", DotEnvFile)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := os.Getenv(EnvConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Server{}, errors.Wrapf(err, "failed to read config file %s", file)
		}
	}

	var cfg Server
	if err := v.Unmarshal(&cfg); err != nil {
		return Server{}, errors.Wrap(err, "failed to decode config")
	}

	cfg.Chain.RPCURLs = splitURLs(cfg.Chain.RPCURLs)

	return cfg, nil
}

// DefaultServiceConfigFromEnv returns the server config as parsed from
// environment variables and their respective defaults. An unreadable
// config is fatal.
func DefaultServiceConfigFromEnv() Server {
	cfg, err := Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	return cfg
}

// splitURLs flattens entries holding comma separated lists, which is how a
// single env var carries several RPC endpoints.
func splitURLs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, entry := range in {
		for _, u := range strings.Split(entry, ",") {
			if u = strings.TrimSpace(u); u != "" {
				out = append(out, u)
			}
		}
	}

	return out
}
