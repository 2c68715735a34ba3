package global

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig is loaded once at startup and handed down explicitly; no package
// in this repo reads the environment after boot.
type AppConfig struct {
	ListenAddr string
	GatewayID  string

	// JWTSecret signs bearer tokens; ServerSecret salts session-key
	// derivation. Rotating ServerSecret invalidates every derived key and
	// forces re-handshakes, which is the intended recovery path.
	JWTSecret    []byte
	ServerSecret []byte
	TokenTTL     time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MongoURI string
	MongoDB  string

	// RelayBackend selects the cross-instance fabric: "redis", "nats" or
	// empty for single-instance mode.
	RelayBackend string
	RelayChannel string
	NatsServers  []string
}

func Load() AppConfig {
	return AppConfig{
		ListenAddr:    envStr("LISTEN_ADDR", ":8080"),
		GatewayID:     envStr("GATEWAY_ID", "rg-1"),
		JWTSecret:     []byte(envStr("JWT_SECRET", "dev-jwt-secret-change-me")),
		ServerSecret:  []byte(envStr("SERVER_SECRET", "dev-server-secret-change-me")),
		TokenTTL:      envDuration("TOKEN_TTL", 2*time.Hour),
		RedisAddr:     envStr("REDIS_ADDR", ""),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		RedisDB:       int(envInt64("REDIS_DB", 0)),
		MongoURI:      envStr("MONGO_URI", ""),
		MongoDB:       envStr("MONGO_DB", "relaygate"),
		RelayBackend:  envStr("RELAY_BACKEND", ""),
		RelayChannel:  envStr("RELAY_CHANNEL", "relaygate.events"),
		NatsServers:   envList("NATS_SERVERS", "nats://127.0.0.1:4222"),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key, def string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
