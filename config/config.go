package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Session  SessionConfig
	Push     PushConfig
	Redis    RedisConfig
	Hub      HubConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

// UpstreamConfig points at the order/catalog HTTP API.
type UpstreamConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

type SessionConfig struct {
	ActorID   int64
	ActorName string
	Role      string
	Token     string
}

// PushConfig selects the push transport and tunes reconnection.
type PushConfig struct {
	Transport         string // redis | websocket | kafka
	BackoffBaseMillis int
	BackoffMaxMillis  int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type HubConfig struct {
	URL string
}

type KafkaConfig struct {
	Brokers       []string
	TopicOrder    string
	ConsumerGroup string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	actorID, _ := strconv.ParseInt(getEnv("ACTOR_ID", "0"), 10, 64)
	upstreamTimeout, _ := strconv.Atoi(getEnv("UPSTREAM_TIMEOUT_SECONDS", "10"))
	backoffBase, _ := strconv.Atoi(getEnv("PUSH_BACKOFF_BASE_MS", "500"))
	backoffMax, _ := strconv.Atoi(getEnv("PUSH_BACKOFF_MAX_MS", "30000"))

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Upstream: UpstreamConfig{
			BaseURL:        getEnv("UPSTREAM_BASE_URL", "http://localhost:5269"),
			TimeoutSeconds: upstreamTimeout,
		},
		Session: SessionConfig{
			ActorID:   actorID,
			ActorName: getEnv("ACTOR_NAME", ""),
			Role:      getEnv("ACTOR_ROLE", "USER"),
			Token:     getEnv("ACTOR_TOKEN", ""),
		},
		Push: PushConfig{
			Transport:         getEnv("PUSH_TRANSPORT", "redis"),
			BackoffBaseMillis: backoffBase,
			BackoffMaxMillis:  backoffMax,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Hub: HubConfig{
			URL: getEnv("HUB_URL", "ws://localhost:5269/hubs/order"),
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicOrder:    getEnv("KAFKA_TOPIC_ORDER_EVENTS", "order-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "ordersync-agent"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
	}

	log.Printf("Config loaded: env=%s, port=%s, transport=%s", cfg.Server.Env, cfg.Server.Port, cfg.Push.Transport)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
