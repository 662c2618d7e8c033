package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type Config struct {
	LogLevel string

	RabbitMqHost     string
	RabbitMqPort     string
	RabbitMqUser     string
	RabbitMqPassword string
	ListenQueue      string

	AssetsBasePath string
	OutputDirName  string

	StoreBackend    string
	StoreEndpoint   string
	StoreRegion     string
	StoreAccessKey  string
	StoreSecretKey  string
	StoreBucketId   string
	StoreUseSSL     bool
	ReuseUploadAuth bool

	FFmpeg  string
	FFprobe string
}

func Load() Config {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("Could not load the .env file")
	}

	c := Config{}
	c.LogLevel = cast.ToString(getOrReturnDefault("LOG_LEVEL", "debug"))

	c.RabbitMqHost = cast.ToString(getOrReturnDefault("RABBITMQ_HOST", "localhost"))
	c.RabbitMqPort = cast.ToString(getOrReturnDefault("RABBITMQ_PORT", "5672"))
	c.RabbitMqUser = cast.ToString(getOrReturnDefault("RABBITMQ_USER", "guest"))
	c.RabbitMqPassword = cast.ToString(getOrReturnDefault("RABBITMQ_PASSWORD", "guest"))
	c.ListenQueue = cast.ToString(getOrReturnDefault("LISTEN_QUEUE", "transcode-input-assets"))

	c.AssetsBasePath = cast.ToString(getOrReturnDefault("ASSETS_BASE_PATH", "transcode-assets"))
	c.OutputDirName = cast.ToString(getOrReturnDefault("OUTPUT_DIRECTORY", "output"))

	c.StoreBackend = cast.ToString(getOrReturnDefault("STORE_BACKEND", "minio"))
	c.StoreEndpoint = cast.ToString(getOrReturnDefault("STORE_ENDPOINT", "localhost:9000"))
	c.StoreRegion = cast.ToString(getOrReturnDefault("STORE_REGION", ""))
	c.StoreAccessKey = cast.ToString(getOrReturnDefault("STORE_ACCESS_KEY", ""))
	c.StoreSecretKey = cast.ToString(getOrReturnDefault("STORE_SECRET_KEY", ""))
	c.StoreBucketId = cast.ToString(getOrReturnDefault("STORE_OUTPUT_BUCKET_ID", ""))
	c.StoreUseSSL = cast.ToBool(getOrReturnDefault("STORE_USE_SSL", false))
	c.ReuseUploadAuth = cast.ToBool(getOrReturnDefault("STORE_REUSE_UPLOAD_AUTH", false))

	c.FFmpeg = cast.ToString(getOrReturnDefault("FFMPEG", "ffmpeg"))
	c.FFprobe = cast.ToString(getOrReturnDefault("FFPROBE", "ffprobe"))

	return c
}

func getOrReturnDefault(key string, defaultValue interface{}) interface{} {
	_, exists := os.LookupEnv(key)
	if exists {
		return os.Getenv(key)
	}

	return defaultValue
}
