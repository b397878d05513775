package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/dunamismax/mkpdf/internal/storage"
	"github.com/dunamismax/mkpdf/internal/telemetry"
)

type Config struct {
	Render    RenderConfig
	Log       LogConfig
	Telemetry telemetry.TraceConfig
	Storage   storage.Config
	Metrics   MetricsConfig
}

type RenderConfig struct {
	DPI float64
}

type LogConfig struct {
	Level string
}

type MetricsConfig struct {
	// TextfilePath receives the run metrics in Prometheus text format when
	// set.
	TextfilePath string
}

func Load() Config {
	return Config{
		Render: RenderConfig{
			DPI: envFloat("MKPDF_DPI", 300),
		},
		Log: LogConfig{
			Level: env("MKPDF_LOG_LEVEL", "info"),
		},
		Telemetry: telemetry.TraceConfig{
			ServiceName:  env("MKPDF_SERVICE_NAME", "mkpdf"),
			Exporter:     env("MKPDF_TRACE_EXPORTER", "none"),
			OTLPEndpoint: env("MKPDF_OTLP_ENDPOINT", ""),
			OTLPInsecure: envBool("MKPDF_OTLP_INSECURE", false),
		},
		Storage: storage.Config{
			Endpoint: env("MINIO_ENDPOINT", ""),
			Access:   env("MINIO_ACCESS_KEY", ""),
			Secret:   env("MINIO_SECRET_KEY", ""),
			Bucket:   env("MINIO_BUCKET", "mkpdf"),
			UseSSL:   envBool("MINIO_USE_SSL", false),
		},
		Metrics: MetricsConfig{
			TextfilePath: env("MKPDF_METRICS_FILE", ""),
		},
	}
}

func env(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func envFloat(key string, fallback float64) float64 {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
