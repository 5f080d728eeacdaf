package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 5, cfg.Imports.TimeTolerance)
	assert.Equal(t, 15*time.Minute, cfg.Imports.VerdictTTL)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, "1.5H", cfg.Documents.DefaultDuration)
	assert.Equal(t, 2, cfg.Documents.WorkerConcurrency)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("CACHE_BACKEND", " Redis ")
	v.Set("IMPORTS_VERDICT_TTL", "not-a-duration")
	v.Set("IMPORTS_MAX_FILE_SIZE", 0)
	v.Set("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg := fromViper(v)

	assert.Equal(t, CacheBackendRedis, cfg.Cache.Backend)
	assert.Equal(t, 15*time.Minute, cfg.Imports.VerdictTTL)
	assert.Equal(t, int64(10*1024*1024), cfg.Imports.MaxFileSizeBytes)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}
