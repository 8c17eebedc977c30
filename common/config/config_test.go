package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_GetDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "fpms", Password: "secret", Database: "registry", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=fpms password=secret dbname=registry sslmode=disable", c.GetDSN())
}

func TestDatabaseConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("REF_HOST", "ref.internal")
	t.Setenv("REF_PORT", "6432")
	t.Setenv("REF_NAME", "reference")
	t.Setenv("REF_MAX_CONNS", "4")

	c := DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", Database: "fpms", MaxConns: 25}
	c.LoadFromEnv("REF")

	assert.Equal(t, "ref.internal", c.Host)
	assert.Equal(t, 6432, c.Port)
	assert.Equal(t, "reference", c.Database)
	assert.Equal(t, 4, c.MaxConns)
	assert.Equal(t, "postgres", c.User)
}

func TestRedisConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("CACHE_ADDR", "cache:6380")
	t.Setenv("CACHE_DB", "3")

	c := RedisConfig{Addr: "localhost:6379"}
	c.LoadFromEnv("CACHE")
	assert.Equal(t, "cache:6380", c.Addr)
	assert.Equal(t, 3, c.DB)
}
