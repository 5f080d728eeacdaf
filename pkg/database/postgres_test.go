package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/invigilation-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "exam", Password: "pw", Name: "invigilation", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5433 user=exam password=pw dbname=invigilation sslmode=disable", dsn)
}
