package db

import (
	"testing"

	"github.com/smallbiznis/salesengine/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialect_SelectsDriver(t *testing.T) {
	for _, dbType := range []string{"postgres", "MySQL", " sqlite "} {
		d, err := Dialect(config.Config{DBType: dbType, DBPath: "test.db"})
		require.NoError(t, err, dbType)
		assert.NotNil(t, d)
	}

	_, err := Dialect(config.Config{DBType: "oracle"})
	assert.Error(t, err)
}

func TestPostgresDSN_DefaultsSSLMode(t *testing.T) {
	dsn := postgresDSN(config.Config{DBHost: "db", DBUser: "app", DBPassword: "pw", DBName: "sales", DBPort: "5432"})
	assert.Equal(t, "host=db user=app password=pw dbname=sales port=5432 sslmode=disable TimeZone=UTC", dsn)
}

func TestMySQLDSN(t *testing.T) {
	dsn := mysqlDSN(config.Config{DBHost: "db", DBUser: "app", DBPassword: "pw", DBName: "sales", DBPort: "3306"})
	assert.Equal(t, "app:pw@tcp(db:3306)/sales?charset=utf8mb4&parseTime=True&loc=UTC", dsn)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "salesengine.db?_busy_timeout=5000&_foreign_keys=on", sqliteDSN(""))
	assert.Equal(t, "file:x.db?cache=shared&_busy_timeout=5000&_foreign_keys=on", sqliteDSN("file:x.db?cache=shared"))
}
