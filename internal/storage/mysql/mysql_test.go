package mysql

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cohort-retention/internal/storage"
)

func TestToMySQLDSN_URL(t *testing.T) {
	for _, scheme := range []string{"mysql", "mariadb"} {
		t.Run(scheme, func(t *testing.T) {
			dsn, err := toMySQLDSN(scheme + "://shop:s3cret@db.internal:3307/sales")
			require.NoError(t, err)

			cfg, err := mysql.ParseDSN(dsn)
			require.NoError(t, err)
			assert.Equal(t, "shop", cfg.User)
			assert.Equal(t, "s3cret", cfg.Passwd)
			assert.Equal(t, "tcp", cfg.Net)
			assert.Equal(t, "db.internal:3307", cfg.Addr)
			assert.Equal(t, "sales", cfg.DBName)
			assert.True(t, cfg.InterpolateParams)
			assert.Equal(t, "UTC", cfg.Loc.String())
		})
	}
}

func TestToMySQLDSN_DefaultPort(t *testing.T) {
	dsn, err := toMySQLDSN("mysql://shop@db.internal/sales")
	require.NoError(t, err)

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db.internal:3306", cfg.Addr)
}

func TestToMySQLDSN_Incomplete(t *testing.T) {
	_, err := toMySQLDSN("mysql://db.internal:3306/sales")
	assert.Error(t, err)

	_, err = toMySQLDSN("mariadb://shop@db.internal:3306")
	assert.Error(t, err)
}

func TestToMySQLDSN_Native(t *testing.T) {
	native := "shop:pw@tcp(127.0.0.1:3306)/sales"
	dsn, err := toMySQLDSN(native)
	require.NoError(t, err)
	assert.Equal(t, native, dsn)

	_, err = toMySQLDSN("not a dsn")
	assert.Error(t, err)
}

func TestNewSources_ValidateTable(t *testing.T) {
	_, err := NewCustomerSource(nil, "customers`; DROP TABLE x")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	src, err := NewCustomerSource(nil, "")
	require.NoError(t, err)
	assert.Equal(t, "mysql:customers", src.Name())

	orders, err := NewOrderSource(nil, "shop.orders")
	require.NoError(t, err)
	assert.Equal(t, "mysql:shop.orders", orders.Name())
}
