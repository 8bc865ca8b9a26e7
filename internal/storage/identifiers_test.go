package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTableName(t *testing.T) {
	valid := []string{"customers", "orders_2020", "_tmp", "shop.orders", "Shop.Customers"}
	for _, name := range valid {
		assert.True(t, ValidTableName(name), name)
	}

	invalid := []string{"", "1orders", "orders;drop table x", "a.b.c", "orders ", "shop.", `"orders"`}
	for _, name := range invalid {
		assert.False(t, ValidTableName(name), name)
	}
}

func TestCheckTableName(t *testing.T) {
	assert.NoError(t, CheckTableName("customers", "shop.customers"))

	err := CheckTableName("orders", "orders;--")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), `orders table "orders;--"`)
}

func TestCheckDatabaseName(t *testing.T) {
	assert.NoError(t, CheckDatabaseName("retention"))
	assert.ErrorIs(t, CheckDatabaseName("shop.retention"), ErrInvalidInput)
	assert.ErrorIs(t, CheckDatabaseName("x; DROP DATABASE y"), ErrInvalidInput)
	assert.ErrorIs(t, CheckDatabaseName(""), ErrInvalidInput)
}
