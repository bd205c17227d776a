package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnString(t *testing.T) {
	tests := []struct {
		name   string
		params NewDBPoolParams
		want   string
	}{
		{
			name:   "default user",
			params: NewDBPoolParams{DBHost: "localhost", DBPort: "5432", DBName: "healthdash"},
			want:   "postgres://postgres@localhost:5432/healthdash",
		},
		{
			name:   "user and password",
			params: NewDBPoolParams{DBHost: "db", DBPort: "5433", DBName: "hd", DBUser: "serj", DBPassword: "p@ss"},
			want:   "postgres://serj:p%40ss@db:5433/hd",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConnString(tt.params))
		})
	}
}

func TestNewDBPool_Lazy(t *testing.T) {
	// pgxpool does not connect until the first acquire
	pool, err := NewDBPool(context.Background(), NewDBPoolParams{
		DBHost:   "localhost",
		DBPort:   "5432",
		DBName:   "healthdash",
		MaxConns: 3,
	})
	require.NoError(t, err)
	defer pool.Close()
	assert.Equal(t, int32(3), pool.Config().MaxConns)
	assert.NotNil(t, PoolCollector(pool, "healthdash"))
}
