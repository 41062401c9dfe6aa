package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "15m", want: 15 * time.Minute},
		{in: "7d", want: 7 * 24 * time.Hour},
		{in: " 1h30m ", want: 90 * time.Minute},
		{in: "xd", wantErr: true},
		{in: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDatabaseNameFromURI(t *testing.T) {
	assert.Equal(t, "journal", DatabaseNameFromURI("mongodb://localhost:27017/journal", "vent"))
	assert.Equal(t, "journal", DatabaseNameFromURI("mongodb+srv://u:p@cluster.mongodb.net/journal?retryWrites=true", "vent"))
	assert.Equal(t, "vent", DatabaseNameFromURI("mongodb://localhost:27017", "vent"))
	assert.Equal(t, "vent", DatabaseNameFromURI("mongodb://localhost:27017/?replicaSet=rs0", "vent"))
}

func TestLoad_DevelopmentDefaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("FRONTEND_URL", "http://localhost:5173/")
	t.Setenv("API_PREFIX", "api/v1/")
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.True(t, cfg.TrustProxy)
	assert.True(t, cfg.MongoAllowStandalone)
	assert.NotEmpty(t, cfg.JWTAccessSecret)
	assert.NotEqual(t, cfg.JWTAccessSecret, cfg.JWTRefreshSecret)
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ProductionRequiresReplicaSet(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_ACCESS_SECRET", "access")
	t.Setenv("JWT_REFRESH_SECRET", "refresh")

	t.Setenv("MONGO_ALLOW_STANDALONE", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MongoAllowStandalone)

	t.Setenv("MONGO_ALLOW_STANDALONE", "true")
	_, err = Load()
	assert.Error(t, err)
}
