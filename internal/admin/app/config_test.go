package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/bakeboard/internal/admin/domain"
	"github.com/aussiebroadwan/bakeboard/internal/admin/service"
	"github.com/aussiebroadwan/bakeboard/internal/admin/store/drivers/sqlite"
	"github.com/aussiebroadwan/bakeboard/pkg/cryptox"
	"github.com/aussiebroadwan/bakeboard/pkg/httpx"
	"github.com/aussiebroadwan/bakeboard/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, DriverSQLite, cfg.Database.Driver)
	require.Equal(t, "admin.db", cfg.Database.File)
	require.Equal(t, domain.DefaultValidity, cfg.InvitationValidity)
	require.Zero(t, cfg.InvitationRetention, "purging is opt-in")
	require.Equal(t, "AU", cfg.PhoneRegion)
	require.Equal(t, 10, cfg.SequenceAttempts)
	require.Equal(t, 4, cfg.Notify.Workers)
	require.True(t, cfg.EnableMetrics)
	require.Equal(t, httpx.DefaultLimits(), cfg.RateLimit.Limits())
}

func TestDefaultRetentionKeepsRevokedInvitations(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	cfg, err := LoadConfig()
	require.NoError(t, err)

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))
	t.Cleanup(func() { cryptox.SetPepperPath("") })

	db, err := sqlite.NewStore(filepath.Join(t.TempDir(), "admin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.ApplyMigrations())

	ctx := context.Background()
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	svc := &service.InvitationService{Store: db, Now: func() time.Time { return now }}

	inv, _, err := svc.Issue(ctx, service.IssueParams{Email: "old@bakery.example", Role: domain.RoleStaff})
	require.NoError(t, err)
	_, err = svc.Revoke(ctx, inv.ID)
	require.NoError(t, err)

	later := now.Add(3 * 365 * 24 * time.Hour)
	hk := service.NewHousekeepingService(db, slogx.Discard(), cfg.HousekeepingInterval, cfg.InvitationRetention)
	hk.Now = func() time.Time { return later }
	require.Zero(t, hk.Cleanup(ctx))

	svc.Now = func() time.Time { return later }
	_, _, err = svc.Resend(ctx, inv.ID, 0)
	require.NoError(t, err, "revoked row survives and can be resent")
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://bakery@db/admin?sslmode=disable")
	t.Setenv("INVITATION_VALIDITY", "72h")
	t.Setenv("SMTP_HOST", "smtp.bakery.example")
	t.Setenv("SMTP_FROM", "kitchen@bakery.example")
	t.Setenv("NOTIFY_DELAY", "2s")
	t.Setenv("RATELIMIT_STRICT_REQUESTS", "2")
	t.Setenv("ENABLE_SWAGGER", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, DriverPostgres, cfg.Database.Driver)
	require.Equal(t, "postgres://bakery@db/admin?sslmode=disable", cfg.Database.URL)
	require.Equal(t, 72*time.Hour, cfg.InvitationValidity)
	require.Equal(t, "smtp.bakery.example", cfg.SMTP.Host)
	require.Equal(t, 587, cfg.SMTP.Port)
	require.Equal(t, 2*time.Second, cfg.Notify.Delay)
	require.False(t, cfg.EnableSwagger)

	limits := cfg.RateLimit.Limits()
	require.Equal(t, 2, limits.Strict.RequestsPerWindow)
	require.Equal(t, httpx.StrictLimit.Window, limits.Strict.Window)
	require.Equal(t, httpx.ModerateLimit, limits.Moderate)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
jwt_secret: `+testSecret+`
phone_region: NZ
database:
  file: /var/lib/bakeboard/admin.db
ratelimit:
  lenient:
    burst: 500
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PHONE_REGION", "GB")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "/var/lib/bakeboard/admin.db", cfg.Database.File)
	require.Equal(t, "GB", cfg.PhoneRegion, "environment wins over the file")
	require.Equal(t, 500, cfg.RateLimit.Limits().Lenient.Burst)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing secret",
			env:  map[string]string{"JWT_SECRET": ""},
			want: "JWT_SECRET",
		},
		{
			name: "postgres without url",
			env:  map[string]string{"JWT_SECRET": testSecret, "DATABASE_DRIVER": "postgres"},
			want: "DATABASE_URL",
		},
		{
			name: "unknown driver",
			env:  map[string]string{"JWT_SECRET": testSecret, "DATABASE_DRIVER": "mysql"},
			want: "not supported",
		},
		{
			name: "validity too long",
			env:  map[string]string{"JWT_SECRET": testSecret, "INVITATION_VALIDITY": "2400h"},
			want: "INVITATION_VALIDITY",
		},
		{
			name: "smtp without sender",
			env:  map[string]string{"JWT_SECRET": testSecret, "SMTP_HOST": "smtp.bakery.example"},
			want: "SMTP_FROM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}
