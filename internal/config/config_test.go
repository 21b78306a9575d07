package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	type want struct {
		runAddress   string
		auditLogPath string
		dedupTTL     time.Duration
	}

	tests := []struct {
		name  string
		env   map[string]string
		flags []string
		want  want
	}{
		{
			name:  "defaults",
			env:   map[string]string{},
			flags: []string{},
			want: want{
				runAddress:   "localhost:3000",
				auditLogPath: "webhook-log.txt",
				dedupTTL:     24 * time.Hour,
			},
		},
		{
			name: "env only",
			env: map[string]string{
				"RUN_ADDRESS":    "localhost:9999",
				"AUDIT_LOG_PATH": "/var/log/points.txt",
				"DEDUP_TTL":      "1h",
			},
			flags: []string{},
			want: want{
				runAddress:   "localhost:9999",
				auditLogPath: "/var/log/points.txt",
				dedupTTL:     time.Hour,
			},
		},
		{
			name: "flags only",
			env:  map[string]string{},
			flags: []string{
				"-a", "localhost:7777",
				"-l", "flag-log.txt",
			},
			want: want{
				runAddress:   "localhost:7777",
				auditLogPath: "flag-log.txt",
				dedupTTL:     24 * time.Hour,
			},
		},
		{
			name: "env overrides flags",
			env: map[string]string{
				"RUN_ADDRESS":    "env:9000",
				"AUDIT_LOG_PATH": "env-log.txt",
			},
			flags: []string{
				"-a", "flag:8000",
				"-l", "flag-log.txt",
			},
			want: want{
				runAddress:   "env:9000",
				auditLogPath: "env-log.txt",
				dedupTTL:     24 * time.Hour,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			os.Args = append([]string{"test"}, tt.flags...)

			cfg, err := Parse()
			require.NoError(t, err)

			assert.Equal(t, tt.want.runAddress, cfg.RunAddress)
			assert.Equal(t, tt.want.auditLogPath, cfg.AuditLogPath)
			assert.Equal(t, tt.want.dedupTTL, cfg.DedupTTL)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		ShopifySecret: "secret",
		AccessToken:   "token",
		ShopName:      "shop",
	}
	require.NoError(t, cfg.Validate())

	cfg = &Config{ShopifySecret: "secret"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHOPIFY_ACCESS_TOKEN")
	assert.Contains(t, err.Error(), "SHOP_NAME")
	assert.NotContains(t, err.Error(), "SHOPIFY_SECRET")
}
