package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "SERVER_PORT=9090\n" +
		"KAFKA_BROKERS=kafka-1:9092, kafka-2:9092\n" +
		"PREORDER_TTL=20m\n" +
		"MIN_POINT_USAGE=500\n" +
		"POINT_EARN_RATE=0.1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cf, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "9090", cf.ServerPort)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cf.Brokers())
	require.Equal(t, 20*time.Minute, cf.PreOrderTTL)
	require.Equal(t, int64(500), cf.MinPointUsage)
	require.Equal(t, "0.1", cf.PointEarnRate)
	// 未設定的使用預設值
	require.Equal(t, int64(3000), cf.ShippingFee)
	require.Equal(t, 10*time.Second, cf.TossTimeout)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SHIPPING_FEE", "2500")
	t.Setenv("ENV", "production")

	cf, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, int64(2500), cf.ShippingFee)
	require.False(t, cf.IsDebug())
	require.Empty(t, cf.Brokers())
}

func TestLoadAdminConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin.yaml")
	content := "admins:\n  - user_id: 7\n    name: ops\n  - user_id: 9\n    name: cs\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cf, err := LoadAdminConfig(path)
	require.NoError(t, err)
	require.Len(t, cf.Admins, 2)
	require.True(t, cf.IsAdmin(7))
	require.True(t, cf.IsAdmin(9))
	require.False(t, cf.IsAdmin(8))
	require.False(t, cf.IsAdmin(0))

	var empty *AdminConfig
	require.False(t, empty.IsAdmin(7))

	_, err = LoadAdminConfig(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
}
