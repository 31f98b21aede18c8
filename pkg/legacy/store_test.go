package legacy

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records/pkg/config"
)

func storeFactories(t *testing.T) map[string]func() Store {
	factories := map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"file": func() Store {
			s, err := NewFileStore(filepath.Join(t.TempDir(), "legacy.json"))
			require.NoError(t, err)
			return s
		},
	}
	// Set LEGACY_REDIS_TEST_ADDR=host:port to run against a live server.
	if addr := os.Getenv("LEGACY_REDIS_TEST_ADDR"); addr != "" {
		host, portStr, _ := strings.Cut(addr, ":")
		port, err := strconv.Atoi(portStr)
		require.NoError(t, err)
		factories["redis"] = func() Store {
			client, err := NewRedisClient(config.RedisConfig{Host: host, Port: port})
			require.NoError(t, err)
			return NewRedisStore(client, "test:"+uuid.NewString()+":")
		}
	}
	return factories
}

func TestStorePreservesInsertionOrder(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory()
			defer s.Close()

			require.NoError(t, s.Set(ctx, "students", `[{"id":"1"}]`))
			require.NoError(t, s.Set(ctx, "activeYearId", "2024-2025"))
			require.NoError(t, s.Set(ctx, "enrollments__2024-2025", "[]"))
			require.NoError(t, s.Set(ctx, "students", `[{"id":"2"}]`))

			keys, err := s.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"students", "activeYearId", "enrollments__2024-2025"}, keys)

			value, ok, err := s.Get(ctx, "students")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[{"id":"2"}]`, value)

			require.NoError(t, s.Remove(ctx, "activeYearId"))
			require.NoError(t, s.Remove(ctx, "missing"))
			keys, err = s.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"students", "enrollments__2024-2025"}, keys)

			_, ok, err = s.Get(ctx, "activeYearId")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStoreHandlesAwkwardKeys(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := factory()
			defer s.Close()

			awkward := []string{"ui.settings*v?2", ":1", ":students"}
			for _, key := range awkward {
				require.NoError(t, s.Set(ctx, key, "not json {"+key))
			}
			for _, key := range awkward {
				value, ok, err := s.Get(ctx, key)
				require.NoError(t, err)
				assert.True(t, ok, key)
				assert.Equal(t, "not json {"+key, value)
			}
			keys, err := s.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, awkward, keys)

			require.NoError(t, s.Remove(ctx, ":1"))
			keys, err = s.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"ui.settings*v?2", ":students"}, keys)
		})
	}
}

func TestJSONPathEscapesLeadingColon(t *testing.T) {
	assert.Equal(t, `\:1`, JSONPath(":1"))
	assert.Equal(t, `a:1`, JSONPath("a:1"))
	assert.Equal(t, `ui\.settings`, JSONPath("ui.settings"))
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "legacy.json")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "sidebarHidden", "true"))
	require.NoError(t, s.Set(ctx, "academicYears", `[{"id":"2024-2025","nom":"2024/2025"}]`))
	require.NoError(t, s.Close())

	_, _, err = s.Get(ctx, "sidebarHidden")
	assert.ErrorIs(t, err, ErrClosed)

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	keys, err := reopened.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sidebarHidden", "academicYears"}, keys)
}

func TestFileStoreReadsHandWrittenDocuments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"students":[{"id":"1"}],"activeYearId":"2024-2025"}`), 0o644))

	s, err := NewFileStore(path)
	require.NoError(t, err)
	value, ok, err := s.Get(context.Background(), "students")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"id":"1"}]`, value)
}

func TestFileStoreRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	require.NoError(t, os.WriteFile(path, []byte(`["not","an","object"]`), 0o644))

	_, err := NewFileStore(path)
	require.Error(t, err)
}

func TestKeyForYear(t *testing.T) {
	assert.Equal(t, "enrollments__2024-2025", KeyForYear(KeyEnrollments, "2024-2025"))
}

func TestOpenSelectsDriver(t *testing.T) {
	s, err := Open(config.LegacyConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(config.LegacyConfig{Driver: "file", FilePath: filepath.Join(t.TempDir(), "l.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(config.LegacyConfig{Driver: "etcd"})
	require.Error(t, err)
}

func TestNewRedisClientFailsFastWhenUnreachable(t *testing.T) {
	_, err := NewRedisClient(config.RedisConfig{Host: "127.0.0.1", Port: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping legacy redis")
}
