package idgen

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ========================================
// UUID 单元测试
// ========================================

func TestNewUUIDEngine_Unit(t *testing.T) {
	tests := []struct {
		name        string
		opts        []UUIDOption
		wantVersion string
		expectError bool
	}{
		{name: "default v4", wantVersion: UUIDv4},
		{name: "explicit v7", opts: []UUIDOption{WithUUIDVersion(UUIDv7)}, wantVersion: UUIDv7},
		{name: "empty falls back to v4", opts: []UUIDOption{WithUUIDVersion("")}, wantVersion: UUIDv4},
		{name: "unsupported", opts: []UUIDOption{WithUUIDVersion("v1")}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, err := NewUUIDEngine(tt.opts...)
			if tt.expectError {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, eng.Version())
		})
	}
}

func TestUUIDEngine_Next_Unit(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		version string
		want    uuid.Version
	}{
		{UUIDv4, 4},
		{UUIDv7, 7},
	} {
		t.Run(tc.version, func(t *testing.T) {
			eng, err := NewUUIDEngine(WithUUIDVersion(tc.version))
			require.NoError(t, err)
			require.NoError(t, eng.Follow(ctx, "sessions", 0))

			seen := make(map[string]struct{}, 1000)
			for i := 0; i < 1000; i++ {
				id, err := eng.Next(ctx, "sessions")
				require.NoError(t, err)
				assert.False(t, id.IsNumeric())

				s := id.String()
				require.Len(t, s, 36)
				parsed, err := uuid.Parse(s)
				require.NoError(t, err)
				assert.Equal(t, tc.want, parsed.Version())
				assert.Equal(t, uuid.RFC4122, parsed.Variant())

				_, dup := seen[s]
				require.False(t, dup, "duplicate uuid %s", s)
				seen[s] = struct{}{}
			}
		})
	}
}
