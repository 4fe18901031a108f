package pathutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "a.txt", "a.txt"},
		{"nested", "bigger/name.bin", "bigger/name.bin"},
		{"leading slash", "/etc/nginx", "etc/nginx"},
		{"trailing slash", "etc/nginx/", "etc/nginx"},
		{"backslashes", `data\map\tile.bin`, "data/map/tile.bin"},
		{"internal double slashes", "etc//nginx", "etc/nginx"},
		{"only slashes", "///", ""},
		{"empty", "", ""},
		// Dot and dotdot segments are preserved (for Rel to reject)
		{"dotdot in middle", "a/../b", "a/../b"},
		{"dotdot at start", "../etc", "../etc"},
		{"dot in middle", "a/./b", "a/./b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestRel(t *testing.T) {
	got, err := Rel("dir/file.bin")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("dir", "file.bin"), got)

	got, err = Rel(`/dir\sub//file.bin`)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("dir", "sub", "file.bin"), got)

	for _, bad := range []string{"", "/", ".", "./", "..", "../x", "a/../../x", "a/./b"} {
		_, err := Rel(bad)
		require.ErrorIs(t, err, ErrEscapes, "name %q", bad)
	}
}
