package cookbook

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestNew(t *testing.T) {
	t.Run("metadata.json", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, MetadataJSON), `{"name": "julia", "version": "0.1.0", "maintainer": "Chef"}`)

		c, err := New(dir)
		require.NoError(t, err)
		require.Equal(t, Cookbook{Name: "julia", Version: "0.1.0", Path: dir}, *c)
	})

	t.Run("metadata.rb", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, MetadataRB), `name 'rust'
maintainer 'Chef Software, Inc.'
version '2.3.4' # bumped by the pipeline
depends 'build-essential'
`)

		c, err := New(dir)
		require.NoError(t, err)
		require.Equal(t, Cookbook{Name: "rust", Version: "2.3.4", Path: dir}, *c)
	})

	t.Run("metadata.json wins over metadata.rb", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, MetadataJSON), `{"name": "from-json", "version": "1.0.0"}`)
		writeFile(t, filepath.Join(dir, MetadataRB), "name 'from-rb'\nversion '2.0.0'\n")

		c, err := New(dir)
		require.NoError(t, err)
		require.Equal(t, "from-json", c.Name)
	})

	t.Run("not a cookbook", func(t *testing.T) {
		dir := t.TempDir()

		_, err := New(dir)
		require.Error(t, err)
		require.True(t, IsNotACookbook(err))

		var nac *NotACookbookError
		require.ErrorAs(t, err, &nac)
		require.Equal(t, dir, nac.Path)
		require.Contains(t, err.Error(), dir)
	})

	t.Run("regular file is not a cookbook", func(t *testing.T) {
		dir := t.TempDir()
		f := filepath.Join(dir, "README")
		writeFile(t, f, "hello")

		c, err := Load(f)
		require.NoError(t, err)
		require.Nil(t, c)
	})

	t.Run("relative paths resolve to the same cookbook", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "cookbooks", "a", MetadataJSON), `{"name": "a", "version": "1.0.0"}`)

		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(dir))
		t.Cleanup(func() {
			require.NoError(t, os.Chdir(wd))
		})

		c1, err := New("cookbooks/a")
		require.NoError(t, err)
		c2, err := New("./cookbooks/../cookbooks/a/")
		require.NoError(t, err)

		require.True(t, c1.Equal(*c2))
		require.True(t, c2.Equal(*c1))
		require.True(t, c1.Equal(*c1))
	})

	t.Run("broken metadata is an error, not a missing cookbook", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, MetadataJSON), `{"name":`)

		c, err := Load(dir)
		require.Error(t, err)
		require.False(t, IsNotACookbook(err))
		require.Nil(t, c)
	})
}

func TestNewWithReader(t *testing.T) {
	files := map[string]string{
		"/repo/cookbooks/old/metadata.rb": "name 'old'\nversion '0.0.1'\n",
	}

	read := func(path string) ([]byte, error) {
		content, ok := files[path]
		if !ok {
			return nil, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
		}
		return []byte(content), nil
	}

	c, err := NewWithReader("/repo/cookbooks/old", read)
	require.NoError(t, err)
	require.Equal(t, Cookbook{Name: "old", Version: "0.0.1", Path: "/repo/cookbooks/old"}, *c)

	c, err = LoadWithReader("/repo/cookbooks/new", read)
	require.NoError(t, err)
	require.Nil(t, c)
}

func TestEqual(t *testing.T) {
	a := Cookbook{Name: "a", Version: "1.0.0", Path: "/repo"}

	require.True(t, a.Equal(a))
	require.False(t, a.Equal(Cookbook{Name: "b", Version: "1.0.0", Path: "/repo"}))
	require.False(t, a.Equal(Cookbook{Name: "a", Version: "1.0.1", Path: "/repo"}))
	require.False(t, a.Equal(Cookbook{Name: "a", Version: "1.0.0", Path: "/other"}))
}
