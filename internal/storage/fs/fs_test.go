package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Samratsinh-git/YandexDownloader/internal/domain"
	obmocks "github.com/Samratsinh-git/YandexDownloader/internal/observability/mocks"
)

func entries(t *testing.T, dir string) []string {
	t.Helper()
	list, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(list))
	for _, e := range list {
		names = append(names, e.Name())
	}
	return names
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	sep := string(filepath.Separator)

	tests := []struct {
		name        string
		destination string
		want        string
		wantErr     bool
	}{
		{name: "existing directory", destination: dir, want: filepath.Join(dir, "out.zip")},
		{name: "trailing separator", destination: dir + sep, want: filepath.Join(dir, "out.zip")},
		{name: "explicit file", destination: filepath.Join(dir, "custom.bin"), want: filepath.Join(dir, "custom.bin")},
		{name: "missing parent", destination: filepath.Join(dir, "nope", "custom.bin"), wantErr: true},
		{name: "missing directory with separator", destination: filepath.Join(dir, "nope") + sep, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePath(tt.destination, "out.zip")
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrFilesystem)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePath_ParentIsFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := ResolvePath(filepath.Join(file, "child"), "out.zip")
	assert.ErrorIs(t, err, domain.ErrFilesystem)
}

func TestSink_CommitWritesTarget(t *testing.T) {
	dir := t.TempDir()
	sink := New(dir, obmocks.NewPermissiveLogger())
	ctx := context.Background()

	obj, err := sink.Create(ctx, "out.zip")
	require.NoError(t, err)

	_, err = obj.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = obj.WriteAt([]byte("world"), 6)
	require.NoError(t, err)

	// nothing visible under the final name yet
	_, err = os.Stat(filepath.Join(dir, "out.zip"))
	assert.True(t, os.IsNotExist(err))

	path, err := obj.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out.zip"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
	assert.Equal(t, []string{"out.zip"}, entries(t, dir))

	// Abort after Commit keeps the file
	require.NoError(t, obj.Abort())
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSink_AbortKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.zip")
	require.NoError(t, os.WriteFile(target, []byte("original"), 0o644))

	sink := New(target, obmocks.NewPermissiveLogger())
	obj, err := sink.Create(context.Background(), "ignored.zip")
	require.NoError(t, err)

	_, err = obj.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, obj.Abort())
	require.NoError(t, obj.Abort())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
	assert.Equal(t, []string{"out.zip"}, entries(t, dir))

	_, err = obj.Commit(context.Background())
	assert.ErrorIs(t, err, domain.ErrFilesystem)
}

func TestSink_Overwrite(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.zip")
	require.NoError(t, os.WriteFile(target, []byte("old content that is longer"), 0o644))

	obj, err := New(target, obmocks.NewPermissiveLogger()).Create(context.Background(), "x")
	require.NoError(t, err)
	_, err = obj.Write([]byte("new"))
	require.NoError(t, err)

	_, err = obj.Commit(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestSink_CreateErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing directory", func(t *testing.T) {
		_, err := New(filepath.Join(dir, "missing", "out.zip"), obmocks.NewPermissiveLogger()).
			Create(context.Background(), "out.zip")
		assert.ErrorIs(t, err, domain.ErrFilesystem)
		_, statErr := os.Stat(filepath.Join(dir, "missing"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("target is a directory", func(t *testing.T) {
		require.NoError(t, os.Mkdir(filepath.Join(dir, "out.zip"), 0o755))
		_, err := New(dir, obmocks.NewPermissiveLogger()).Create(context.Background(), "out.zip")
		assert.ErrorIs(t, err, domain.ErrFilesystem)
	})

	t.Run("read-only directory", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("permission bits are not enforced for root")
		}
		ro := filepath.Join(dir, "ro")
		require.NoError(t, os.Mkdir(ro, 0o555))
		t.Cleanup(func() { os.Chmod(ro, 0o755) })

		_, err := New(ro, obmocks.NewPermissiveLogger()).Create(context.Background(), "out.zip")
		assert.ErrorIs(t, err, domain.ErrFilesystem)
	})

	t.Run("directory that refuses new files", func(t *testing.T) {
		// creating files under /proc fails even for root
		if _, err := os.Stat("/proc/self"); err != nil {
			t.Skip("procfs not available")
		}

		_, err := New("/proc", obmocks.NewPermissiveLogger()).Create(context.Background(), "out.zip")
		assert.ErrorIs(t, err, domain.ErrFilesystem)
		assert.Contains(t, err.Error(), "temporary file")
	})
}

func TestSink_ReadOnlyTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.zip")
	require.NoError(t, os.WriteFile(target, []byte("original"), 0o644))
	require.NoError(t, os.Chmod(target, 0o444))

	_, err := New(target, obmocks.NewPermissiveLogger()).Create(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrFilesystem)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o444), info.Mode().Perm())
	assert.Equal(t, []string{"out.zip"}, entries(t, dir))
}

func TestSink_OverwriteKeepsMode(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.zip")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644))
	require.NoError(t, os.Chmod(target, 0o640))

	obj, err := New(target, obmocks.NewPermissiveLogger()).Create(context.Background(), "x")
	require.NoError(t, err)
	_, err = obj.Write([]byte("new"))
	require.NoError(t, err)
	_, err = obj.Commit(context.Background())
	require.NoError(t, err)

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}
