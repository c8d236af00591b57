package artifact

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nadzzz/voxbridge/internal/config"
)

func newPublisher(t *testing.T) *Publisher {
	t.Helper()
	p, err := New(config.ArtifactsConfig{
		StaticRoot: filepath.Join(t.TempDir(), "public"),
		Directory:  "audio",
		Extension:  "mp3",
	}, "https://voice.example.com/")
	require.NoError(t, err)
	return p
}

func TestNew_CreatesDirectory(t *testing.T) {
	p := newPublisher(t)
	info, err := os.Stat(p.Dir())
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.Equal(t, "audio", p.Directory())
}

func TestNew_Validation(t *testing.T) {
	root := t.TempDir()

	_, err := New(config.ArtifactsConfig{StaticRoot: root}, "http://x")
	require.Error(t, err)

	_, err = New(config.ArtifactsConfig{Directory: "audio"}, "http://x")
	require.Error(t, err)

	_, err = New(config.ArtifactsConfig{StaticRoot: root, Directory: "audio"}, "")
	require.Error(t, err)
}

func TestPublish_ResolveRoundTrip(t *testing.T) {
	p := newPublisher(t)
	audio := bytes.Repeat([]byte{0xFF, 0xF3, 0x44, 0xC4}, 4096)

	a, err := p.Publish(context.Background(), audio)
	require.NoError(t, err)
	require.Equal(t, len(audio), a.Size)
	require.Equal(t, "https://voice.example.com/audio/"+a.ID+".mp3", a.URL)

	path, err := p.Resolve(a.URL)
	require.NoError(t, err)
	require.Equal(t, a.Path, path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, audio, got)
}

func TestPublish_UniqueNamesAndNoTempLeftovers(t *testing.T) {
	p := newPublisher(t)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		a, err := p.Publish(context.Background(), []byte("x"))
		require.NoError(t, err)
		require.False(t, seen[a.ID], "duplicate id %s", a.ID)
		seen[a.ID] = true
	}

	entries, err := os.ReadDir(p.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 20)
	for _, e := range entries {
		require.False(t, strings.HasPrefix(e.Name(), ".tmp-"), e.Name())
	}
}

func TestPublish_EmptyAudio(t *testing.T) {
	p := newPublisher(t)
	_, err := p.Publish(context.Background(), nil)
	require.Error(t, err)
}

func TestPublish_StorageError(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced")
	}
	p := newPublisher(t)
	require.NoError(t, os.Chmod(p.Dir(), 0o555))
	t.Cleanup(func() { _ = os.Chmod(p.Dir(), 0o755) })

	_, err := p.Publish(context.Background(), []byte("x"))
	var sErr *StorageError
	require.ErrorAs(t, err, &sErr)
	require.Equal(t, "create", sErr.Op)
}

func TestPublish_CancelledContext(t *testing.T) {
	p := newPublisher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Publish(ctx, []byte("x"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestResolve(t *testing.T) {
	p := newPublisher(t)

	path, err := p.Resolve("http://other-host/audio/abc.mp3")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(p.Dir(), "abc.mp3"), path)

	for _, bad := range []string{
		"https://voice.example.com/other/abc.mp3",
		"https://voice.example.com/audio/../secret",
		"https://voice.example.com/audio/sub/abc.mp3",
		"https://voice.example.com/audio/.tmp-abc",
	} {
		_, err := p.Resolve(bad)
		require.Error(t, err, bad)
	}
}
