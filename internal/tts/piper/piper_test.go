package piper

import (
	"bufio"
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nadzzz/voxbridge/internal/config"
	"github.com/nadzzz/voxbridge/internal/tts"
)

// fakeServer accepts one connection, checks the synthesize event and replies
// with the given events.
func fakeServer(t *testing.T, reply func(conn net.Conn)) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = lis.Close() })

	go func() {
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		evt, _, err := readEvent(bufio.NewReader(conn))
		if err != nil || evt.Type != "synthesize" {
			return
		}
		reply(conn)
	}()
	return lis.Addr().String()
}

func TestNew(t *testing.T) {
	_, err := New(config.PiperConfig{})
	require.Error(t, err)

	s, err := New(config.PiperConfig{Endpoint: "tcp://piper:10200"})
	require.NoError(t, err)
	require.Equal(t, "piper:10200", s.endpoint)
	require.Equal(t, defaultVoice, s.voice)
	require.Equal(t, defaultTimeout, s.timeout)
}

func TestSynthesize_CollectsChunksIntoWAV(t *testing.T) {
	addr := fakeServer(t, func(conn net.Conn) {
		_ = writeEvent(conn, event{Type: "audio-start", Data: map[string]any{"rate": 16000, "channels": 1, "width": 2}}, nil)
		_ = writeEvent(conn, event{Type: "audio-chunk"}, []byte{1, 2, 3, 4})
		_ = writeEvent(conn, event{Type: "audio-chunk"}, []byte{5, 6})
		_ = writeEvent(conn, event{Type: "audio-stop"}, nil)
	})

	s, err := New(config.PiperConfig{Endpoint: addr, Timeout: 2 * time.Second})
	require.NoError(t, err)

	res, err := s.Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "audio/wav", res.ContentType)
	require.Len(t, res.Audio, 44+6)
	require.Equal(t, "RIFF", string(res.Audio[0:4]))
	require.Equal(t, "WAVE", string(res.Audio[8:12]))
	require.Equal(t, uint32(16000), binary.LittleEndian.Uint32(res.Audio[24:28]))
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6}, res.Audio[44:])
}

func TestSynthesize_ServerError(t *testing.T) {
	addr := fakeServer(t, func(conn net.Conn) {
		_ = writeEvent(conn, event{Type: "error", Data: map[string]any{"text": "voice not found"}}, nil)
	})

	s, err := New(config.PiperConfig{Endpoint: addr, Timeout: 2 * time.Second})
	require.NoError(t, err)

	_, err = s.Synthesize(context.Background(), "hello")
	var upErr *tts.UpstreamError
	require.ErrorAs(t, err, &upErr)
	require.ErrorContains(t, err, "voice not found")
}

func TestSynthesize_Unreachable(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	s, err := New(config.PiperConfig{Endpoint: addr, Timeout: time.Second})
	require.NoError(t, err)

	_, err = s.Synthesize(context.Background(), "hello")
	var upErr *tts.UpstreamError
	require.ErrorAs(t, err, &upErr)
}

func TestParseHeader(t *testing.T) {
	j, p, err := parseHeader("12 0\n")
	require.NoError(t, err)
	require.Equal(t, 12, j)
	require.Equal(t, 0, p)

	_, _, err = parseHeader("garbage\n")
	require.Error(t, err)

	_, _, err = parseHeader("-1 0\n")
	require.Error(t, err)
}
