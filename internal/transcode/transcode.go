// Package transcode re-encodes synthesized speech into the audio profile the
// voice platform accepts for SSML <audio> playback.
//
// Encoding is delegated to an ffmpeg subprocess. Each call is a scoped
// resource: spawn, write the whole input, close stdin, drain stdout and
// stderr, wait for the exit status. The call's context kills the process on
// every exit path, so no ffmpeg is ever left running.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/nadzzz/voxbridge/internal/config"
)

const (
	defaultFFmpeg        = "ffmpeg"
	defaultTimeout       = 5 * time.Second
	defaultMaxConcurrent = 4

	maxStderrBytes = 8 << 10
)

// profile is the fixed output format: stereo MP3, 48 kbps, 24 kHz, no Xing
// header frame, streamed to stdout.
var profile = []string{
	"-hide_banner",
	"-loglevel", "error",
	"-i", "pipe:0",
	"-ac", "2",
	"-codec:a", "libmp3lame",
	"-b:a", "48k",
	"-ar", "24000",
	"-write_xing", "0",
	"-f", "mp3",
	"pipe:1",
}

// ContentType is the MIME type of every transcoded buffer.
const ContentType = "audio/mpeg"

// Error reports an abnormal ffmpeg termination.
type Error struct {
	// ExitCode is the process exit status, or -1 if it was killed.
	ExitCode int
	// Stderr is ffmpeg's diagnostic output. It is logged, never shown to users.
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transcode: ffmpeg exited with status %d: %v", e.ExitCode, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transcoder runs ffmpeg with the fixed profile.
type Transcoder struct {
	path    string
	timeout time.Duration
	slots   *semaphore.Weighted
}

// New creates a Transcoder from config.
func New(cfg config.TranscodeConfig) *Transcoder {
	t := &Transcoder{path: cfg.FFmpegPath, timeout: cfg.Timeout}
	if t.path == "" {
		t.path = defaultFFmpeg
	}
	if t.timeout <= 0 {
		t.timeout = defaultTimeout
	}
	n := cfg.MaxConcurrent
	if n <= 0 {
		n = defaultMaxConcurrent
	}
	t.slots = semaphore.NewWeighted(int64(n))
	return t
}

// Args returns the ffmpeg arguments used for every call.
func (t *Transcoder) Args() []string {
	return append([]string(nil), profile...)
}

// Transcode pipes raw through ffmpeg and returns the re-encoded audio.
// A panic inside the subprocess plumbing is returned as an error.
func (t *Transcoder) Transcode(ctx context.Context, raw []byte) (out []byte, err error) {
	if len(raw) == 0 {
		return nil, errors.New("transcode: empty input")
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("transcode: waiting for a free slot: %w", err)
	}
	defer t.slots.Release(1)

	start := time.Now()
	if r := panics.Try(func() { out, err = t.run(ctx, raw) }); r != nil {
		return nil, fmt.Errorf("transcode: %w", r.AsError())
	}
	if err != nil {
		var tErr *Error
		if errors.As(err, &tErr) {
			slog.Warn("ffmpeg failed", "exit_code", tErr.ExitCode, "stderr", tErr.Stderr)
		}
		return nil, err
	}

	slog.Debug("transcode complete", "in_bytes", len(raw), "out_bytes", len(out), "duration", time.Since(start))
	return out, nil
}

func (t *Transcoder) run(ctx context.Context, raw []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, t.path, profile...)
	cmd.WaitDelay = time.Second

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("transcode: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("transcode: stdout pipe: %w", err)
	}
	stderr := &capBuffer{max: maxStderrBytes}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("transcode: starting %s: %w", t.path, err)
	}

	var out bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		defer stdin.Close()
		_, err := stdin.Write(raw)
		// ffmpeg may exit before consuming everything; the exit status tells why.
		if errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&out, stdout)
		return err
	})
	ioErr := g.Wait()
	waitErr := cmd.Wait()

	if waitErr != nil {
		tErr := &Error{ExitCode: -1, Stderr: strings.TrimSpace(stderr.String()), Err: waitErr}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			tErr.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			tErr.Err = fmt.Errorf("%w (%w)", ctxErr, waitErr)
		}
		return nil, tErr
	}
	if ioErr != nil {
		return nil, fmt.Errorf("transcode: piping audio: %w", ioErr)
	}
	if out.Len() == 0 {
		return nil, &Error{ExitCode: 0, Stderr: strings.TrimSpace(stderr.String()), Err: errors.New("no output produced")}
	}
	return out.Bytes(), nil
}

// capBuffer keeps the first max bytes written and discards the rest.
type capBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *capBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.buf.Len(); room > 0 {
		b.buf.Write(p[:min(len(p), room)])
	}
	return len(p), nil
}

func (b *capBuffer) String() string { return b.buf.String() }
