// Package piper implements tts.Synthesizer against a self-hosted Piper server
// speaking the Wyoming protocol over TCP.
//
// Each Wyoming event is framed as:
//
//	<json_length> <payload_length>\n
//	<json_bytes>\n
//	<payload_bytes>   (if payload_length > 0)
//
// A synthesis round trip is one "synthesize" event answered by
// audio-start, audio-chunk*, audio-stop. The PCM chunks are wrapped in a WAV
// container so the transcoder can probe the input.
package piper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/nadzzz/voxbridge/internal/config"
	"github.com/nadzzz/voxbridge/internal/tts"
)

const (
	defaultVoice   = "en_US-lessac-medium"
	defaultTimeout = 7 * time.Second

	maxEventJSON    = 1 << 20
	maxEventPayload = 4 << 20
)

// Synthesizer talks to one Piper Wyoming endpoint with a fixed voice.
type Synthesizer struct {
	endpoint string
	voice    string
	timeout  time.Duration
}

// New creates a Piper synthesizer from config.
func New(cfg config.PiperConfig) (*Synthesizer, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "tcp://"), "http://")
	if endpoint == "" {
		return nil, errors.New("piper: endpoint must not be empty")
	}
	s := &Synthesizer{endpoint: endpoint, voice: cfg.Voice, timeout: cfg.Timeout}
	if s.voice == "" {
		s.voice = defaultVoice
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	return s, nil
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "piper" }

// Synthesize runs one Wyoming synthesize exchange and returns WAV audio.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (*tts.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("piper: empty text for synthesis")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", s.endpoint)
	if err != nil {
		return nil, &tts.UpstreamError{Backend: s.Name(), Err: err}
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	_ = conn.SetDeadline(deadline)

	synth := event{Type: "synthesize", Data: map[string]any{
		"text":  text,
		"voice": map[string]any{"name": s.voice},
	}}
	if err := writeEvent(conn, synth, nil); err != nil {
		return nil, &tts.UpstreamError{Backend: s.Name(), Err: fmt.Errorf("sending synthesize event: %w", err)}
	}

	format := pcmFormat{rate: 22050, channels: 1, width: 2}
	var pcm bytes.Buffer
	r := bufio.NewReader(conn)
	for {
		evt, payload, err := readEvent(r)
		if err != nil {
			return nil, &tts.UpstreamError{Backend: s.Name(), Err: fmt.Errorf("reading event: %w", err)}
		}

		switch evt.Type {
		case "audio-start":
			format.update(evt.Data)
		case "audio-chunk":
			pcm.Write(payload)
		case "audio-stop":
			if pcm.Len() == 0 {
				return nil, &tts.UpstreamError{Backend: s.Name(), Err: errors.New("no audio chunks received")}
			}
			slog.Debug("piper synthesis complete", "voice", s.voice, "pcm_bytes", pcm.Len(), "rate", format.rate)
			return &tts.Result{Audio: format.wav(pcm.Bytes()), ContentType: "audio/wav"}, nil
		case "error":
			msg, _ := evt.Data["text"].(string)
			return nil, &tts.UpstreamError{Backend: s.Name(), Err: fmt.Errorf("server error: %s", msg)}
		default:
			slog.Debug("piper ignoring event", "type", evt.Type)
		}
	}
}

// Close is a no-op; connections are per request.
func (s *Synthesizer) Close() error { return nil }

type event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

func writeEvent(w io.Writer, evt event, payload []byte) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d\n", len(body), len(payload))
	buf.Write(body)
	buf.WriteByte('\n')
	buf.Write(payload)
	_, err = w.Write(buf.Bytes())
	return err
}

func readEvent(r *bufio.Reader) (*event, []byte, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	jsonLen, payloadLen, err := parseHeader(header)
	if err != nil {
		return nil, nil, err
	}

	body := make([]byte, jsonLen+1) // trailing newline
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, fmt.Errorf("reading json: %w", err)
	}
	var evt event
	if err := json.Unmarshal(body[:jsonLen], &evt); err != nil {
		return nil, nil, fmt.Errorf("unmarshalling event: %w", err)
	}

	var payload []byte
	if payloadLen > 0 {
		payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, nil, fmt.Errorf("reading payload: %w", err)
		}
	}
	return &evt, payload, nil
}

func parseHeader(line string) (jsonLen, payloadLen int, err error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("invalid wyoming header %q", strings.TrimSpace(line))
	}
	if jsonLen, err = strconv.Atoi(fields[0]); err != nil || jsonLen < 0 || jsonLen > maxEventJSON {
		return 0, 0, fmt.Errorf("invalid json length %q", fields[0])
	}
	if payloadLen, err = strconv.Atoi(fields[1]); err != nil || payloadLen < 0 || payloadLen > maxEventPayload {
		return 0, 0, fmt.Errorf("invalid payload length %q", fields[1])
	}
	return jsonLen, payloadLen, nil
}

type pcmFormat struct {
	rate, channels, width int
}

func (f *pcmFormat) update(data map[string]any) {
	if v, ok := data["rate"].(float64); ok && v > 0 {
		f.rate = int(v)
	}
	if v, ok := data["channels"].(float64); ok && v > 0 {
		f.channels = int(v)
	}
	if v, ok := data["width"].(float64); ok && v > 0 {
		f.width = int(v)
	}
}

// wav prepends a canonical 44-byte RIFF header to little-endian PCM.
func (f pcmFormat) wav(pcm []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))

	le := binary.LittleEndian
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, le, uint32(36+len(pcm)))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, le, uint32(16))
	_ = binary.Write(&buf, le, uint16(1)) // PCM
	_ = binary.Write(&buf, le, uint16(f.channels))
	_ = binary.Write(&buf, le, uint32(f.rate))
	_ = binary.Write(&buf, le, uint32(f.rate*f.channels*f.width))
	_ = binary.Write(&buf, le, uint16(f.channels*f.width))
	_ = binary.Write(&buf, le, uint16(f.width*8))
	buf.WriteString("data")
	_ = binary.Write(&buf, le, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
