// Package stt maintains one duplex connection per call to the streaming
// speech-to-text service and turns its result events into transcript
// segments.
package stt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coachline/coachline/pkg/coach"
	"github.com/coachline/coachline/pkg/errorsx"
	"github.com/coachline/coachline/pkg/logging"
	"github.com/coachline/coachline/pkg/metrics"
)

// ErrTranscriptionUnavailable reports that connection retries were
// exhausted. The call keeps flowing on the telephony side; callers must
// stop forwarding audio instead of buffering forever.
var ErrTranscriptionUnavailable = errors.New("transcription unavailable")

var closeStreamMessage = []byte(`{"type":"CloseStream"}`)

// State is the session lifecycle: connecting -> connected ->
// (connected|reconnecting)* -> closed.
type State int32

const (
	StateConnecting State = iota
	StateConnected
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

type Config struct {
	URL      string
	APIKey   string
	Model    string
	Language string

	Encoding   string
	SampleRate int
	Channels   int

	// StaffSpeaker is the diarization speaker index attributed to the
	// staff member. Which side gets index 0 depends on call setup order
	// outside this core, so it stays configurable.
	StaffSpeaker int

	MaxConnectAttempts int
	ConnectBackoff     time.Duration

	// Params are extra query parameters merged over the defaults.
	Params map[string]string
}

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = "wss://api.deepgram.com/v1/listen"
	}
	if c.Model == "" {
		c.Model = "nova-2-phonecall"
	}
	if c.Language == "" {
		c.Language = "en-US"
	}
	if c.Encoding == "" {
		c.Encoding = "mulaw"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 8000
	}
	if c.Channels == 0 {
		c.Channels = 1
	}
	if c.MaxConnectAttempts <= 0 {
		c.MaxConnectAttempts = 5
	}
	if c.ConnectBackoff <= 0 {
		c.ConnectBackoff = 250 * time.Millisecond
	}
	return c
}

func (c Config) streamURL() (string, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("encoding", c.Encoding)
	q.Set("sample_rate", strconv.Itoa(c.SampleRate))
	q.Set("channels", strconv.Itoa(c.Channels))
	q.Set("model", c.Model)
	q.Set("language", c.Language)
	q.Set("punctuate", "true")
	q.Set("interim_results", "true")
	q.Set("diarize", "true")
	q.Set("smart_format", "true")
	for k, v := range c.Params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c Config) header() http.Header {
	h := http.Header{}
	if c.APIKey != "" {
		h.Set("Authorization", "Token "+c.APIKey)
	}
	return h
}

// SegmentWriter persists finalized segments.
type SegmentWriter interface {
	CreateTranscriptSegment(ctx context.Context, seg *coach.TranscriptSegment) error
}

// Coach is rearmed on each final segment and flushed once on close.
type Coach interface {
	SegmentFinalized()
	Close(ctx context.Context)
}

// Session owns the duplex speech connection for one call. All connection
// state, the audio backlog and the coach handle belong to this session
// alone; only the registry table is shared between calls.
type Session struct {
	cfg    Config
	call   coach.CallRef
	writer SegmentWriter
	coach  Coach
	logger *slog.Logger
	dialer *websocket.Dialer

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	backlog [][]byte
}

func NewSession(call coach.CallRef, cfg Config, writer SegmentWriter, coachHandle Coach, logger *slog.Logger) *Session {
	return &Session{
		cfg:    cfg.withDefaults(),
		call:   call,
		writer: writer,
		coach:  coachHandle,
		logger: logging.NewComponentLogger(logger, "stt_session").With(
			slog.String("call_id", call.CallID),
			slog.String("stream_id", call.TelephonySessionID)),
		dialer: websocket.DefaultDialer,
		state:  StateConnecting,
	}
}

// Call returns the immutable call identity pair.
func (s *Session) Call() coach.CallRef { return s.call }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect dials the speech service, retrying with doubling backoff up to
// the configured attempt count. On exhaustion the session is closed and
// ErrTranscriptionUnavailable is returned as a first-class value.
func (s *Session) Connect(ctx context.Context) error {
	streamURL, err := s.cfg.streamURL()
	if err != nil {
		s.markClosed()
		return errorsx.Wrap(err, errorsx.ReasonSTTConnect)
	}

	backoff := s.cfg.ConnectBackoff
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxConnectAttempts; attempt++ {
		conn, resp, err := s.dialer.DialContext(ctx, streamURL, s.cfg.header())
		if err == nil {
			s.attach(conn)
			go s.readLoop(conn)
			s.logger.Info("stt_connected",
				slog.Int("attempt", attempt),
				slog.String("model", s.cfg.Model))
			return nil
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		lastErr = err
		s.logger.Warn("stt_connect_attempt_failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
			slog.String("reason_code", string(errorsx.ReasonSTTConnect)))
		if attempt == s.cfg.MaxConnectAttempts {
			break
		}
		s.setState(StateReconnecting)
		select {
		case <-ctx.Done():
			s.markClosed()
			return errorsx.Wrap(ctx.Err(), errorsx.ReasonSTTConnect)
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	s.markClosed()
	metrics.ConnectFailures.Inc()
	err = fmt.Errorf("%w after %d attempts: %w", ErrTranscriptionUnavailable, s.cfg.MaxConnectAttempts, lastErr)
	return errorsx.Wrap(err, errorsx.ReasonSTTExhausted)
}

// attach installs the open connection and flushes the backlog in original
// order before any new audio can be written.
func (s *Session) attach(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
	for _, frame := range s.backlog {
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			s.logger.Warn("stt_backlog_flush_failed",
				slog.String("error", err.Error()),
				slog.String("reason_code", string(errorsx.ReasonSTTSend)))
			break
		}
		metrics.MediaFrames.Inc()
	}
	if n := len(s.backlog); n > 0 {
		s.logger.Info("stt_backlog_flushed", slog.Int("frames", n))
	}
	s.backlog = nil
	s.state = StateConnected
}

// SendAudio forwards one audio frame, or buffers it while the connection
// is still being established.
func (s *Session) SendAudio(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateClosed:
		return errorsx.Wrap(errors.New("session closed"), errorsx.ReasonSTTClosed)
	case StateConnected:
		if err := s.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
			return errorsx.Wrap(err, errorsx.ReasonSTTSend)
		}
		metrics.MediaFrames.Inc()
		return nil
	default:
		buf := append([]byte(nil), p...)
		s.backlog = append(s.backlog, buf)
		return nil
	}
}

// Close signals a graceful stream end, releases the connection and runs
// one final analysis pass. Safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.backlog = nil
	wasConnected := s.state == StateConnected
	s.state = StateClosed
	s.mu.Unlock()

	if conn != nil {
		if wasConnected {
			_ = conn.WriteMessage(websocket.TextMessage, closeStreamMessage)
		}
		_ = conn.Close()
	}
	if s.coach != nil {
		s.coach.Close(ctx)
	}
	return nil
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) markClosed() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.backlog = nil
	s.state = StateClosed
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			alreadyClosed := s.state == StateClosed
			s.mu.Unlock()
			if !alreadyClosed {
				// Mid-stream transport failure: no automatic
				// reconnect, a fresh start event creates a new
				// session.
				s.logger.Warn("stt_stream_read_error",
					slog.String("error", err.Error()),
					slog.String("reason_code", string(errorsx.ReasonSTTReadStream)))
				s.markClosed()
			}
			return
		}
		s.handleMessage(msg)
	}
}

func (s *Session) handleMessage(msg []byte) {
	var res resultMessage
	if err := json.Unmarshal(msg, &res); err != nil {
		s.logger.Debug("stt_bad_message",
			slog.String("error", err.Error()),
			slog.String("reason_code", string(errorsx.ReasonSTTBadMessage)))
		return
	}
	if res.Type != "Results" {
		s.logger.Debug("stt_message_ignored", slog.String("type", res.Type))
		return
	}
	if !res.IsFinal {
		return
	}
	if len(res.Channel.Alternatives) == 0 {
		return
	}
	alt := res.Channel.Alternatives[0]
	text := strings.TrimSpace(alt.Transcript)
	if text == "" {
		return
	}

	speaker := coach.SpeakerCustomer
	var start, end float64
	if len(alt.Words) > 0 {
		if alt.Words[0].Speaker == s.cfg.StaffSpeaker {
			speaker = coach.SpeakerStaff
		}
		start = alt.Words[0].Start
		end = alt.Words[len(alt.Words)-1].End
	}

	seg := &coach.TranscriptSegment{
		CallID:     s.call.CallID,
		Speaker:    speaker,
		Text:       text,
		Confidence: alt.Confidence,
		StartTime:  start,
		EndTime:    end,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.writer.CreateTranscriptSegment(ctx, seg); err != nil {
		// The segment loses durability for this write; the session
		// keeps transcribing.
		s.logger.Error("segment_write_failed",
			slog.String("error", err.Error()),
			slog.String("reason_code", string(errorsx.ReasonStoreWrite)))
	}
	metrics.SegmentsFinalized.Inc()
	if s.coach != nil {
		s.coach.SegmentFinalized()
	}
	s.logger.Debug("segment_finalized",
		slog.String("speaker", string(speaker)),
		slog.Float64("confidence", alt.Confidence),
		slog.Int("chars", len(text)))
}

// resultMessage is the inbound speech service message. Only Results with
// is_final=true are acted on; everything else is transient.
type resultMessage struct {
	Type        string  `json:"type"`
	IsFinal     bool    `json:"is_final"`
	SpeechFinal bool    `json:"speech_final"`
	Channel     channel `json:"channel"`
}

type channel struct {
	Alternatives []alternative `json:"alternatives"`
}

type alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Words      []word  `json:"words"`
}

type word struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    int     `json:"speaker"`
}
