// Package bridge terminates one inbound control+audio stream per call
// from the telephony side and drives the corresponding transcription
// session.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coachline/coachline/pkg/audio"
	"github.com/coachline/coachline/pkg/errorsx"
	"github.com/coachline/coachline/pkg/logging"
	"github.com/coachline/coachline/pkg/registry"
)

type Config struct {
	Addr       string `mapstructure:"addr"`
	PublicURL  string `mapstructure:"public_url"`
	AuthToken  string `mapstructure:"auth_token"`
	VoicePath  string `mapstructure:"voice_path"`
	StreamPath string `mapstructure:"stream_path"`
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.VoicePath == "" {
		c.VoicePath = "/voice"
	}
	if c.StreamPath == "" {
		c.StreamPath = "/stream"
	}
	return c
}

// Hub is the session registry surface the bridge drives.
type Hub interface {
	Start(ctx context.Context, callID, telephonySessionID string) (registry.Session, error)
	Stop(ctx context.Context, telephonySessionID string)
}

type Bridge struct {
	cfg      Config
	hub      Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
	server   *http.Server
	draining atomic.Bool
}

func New(cfg Config, hub Hub, logger *slog.Logger) *Bridge {
	return &Bridge{
		cfg: cfg.withDefaults(),
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logging.NewComponentLogger(logger, "media_bridge"),
	}
}

// Start serves the voice webhook, the media stream endpoint, health and
// metrics until ctx is canceled.
func (b *Bridge) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc(b.cfg.VoicePath, b.handleVoice)
	mux.Handle(b.cfg.StreamPath, b)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	b.server = &http.Server{
		Addr:              b.cfg.Addr,
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           mux,
	}
	go func() {
		<-ctx.Done()
		_ = b.server.Close()
	}()
	go func() {
		if err := b.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.Error("bridge_server_error", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Stop refuses new streams and closes the listener. Active sessions are
// torn down by the registry's CloseAll.
func (b *Bridge) Stop() error {
	b.draining.Store(true)
	if b.server != nil {
		return b.server.Close()
	}
	return nil
}

// ServeHTTP handles one media stream connection: awaiting-start ->
// streaming -> stopped. Loss of transcription never terminates the
// stream; it only disables forwarding for this call.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if b.draining.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var (
		state     = awaitingStart
		streamID  string
		sess      registry.Session
		available bool
	)
	traceID := uuid.NewString()
	logger := b.logger.With(slog.String("trace_id", traceID))

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var evt StreamEvent
		if err := json.Unmarshal(msg, &evt); err != nil {
			logger.Warn("stream_event_malformed",
				slog.String("error", err.Error()),
				slog.String("reason_code", string(errorsx.ReasonBridgeBadEvent)))
			continue
		}

		switch evt.Event {
		case "connected":
			logger.Debug("stream_handshake_acknowledged")

		case "start":
			if evt.Start == nil || evt.Start.StreamID == "" {
				logger.Warn("stream_start_missing_payload",
					slog.String("reason_code", string(errorsx.ReasonBridgeBadEvent)))
				continue
			}
			if state != awaitingStart {
				logger.Warn("stream_start_ignored", slog.String("state", state.String()))
				continue
			}
			streamID = evt.Start.StreamID
			callID := callRecordID(evt.Start)
			logger = logger.With(
				slog.String("stream_id", streamID),
				slog.String("call_id", callID))
			sess, err = b.hub.Start(r.Context(), callID, streamID)
			if err != nil {
				// Fail open: the call keeps flowing, only
				// transcription and coaching are disabled.
				available = false
				logger.Warn("transcription_unavailable",
					slog.String("error", err.Error()))
			} else {
				available = true
				logger.Info("stream_started")
			}
			state = streaming

		case "media":
			if state != streaming || !available || evt.Media == nil {
				continue
			}
			raw, err := audio.DecodeMediaPayload(evt.Media.Payload)
			if err != nil {
				logger.Debug("media_frame_decode_failed",
					slog.String("error", err.Error()),
					slog.String("reason_code", string(errorsx.ReasonBridgeDecode)))
				continue
			}
			if err := sess.SendAudio(raw); err != nil {
				// The session died mid-stream; clean it up and
				// keep draining media without forwarding.
				available = false
				b.hub.Stop(context.Background(), streamID)
				logger.Warn("audio_forwarding_disabled",
					slog.String("error", err.Error()))
			}

		case "stop":
			reason := ""
			if evt.Stop != nil {
				reason = evt.Stop.Reason
			}
			logger.Info("stream_stopped", slog.String("reason", reason))
			b.hub.Stop(context.Background(), streamID)
			state = stopped
			return

		default:
			logger.Debug("stream_event_ignored", slog.String("event", evt.Event))
		}
	}

	// Client disconnected without a clean stop; same cleanup, and only
	// for this stream.
	if streamID != "" && state != stopped {
		logger.Info("stream_disconnected")
		b.hub.Stop(context.Background(), streamID)
	}
}

// callRecordID resolves the durable call record id established at stream
// start, falling back to the telephony call id.
func callRecordID(start *StartPayload) string {
	if id := strings.TrimSpace(start.CustomParameters["call_id"]); id != "" {
		return id
	}
	if start.CallSID != "" {
		return start.CallSID
	}
	return start.StreamID
}
