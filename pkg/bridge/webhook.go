package bridge

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"

	twilioclient "github.com/twilio/twilio-go/client"

	"github.com/coachline/coachline/pkg/errorsx"
)

// handleVoice answers the telephony voice webhook with TwiML that
// connects the call's media stream to this bridge.
func (b *Bridge) handleVoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if b.cfg.AuthToken != "" && !b.validateSignature(r) {
		b.logger.Warn("voice_webhook_invalid_signature",
			slog.String("reason_code", string(errorsx.ReasonTransportInvalidSignature)))
		w.WriteHeader(http.StatusForbidden)
		return
	}
	twiml := `<Response><Connect><Stream url="` + b.websocketURL(r) + `"/></Connect></Response>`
	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write([]byte(twiml))
}

func (b *Bridge) validateSignature(r *http.Request) bool {
	signature := r.Header.Get("X-Twilio-Signature")
	if signature == "" {
		return false
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return false
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	validator := twilioclient.NewRequestValidator(b.cfg.AuthToken)
	return validator.ValidateBody(b.requestURL(r), body, signature)
}

func (b *Bridge) requestURL(r *http.Request) string {
	if b.cfg.PublicURL != "" {
		base := strings.TrimRight(b.cfg.PublicURL, "/")
		return base + r.URL.RequestURI()
	}
	scheme := r.URL.Scheme
	if scheme == "" {
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		} else {
			scheme = "https"
		}
	}
	host := r.Host
	if host == "" {
		host = strings.TrimPrefix(b.cfg.Addr, ":")
	}
	return scheme + "://" + host + r.URL.RequestURI()
}

func (b *Bridge) websocketURL(r *http.Request) string {
	if b.cfg.PublicURL != "" {
		return "wss://" + normalizePublicURL(b.cfg.PublicURL) + b.cfg.StreamPath
	}
	host := r.Host
	if host == "" {
		host = strings.TrimPrefix(b.cfg.Addr, ":")
	}
	return "wss://" + host + b.cfg.StreamPath
}

func normalizePublicURL(v string) string {
	v = strings.TrimPrefix(v, "https://")
	v = strings.TrimPrefix(v, "http://")
	return strings.TrimRight(v, "/")
}
