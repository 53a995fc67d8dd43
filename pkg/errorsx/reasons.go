package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonSTTConnect     ReasonCode = "stt_connect"
	ReasonSTTExhausted   ReasonCode = "stt_retries_exhausted"
	ReasonSTTSend        ReasonCode = "stt_send"
	ReasonSTTClosed      ReasonCode = "stt_closed"
	ReasonSTTReadStream  ReasonCode = "stt_read_stream"
	ReasonSTTBadMessage  ReasonCode = "stt_bad_message"

	ReasonBridgeDecode   ReasonCode = "bridge_decode"
	ReasonBridgeBadEvent ReasonCode = "bridge_bad_event"

	ReasonStoreWrite ReasonCode = "store_write"
	ReasonStoreRead  ReasonCode = "store_read"

	ReasonAnalysisRun    ReasonCode = "analysis_run"
	ReasonAnalysisDecode ReasonCode = "analysis_decode"

	ReasonTransportInvalidSignature ReasonCode = "webhook_invalid_signature"
)
