package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coachline_sessions_active",
		Help: "Currently active transcription sessions",
	})

	SessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coachline_sessions_total",
		Help: "Total transcription sessions started",
	})

	ConnectFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coachline_stt_connect_failures_total",
		Help: "Speech service connections that exhausted retries",
	})

	MediaFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coachline_media_frames_total",
		Help: "Inbound media frames forwarded to the speech service",
	})

	SegmentsFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coachline_segments_finalized_total",
		Help: "Final transcript segments persisted",
	})

	AnalysisRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coachline_analysis_runs_total",
		Help: "Coaching analysis passes attempted",
	})

	AnalysisFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coachline_analysis_failures_total",
		Help: "Coaching analysis passes that failed and were dropped",
	})

	PromptsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coachline_prompts_created_total",
		Help: "Coaching prompts created",
	})
)
