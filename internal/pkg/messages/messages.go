package messages

import (
	amessages "github.com/airenas/async-api/pkg/messages"
)

const (
	st = "PROTO/"
	// Analyze queue name
	Analyze = st + "Analyze"
	// Embed queue name
	Embed = st + "Embed"
	// Fail queue name
	Fail = st + "Fail"
	// StatusChange queue name
	StatusChange = st + "StatusChange"
	// Inform queue name
	Inform = st + "Inform"
)

const (
	// ScopeAnalysis marks a failure of the analysis job
	ScopeAnalysis = "analysis"
	// ScopeEmbedding marks a failure of the embedding job
	ScopeEmbedding = "embedding"
)

// TranscriptMessage main message passing through the pipeline
type TranscriptMessage struct {
	amessages.QueueMessage
}

// NewTranscriptMessage creates a message for the transcript ID
func NewTranscriptMessage(id string) *TranscriptMessage {
	return &TranscriptMessage{QueueMessage: amessages.QueueMessage{ID: id}}
}

// FailMessage is sent to the fail queue after a job exhausts its retries
type FailMessage struct {
	amessages.QueueMessage
	JobID string `json:"jobID,omitempty"`
	Scope string `json:"scope,omitempty"`
	Error string `json:"error,omitempty"`
}
