package ws

// Frame types the client sends.
const (
	inStart        = "start"
	inAudio        = "audio"
	inUtteranceEnd = "utterance_end"
	inText         = "text"
	inInterrupt    = "interrupt"
	inStop         = "stop"
)

// Frame types the server sends.
const (
	outSessionStarted = "session_started"
	outSessionEnded   = "session_ended"
	outRecording      = "recording"
	outSpeaking       = "speaking"
	outTranscript     = "transcript"
	outAudio          = "audio"
	outProcessing     = "processing"
	outInterrupted    = "interrupted"
	outError          = "error"
)

// inboundFrame is the envelope for every client message. Data is base64
// audio for "audio" frames; Text carries typed input for "text" frames.
type inboundFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Data      string `json:"data,omitempty"`
	Text      string `json:"text,omitempty"`
}

// outboundFrame is the envelope for every server message.
type outboundFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Active    *bool  `json:"active,omitempty"`
	Role      string `json:"role,omitempty"`
	Text      string `json:"text,omitempty"`
	Data      string `json:"data,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message,omitempty"`
}
