package protocol

import "encoding/json"

// ExecuteCommandParams represents the parameters for a workspace/executeCommand request
type ExecuteCommandParams struct {
	Command   string            `json:"command"`
	Arguments []json.RawMessage `json:"arguments,omitempty"`
}

// ApplyWorkspaceEditParams represents the parameters for a workspace/applyEdit request
type ApplyWorkspaceEditParams struct {
	Label string        `json:"label,omitempty"`
	Edit  WorkspaceEdit `json:"edit"`
}

// ApplyWorkspaceEditResult represents the result of a workspace/applyEdit request
type ApplyWorkspaceEditResult struct {
	Applied       bool   `json:"applied"`
	FailureReason string `json:"failureReason,omitempty"`
}

// MessageType is the severity of a window message
type MessageType int

const (
	// MessageTypeError is an error message
	MessageTypeError MessageType = 1
	// MessageTypeWarning is a warning message
	MessageTypeWarning MessageType = 2
	// MessageTypeInfo is an information message
	MessageTypeInfo MessageType = 3
	// MessageTypeLog is a log message
	MessageTypeLog MessageType = 4
)

// ShowMessageParams represents the parameters for a window/showMessage notification
type ShowMessageParams struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// LogMessageParams represents the parameters for a window/logMessage notification
type LogMessageParams struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// JavaCursorContextParams is sent by the Jakarta language server to ask the
// client where the cursor sits in a Java file
type JavaCursorContextParams struct {
	URI      string   `json:"uri"`
	Position Position `json:"position"`
}

// JavaCursorContextResult answers a JavaCursorContextParams request
type JavaCursorContextResult struct {
	Kind   int    `json:"kind"`
	Prefix string `json:"prefix"`
}
