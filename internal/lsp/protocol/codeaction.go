package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CodeActionParams represents the parameters for a textDocument/codeAction request
type CodeActionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Range        Range                  `json:"range"`
	Context      CodeActionContext      `json:"context"`
}

// CodeActionTriggerKind describes why a code action was requested
type CodeActionTriggerKind int

const (
	// CodeActionTriggerInvoked means code actions were explicitly requested by the user
	CodeActionTriggerInvoked CodeActionTriggerKind = 1
	// CodeActionTriggerAutomatic means code actions were requested automatically
	CodeActionTriggerAutomatic CodeActionTriggerKind = 2
)

// CodeActionContext represents the context for a code action request
type CodeActionContext struct {
	Diagnostics []Diagnostic          `json:"diagnostics"`
	Only        []CodeActionKind      `json:"only,omitempty"`
	TriggerKind CodeActionTriggerKind `json:"triggerKind,omitempty"`
}

// CodeActionKind represents the kind of a code action
type CodeActionKind string

const (
	// CodeActionQuickFix represents a quick fix action
	CodeActionQuickFix CodeActionKind = "quickfix"
	// CodeActionRefactor represents a refactoring action
	CodeActionRefactor CodeActionKind = "refactor"
	// CodeActionSource represents a source action
	CodeActionSource CodeActionKind = "source"
)

// CodeAction represents a code action
type CodeAction struct {
	Title       string          `json:"title"`
	Kind        CodeActionKind  `json:"kind,omitempty"`
	Diagnostics []Diagnostic    `json:"diagnostics,omitempty"`
	IsPreferred bool            `json:"isPreferred,omitempty"`
	Edit        *WorkspaceEdit  `json:"edit,omitempty"`
	Command     *Command        `json:"command,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// Command represents a reference to a command
type Command struct {
	// Title of the command, like `save`
	Title string `json:"title"`
	// The identifier of the actual command handler
	Command string `json:"command"`
	// Arguments that the command handler should be invoked with
	Arguments []json.RawMessage `json:"arguments,omitempty"`
}

// CodeActionOrCommand is one element of a textDocument/codeAction response.
// Exactly one of the fields is set.
type CodeActionOrCommand struct {
	Command    *Command
	CodeAction *CodeAction
}

// Title returns the title of whichever variant is set
func (c CodeActionOrCommand) Title() string {
	if c.Command != nil {
		return c.Command.Title
	}
	if c.CodeAction != nil {
		return c.CodeAction.Title
	}
	return ""
}

// MarshalJSON encodes the set variant
func (c CodeActionOrCommand) MarshalJSON() ([]byte, error) {
	if c.Command != nil {
		return json.Marshal(c.Command)
	}
	if c.CodeAction != nil {
		return json.Marshal(c.CodeAction)
	}
	return []byte("null"), nil
}

// UnmarshalJSON distinguishes a Command (whose "command" member is a string)
// from a CodeAction (whose optional "command" member is an object)
func (c *CodeActionOrCommand) UnmarshalJSON(data []byte) error {
	var shape struct {
		Command json.RawMessage `json:"command"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return fmt.Errorf("failed to decode code action: %w", err)
	}

	if len(shape.Command) > 0 && bytes.HasPrefix(bytes.TrimSpace(shape.Command), []byte(`"`)) {
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			return fmt.Errorf("failed to decode command: %w", err)
		}
		c.Command = &cmd
		return nil
	}

	var action CodeAction
	if err := json.Unmarshal(data, &action); err != nil {
		return fmt.Errorf("failed to decode code action: %w", err)
	}
	c.CodeAction = &action
	return nil
}

// TextEdit represents a text edit operation
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// WorkspaceEdit represents a workspace edit operation
type WorkspaceEdit struct {
	Changes         map[string][]TextEdit `json:"changes,omitempty"`
	DocumentChanges []DocumentChange      `json:"documentChanges,omitempty"`
}

// EditsFor returns the edits targeting uri, and the document version the
// edits were computed against when the edit carries one
func (w *WorkspaceEdit) EditsFor(uri string) ([]TextEdit, *int) {
	if w == nil {
		return nil, nil
	}
	for _, change := range w.DocumentChanges {
		if change.TextDocument.URI == uri {
			return change.Edits, change.TextDocument.Version
		}
	}
	return w.Changes[uri], nil
}

// URIs returns every document touched by the edit
func (w *WorkspaceEdit) URIs() []string {
	if w == nil {
		return nil
	}
	seen := make(map[string]bool)
	var uris []string
	for _, change := range w.DocumentChanges {
		if !seen[change.TextDocument.URI] {
			seen[change.TextDocument.URI] = true
			uris = append(uris, change.TextDocument.URI)
		}
	}
	for uri := range w.Changes {
		if !seen[uri] {
			seen[uri] = true
			uris = append(uris, uri)
		}
	}
	return uris
}

// DocumentChange represents a change to a document
type DocumentChange struct {
	TextDocument OptionalVersionedTextDocumentIdentifier `json:"textDocument"`
	Edits        []TextEdit                              `json:"edits"`
}

// OptionalVersionedTextDocumentIdentifier represents a text document identifier with an optional version
type OptionalVersionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version *int   `json:"version,omitempty"`
}
