package fix

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/liberty-tools/liberty-lsp/internal/diagnostic"
	"github.com/liberty-tools/liberty-lsp/internal/document"
	"github.com/liberty-tools/liberty-lsp/internal/javaast"
	"github.com/liberty-tools/liberty-lsp/internal/lsp/protocol"
)

// ProviderID names a fix provider in the catalog
type ProviderID string

// Kind tags the variant of a CandidateFix
type Kind int

const (
	// KindEdit is a fix applied as a local document edit
	KindEdit Kind = iota + 1
	// KindCommand is a fix executed by the remote server
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindEdit:
		return "edit"
	case KindCommand:
		return "command"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DocumentEdit is a multi-span patch of one document
type DocumentEdit struct {
	URI string
	// Version the edits were computed against, nil when unknown
	Version *int
	Edits   []protocol.TextEdit
}

// Command is a fix resolved on the remote server
type Command struct {
	Name      string
	Arguments []json.RawMessage
	// Action is set when the concrete edit is computed by the server in a
	// second code action round trip
	Action *protocol.CodeAction
}

// CandidateFix is a proposed remediation for one diagnostic
type CandidateFix struct {
	Title      string
	Kind       Kind
	Priority   int
	ProviderID ProviderID
	Preferred  bool

	Edit    *DocumentEdit
	Command *Command
}

// NewEdit builds an edit fix
func NewEdit(title string, uri string, version int, edits ...protocol.TextEdit) CandidateFix {
	v := version
	return CandidateFix{
		Title: title,
		Kind:  KindEdit,
		Edit:  &DocumentEdit{URI: uri, Version: &v, Edits: edits},
	}
}

// NewCommand builds a command fix
func NewCommand(title, name string, args ...json.RawMessage) CandidateFix {
	return CandidateFix{
		Title:   title,
		Kind:    KindCommand,
		Command: &Command{Name: name, Arguments: args},
	}
}

// NewDeferred builds a command fix whose edit the remote server computes
// when the fix is applied. The server matches the action by title.
func NewDeferred(title string, d diagnostic.Diagnostic) CandidateFix {
	return CandidateFix{
		Title: title,
		Kind:  KindCommand,
		Command: &Command{Action: &protocol.CodeAction{
			Title:       title,
			Kind:        protocol.CodeActionQuickFix,
			Diagnostics: []protocol.Diagnostic{d.Protocol()},
		}},
	}
}

// Valid reports whether the variant payload matches the kind
func (f CandidateFix) Valid() bool {
	switch f.Kind {
	case KindEdit:
		return f.Edit != nil && f.Command == nil
	case KindCommand:
		return f.Command != nil && f.Edit == nil
	default:
		return false
	}
}

// Context is the document state a provider reads. Providers must not
// modify it.
type Context struct {
	Snapshot *document.Snapshot
	// Tree is nil when the document is not Java or failed to parse
	Tree *javaast.Tree
}

// Provider produces candidate fixes for one rule family. It returns nil, nil
// when its preconditions do not hold and an error only when the document
// model is inconsistent.
type Provider interface {
	ID() ProviderID
	ProduceFixes(ctx context.Context, d diagnostic.Diagnostic, fc Context) ([]CandidateFix, error)
}

// ProviderFunc adapts a function to the Provider interface
type ProviderFunc struct {
	Name ProviderID
	Fn   func(ctx context.Context, d diagnostic.Diagnostic, fc Context) ([]CandidateFix, error)
}

// ID returns the provider name
func (p ProviderFunc) ID() ProviderID {
	return p.Name
}

// ProduceFixes calls the wrapped function
func (p ProviderFunc) ProduceFixes(ctx context.Context, d diagnostic.Diagnostic, fc Context) ([]CandidateFix, error) {
	return p.Fn(ctx, d, fc)
}
