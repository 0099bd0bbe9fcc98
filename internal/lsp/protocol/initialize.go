package protocol

import "encoding/json"

// InitializeParams represents the parameters for the 'initialize' request
type InitializeParams struct {
	ProcessID             *int              `json:"processId"`
	RootPath              string            `json:"rootPath,omitempty"`
	RootURI               string            `json:"rootUri,omitempty"`
	WorkspaceFolders      []WorkspaceFolder `json:"workspaceFolders,omitempty"`
	InitializationOptions json.RawMessage   `json:"initializationOptions,omitempty"`
	Capabilities          json.RawMessage   `json:"capabilities,omitempty"`
}

// WorkspaceFolder represents a workspace folder
type WorkspaceFolder struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// InitializeResult is the result of the 'initialize' request
type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
	ServerInfo   *ServerInfo        `json:"serverInfo,omitempty"`
}

// ServerInfo describes the server
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// ServerCapabilities lists the capabilities this repository reads or advertises.
// Unknown members sent by a remote server are ignored.
type ServerCapabilities struct {
	TextDocumentSync       TextDocumentSyncKind   `json:"textDocumentSync,omitempty"`
	CodeActionProvider     *CodeActionOptions     `json:"codeActionProvider,omitempty"`
	ExecuteCommandProvider *ExecuteCommandOptions `json:"executeCommandProvider,omitempty"`
}

// CodeActionOptions describes code action support
type CodeActionOptions struct {
	CodeActionKinds []CodeActionKind `json:"codeActionKinds,omitempty"`
	ResolveProvider bool             `json:"resolveProvider,omitempty"`
}

// UnmarshalJSON accepts both the boolean and the object form
func (o *CodeActionOptions) UnmarshalJSON(data []byte) error {
	var enabled bool
	if err := json.Unmarshal(data, &enabled); err == nil {
		*o = CodeActionOptions{}
		return nil
	}
	type plain CodeActionOptions
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = CodeActionOptions(p)
	return nil
}

// ExecuteCommandOptions lists the commands a server executes
type ExecuteCommandOptions struct {
	Commands []string `json:"commands"`
}
