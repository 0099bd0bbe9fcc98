package protocol

// TextDocumentItem is an item to transfer a text document from the client to the server
type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

// DidOpenTextDocumentParams represents the parameters for a textDocument/didOpen notification
type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

// TextDocumentContentChangeEvent describes a full-text change; ranges are not
// used because the server registers for full document sync
type TextDocumentContentChangeEvent struct {
	Text string `json:"text"`
}

// DidChangeTextDocumentParams represents the parameters for a textDocument/didChange notification
type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier  `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
}

// DidCloseTextDocumentParams represents the parameters for a textDocument/didClose notification
type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// TextDocumentSyncKind defines how the client syncs document changes
type TextDocumentSyncKind int

const (
	// TextDocumentSyncNone means documents are not synced
	TextDocumentSyncNone TextDocumentSyncKind = 0
	// TextDocumentSyncFull means the full content is sent on every change
	TextDocumentSyncFull TextDocumentSyncKind = 1
)
