package remote

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/sjson"
)

// Commands the client can execute on behalf of the server
var clientCommands = []string{
	"microprofile.command.configuration.update",
	"microprofile.command.open.uri",
}

// InitializationOptions builds the options sent with initialize to the
// MicroProfile and Jakarta language servers
func InitializationOptions(trace bool) (json.RawMessage, error) {
	level := "off"
	if trace {
		level = "verbose"
	}

	doc := "{}"
	var err error
	set := func(path string, value interface{}) {
		if err != nil {
			return
		}
		doc, err = sjson.Set(doc, path, value)
	}
	setRaw := func(path, raw string) {
		if err != nil {
			return
		}
		doc, err = sjson.SetRaw(doc, path, raw)
	}

	set("settings.microprofile.tools.trace.server", level)
	set("settings.microprofile.tools.codeLens.urlCodeLensEnabled", "true")
	set("extendedClientCapabilities.commands.commandsKind.valueSet", clientCommands)
	setRaw("extendedClientCapabilities.completion", "{}")
	set("extendedClientCapabilities.shouldLanguageServerExitOnShutdown", true)

	if err != nil {
		return nil, fmt.Errorf("failed to build initialization options: %w", err)
	}
	return json.RawMessage(doc), nil
}
