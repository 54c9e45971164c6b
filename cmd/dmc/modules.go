package main

// Compiled-in modules. Each package registers itself with the core module
// registry in its init function.
import (
	_ "github.com/ui-iids/dremio-mcp-client/modules/backend/dremio"
	_ "github.com/ui-iids/dremio-mcp-client/modules/bridge/stdio"
	_ "github.com/ui-iids/dremio-mcp-client/modules/history/sqlite"
	_ "github.com/ui-iids/dremio-mcp-client/modules/provider/anthropic"
)
