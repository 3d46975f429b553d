package main

import (
	"radarbot-backend/cmd/radarbot/commands"
	"radarbot-backend/lib/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext()
	defer cancel()
	commands.ExecuteContext(ctx)
}
