// Command rtmp-relay is a standalone RTMP ingest/relay server built on
// the session/chunk/handshake packages, wiring them to a TCP/TLS
// listener and an optional coordinator (see internal/netrtmp).
package main

import (
	"github.com/joho/godotenv"

	"github.com/AgustinSRG/go-rtmp-session/internal/netrtmp"
	"github.com/AgustinSRG/go-rtmp-session/internal/rtmplog"
)

func main() {
	if err := godotenv.Load(); err != nil {
		rtmplog.Debug("no .env file loaded: " + err.Error())
	}

	rtmplog.Info("RTMP relay starting")

	config := netrtmp.NewConfigFromEnv()

	server, err := netrtmp.NewServer(config)
	if err != nil {
		rtmplog.Error(err)
		return
	}

	if config.ControlBaseURL != "" {
		control := &netrtmp.ControlConnection{}
		control.Initialize(server)
		server.SetControlConnection(control)
	}

	go netrtmp.SetupRedisCommandReceiver(server)

	server.Start()
}
