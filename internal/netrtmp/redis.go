package netrtmp

import (
	"context"
	"crypto/tls"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AgustinSRG/go-rtmp-session/internal/rtmplog"
)

// SetupRedisCommandReceiver subscribes to a Redis channel carrying
// out-of-band session kill commands, if REDIS_USE=YES (spec section
// 11.5, grounded on the teacher's setupRedisCommandReceiver). It
// blocks, so callers should run it in its own goroutine.
func SetupRedisCommandReceiver(server *Server) {
	if os.Getenv("REDIS_USE") != "YES" {
		return
	}

	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	password := os.Getenv("REDIS_PASSWORD")
	channel := os.Getenv("REDIS_CHANNEL")
	if channel == "" {
		channel = "rtmp_commands"
	}

	options := &redis.Options{Addr: host + ":" + port, Password: password}
	if os.Getenv("REDIS_TLS") == "YES" {
		options.TLSConfig = &tls.Config{}
	}
	client := redis.NewClient(options)

	ctx := context.Background()
	subscriber := client.Subscribe(ctx, channel)

	rtmplog.Info("[REDIS] Listening for commands on channel '" + channel + "'")

	for {
		msg, err := subscriber.ReceiveMessage(ctx)
		if err != nil {
			rtmplog.Warning("[REDIS] Could not receive: " + err.Error())
			time.Sleep(10 * time.Second)
			continue
		}
		parseRedisCommand(server, msg.Payload)
	}
}

// parseRedisCommand handles one "name>arg|arg" command line.
func parseRedisCommand(server *Server, cmd string) {
	parts := strings.SplitN(cmd, ">", 2)
	if len(parts) != 2 {
		rtmplog.Warning("[REDIS] Invalid message: " + cmd)
		return
	}

	name := parts[0]
	args := strings.Split(parts[1], "|")

	switch name {
	case "kill-session":
		if len(args) < 1 {
			rtmplog.Warning("[REDIS] Invalid message: " + cmd)
			return
		}
		if publisher := server.GetPublisher(args[0]); publisher != nil {
			publisher.kill()
		}
	case "close-stream":
		if len(args) < 2 {
			rtmplog.Warning("[REDIS] Invalid message: " + cmd)
			return
		}
		publisher := server.GetPublisher(args[0])
		if publisher == nil {
			return
		}
		publisher.mutex.Lock()
		matches := publisher.streamIDFromCoordinator == args[1]
		publisher.mutex.Unlock()
		if matches {
			publisher.kill()
		}
	default:
		rtmplog.Warning("[REDIS] Unknown command: " + name)
	}
}
