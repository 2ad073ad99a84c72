package netrtmp

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AgustinSRG/go-rtmp-session/internal/rtmplog"
)

const jwtExpirationSeconds = 120

// sendStartCallback notifies the configured URL that a channel/key
// started publishing, returning the stream-id header the callback
// handed back (spec section 11.3, grounded on the teacher's
// RTMPSession.SendStartCallback).
func (c *Connection) sendStartCallback(channel, key string) (streamID string, ok bool) {
	if c.server.config.CallbackURL == "" {
		return "", true
	}

	rtmplog.DebugSession(c.id, c.ip, "POST "+c.server.config.CallbackURL+" | Event: START | Channel: "+channel)

	claims := jwt.MapClaims{
		"sub":       c.server.config.JWTSubject,
		"event":     "start",
		"channel":   channel,
		"key":       key,
		"client_ip": c.ip,
		"rtmp_host": c.server.config.ExternalIP,
		"rtmp_port": c.server.config.ExternalPort,
		"exp":       time.Now().Unix() + jwtExpirationSeconds,
	}

	res, err := c.server.postCallback(claims)
	if err != nil {
		rtmplog.Error(err)
		return "", false
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		rtmplog.DebugSession(c.id, c.ip, "callback request ended with status code: "+fmt.Sprint(res.StatusCode))
		return "", false
	}

	return res.Header.Get("stream-id"), true
}

// sendStopCallback notifies the configured URL that a channel/key
// stopped publishing.
func (c *Connection) sendStopCallback(channel, key, streamID string) {
	if c.server.config.CallbackURL == "" {
		return
	}

	rtmplog.DebugSession(c.id, c.ip, "POST "+c.server.config.CallbackURL+" | Event: STOP | Channel: "+channel)

	claims := jwt.MapClaims{
		"sub":       c.server.config.JWTSubject,
		"event":     "stop",
		"channel":   channel,
		"key":       key,
		"stream_id": streamID,
		"client_ip": c.ip,
		"exp":       time.Now().Unix() + jwtExpirationSeconds,
	}

	res, err := c.server.postCallback(claims)
	if err != nil {
		rtmplog.Error(err)
		return
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		rtmplog.DebugSession(c.id, c.ip, "callback request ended with status code: "+fmt.Sprint(res.StatusCode))
	}
}

// postCallback signs claims and POSTs the token to the configured
// callback URL in the rtmp-event header.
func (s *Server) postCallback(claims jwt.MapClaims) (*http.Response, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, s.config.CallbackURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("rtmp-event", signed)

	return http.DefaultClient.Do(req)
}
