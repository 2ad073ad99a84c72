package netrtmp

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	messages "github.com/AgustinSRG/go-simple-rpc-message"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/AgustinSRG/go-rtmp-session/internal/rtmplog"
)

// ControlConnection is the optional websocket link to a coordinator
// that decides which publish keys are valid and can kill streams
// remotely (spec section 11.4, grounded on the teacher's
// ControlServerConnection).
type ControlConnection struct {
	server *Server

	connectionURL string
	connection    *websocket.Conn

	lock sync.Mutex

	nextRequestID uint64
	requests      map[string]*pendingPublishRequest

	enabled bool
	secret  string
}

type pendingPublishRequest struct {
	waiter chan publishResponse
}

type publishResponse struct {
	accepted bool
	streamID string
}

// Initialize resolves the coordinator URL from config and, if set,
// starts the connect and heartbeat loops. A zero-value
// ControlBaseURL leaves the connection disabled (stand-alone mode).
func (c *ControlConnection) Initialize(server *Server) {
	c.server = server
	c.requests = make(map[string]*pendingPublishRequest)
	c.secret = server.config.ControlSecret

	if server.config.ControlBaseURL == "" {
		rtmplog.Warning("CONTROL_BASE_URL not provided. The server will run in stand-alone mode.")
		c.enabled = false
		return
	}

	base, err := url.Parse(server.config.ControlBaseURL)
	if err != nil {
		rtmplog.Error(err)
		c.enabled = false
		return
	}
	path, _ := url.Parse("/ws/control/rtmp")
	c.connectionURL = base.ResolveReference(path).String()
	c.enabled = true

	go c.Connect()
	go c.RunHeartBeatLoop()
}

// Connect dials the coordinator, retrying with a fixed backoff until
// it succeeds.
func (c *ControlConnection) Connect() {
	c.lock.Lock()
	if c.connection != nil {
		c.lock.Unlock()
		return
	}
	rtmplog.Info("[WS-CONTROL] Connecting to " + c.connectionURL)

	headers := http.Header{}
	if token := c.makeAuthToken(); token != "" {
		headers.Set("x-control-auth-token", token)
	}
	if c.server.config.ExternalIP != "" {
		headers.Set("x-external-ip", c.server.config.ExternalIP)
	}
	if c.server.config.ExternalPort != "" {
		headers.Set("x-custom-port", c.server.config.ExternalPort)
	}
	if c.server.config.ExternalSSL {
		headers.Set("x-ssl-use", "true")
	}

	conn, _, err := websocket.DefaultDialer.Dial(c.connectionURL, headers)
	if err != nil {
		c.lock.Unlock()
		rtmplog.Warning("[WS-CONTROL] Connection error: " + err.Error())
		go c.Reconnect()
		return
	}
	c.connection = conn
	c.lock.Unlock()

	// The coordinator no longer trusts our publisher state after a
	// reconnect, since it assumes we went down.
	c.server.KillAllActivePublishers()

	go c.RunReaderLoop(conn)
}

// Reconnect waits a fixed delay and retries Connect.
func (c *ControlConnection) Reconnect() {
	time.Sleep(10 * time.Second)
	c.Connect()
}

// OnDisconnect clears the connection and triggers a reconnect.
func (c *ControlConnection) OnDisconnect(err error) {
	c.lock.Lock()
	c.connection = nil
	c.lock.Unlock()
	rtmplog.Info("[WS-CONTROL] Disconnected: " + err.Error())
	go c.Connect()
}

// Send serializes and writes msg, returning false if not connected.
func (c *ControlConnection) Send(msg messages.RPCMessage) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.connection == nil {
		return false
	}
	c.connection.WriteMessage(websocket.TextMessage, []byte(msg.Serialize()))
	rtmplog.Debug("[WS-CONTROL] >>> " + msg.Serialize())
	return true
}

// GetNextRequestId hands out unique request identifiers for
// RequestPublish.
func (c *ControlConnection) GetNextRequestId() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	id := c.nextRequestID
	c.nextRequestID++
	return id
}

// RunReaderLoop blocks reading coordinator frames until the socket
// closes.
func (c *ControlConnection) RunReaderLoop(conn *websocket.Conn) {
	for {
		if err := conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
			conn.Close()
			c.OnDisconnect(err)
			return
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			c.OnDisconnect(err)
			return
		}
		rtmplog.Debug("[WS-CONTROL] <<< " + string(raw))
		msg := messages.ParseRPCMessage(string(raw))
		c.ParseIncomingMessage(&msg)
	}
}

// ParseIncomingMessage dispatches one coordinator message.
func (c *ControlConnection) ParseIncomingMessage(msg *messages.RPCMessage) {
	switch msg.Method {
	case "ERROR":
		rtmplog.Warning("[WS-CONTROL] Remote error. Code=" + msg.GetParam("Error-Code") + " / Details: " + msg.GetParam("Error-Message"))
	case "PUBLISH-ACCEPT":
		c.OnPublishAccept(msg.GetParam("Request-Id"), msg.GetParam("Stream-Id"))
	case "PUBLISH-DENY":
		c.OnPublishDeny(msg.GetParam("Request-Id"))
	case "STREAM-KILL":
		c.OnStreamKill(msg.GetParam("Stream-Channel"), msg.GetParam("Stream-Id"))
	}
}

// OnPublishAccept resolves a pending RequestPublish as accepted.
func (c *ControlConnection) OnPublishAccept(requestID, streamID string) {
	c.lock.Lock()
	req := c.requests[requestID]
	c.lock.Unlock()
	if req == nil {
		return
	}
	req.waiter <- publishResponse{accepted: true, streamID: streamID}
}

// OnPublishDeny resolves a pending RequestPublish as denied.
func (c *ControlConnection) OnPublishDeny(requestID string) {
	c.lock.Lock()
	req := c.requests[requestID]
	c.lock.Unlock()
	if req == nil {
		return
	}
	req.waiter <- publishResponse{accepted: false}
}

// OnStreamKill force-closes the connection currently publishing
// channel, if its stream id matches (or streamID is the "*" wildcard).
func (c *ControlConnection) OnStreamKill(channel, streamID string) {
	publisher := c.server.GetPublisher(channel)
	if publisher == nil {
		return
	}
	if streamID == "*" || streamID == "" {
		publisher.kill()
		return
	}
	publisher.mutex.Lock()
	matches := publisher.streamIDFromCoordinator == streamID
	publisher.mutex.Unlock()
	if matches {
		publisher.kill()
	}
}

// RunHeartBeatLoop keeps the coordinator connection alive.
func (c *ControlConnection) RunHeartBeatLoop() {
	for {
		time.Sleep(20 * time.Second)
		c.Send(messages.RPCMessage{Method: "HEARTBEAT"})
	}
}

// RequestPublish asks the coordinator whether channel/key may publish,
// blocking until it answers or a fixed timeout elapses. When the
// connection is disabled (stand-alone mode), every request is
// accepted locally.
func (c *ControlConnection) RequestPublish(channel, key, userIP string) (accepted bool, streamID string) {
	if !c.enabled {
		return true, ""
	}

	requestID := fmt.Sprint(c.GetNextRequestId())
	request := &pendingPublishRequest{waiter: make(chan publishResponse)}

	c.lock.Lock()
	c.requests[requestID] = request
	c.lock.Unlock()

	msg := messages.RPCMessage{
		Method: "PUBLISH-REQUEST",
		Params: map[string]string{
			"Request-ID":     requestID,
			"Stream-Channel": channel,
			"Stream-Key":     key,
			"User-IP":        userIP,
		},
	}

	if !c.Send(msg) {
		c.lock.Lock()
		delete(c.requests, requestID)
		c.lock.Unlock()
		return false, ""
	}

	timer := time.AfterFunc(20*time.Second, func() {
		request.waiter <- publishResponse{accepted: false}
	})

	res := <-request.waiter
	timer.Stop()

	c.lock.Lock()
	delete(c.requests, requestID)
	c.lock.Unlock()

	return res.accepted, res.streamID
}

// PublishEnd notifies the coordinator that channel/streamID stopped
// publishing.
func (c *ControlConnection) PublishEnd(channel, streamID string) bool {
	return c.Send(messages.RPCMessage{
		Method: "PUBLISH-END",
		Params: map[string]string{
			"Stream-Channel": channel,
			"Stream-ID":      streamID,
		},
	})
}

func (c *ControlConnection) makeAuthToken() string {
	if c.secret == "" {
		return ""
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "rtmp-control"})
	signed, err := token.SignedString([]byte(c.secret))
	if err != nil {
		rtmplog.Error(err)
		return ""
	}
	return signed
}
