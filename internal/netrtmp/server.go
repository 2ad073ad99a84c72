// Package netrtmp is the ambient network layer around the core
// session/chunk/handshake packages: a TCP/TLS listener, a publisher/
// player registry with GOP cache, and the optional coordinator
// integrations (HTTP callback, websocket control connection, Redis
// command channel) the relay binary wires up (spec section 11).
package netrtmp

import (
	"crypto/tls"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	certloader "github.com/AgustinSRG/go-tls-certificate-loader"

	"github.com/AgustinSRG/go-rtmp-session/internal/rtmplog"
)

const defaultRTMPPort = 1935
const defaultSSLPort = 443
const defaultChunkSize = 4096
const pingIntervalMs = 60000

// Config governs how a Server binds and behaves. NewConfigFromEnv
// reads it the way the teacher's CreateRTMPServer does, straight from
// the process environment.
type Config struct {
	BindAddress string
	RTMPPort    int
	SSLPort     int
	SSLCertFile string
	SSLKeyFile  string

	OutChunkSize uint32

	IPConnectionLimit   uint32
	ConcurrentWhitelist []string

	GOPCacheLimitBytes int64

	CallbackURL    string
	JWTSecret      string
	JWTSubject     string
	ControlBaseURL string
	ControlSecret  string
	ExternalIP     string
	ExternalPort   string
	ExternalSSL    bool
}

// NewConfigFromEnv reads server configuration from the process
// environment, matching the env var names the teacher's binary reads.
func NewConfigFromEnv() Config {
	c := Config{
		BindAddress:        os.Getenv("BIND_ADDRESS"),
		RTMPPort:           defaultRTMPPort,
		SSLPort:            defaultSSLPort,
		SSLCertFile:        os.Getenv("SSL_CERT"),
		SSLKeyFile:         os.Getenv("SSL_KEY"),
		OutChunkSize:       defaultChunkSize,
		IPConnectionLimit:  4,
		GOPCacheLimitBytes: 256 * 1024 * 1024,
		CallbackURL:        os.Getenv("CALLBACK_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTSubject:         os.Getenv("CUSTOM_JWT_SUBJECT"),
		ControlBaseURL:     os.Getenv("CONTROL_BASE_URL"),
		ControlSecret:      os.Getenv("CONTROL_SECRET"),
		ExternalIP:         os.Getenv("EXTERNAL_IP"),
		ExternalPort:       os.Getenv("EXTERNAL_PORT"),
		ExternalSSL:        os.Getenv("EXTERNAL_SSL") == "YES",
	}

	if v := os.Getenv("RTMP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.RTMPPort = p
		}
	}
	if v := os.Getenv("SSL_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.SSLPort = p
		}
	}
	if v := os.Getenv("RTMP_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > defaultChunkSize {
			c.OutChunkSize = uint32(n)
		}
	}
	if v := os.Getenv("MAX_IP_CONCURRENT_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.IPConnectionLimit = uint32(n)
		}
	}
	if v := os.Getenv("GOP_CACHE_SIZE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.GOPCacheLimitBytes = int64(n) * 1024 * 1024
		}
	}
	if v := os.Getenv("CONCURRENT_LIMIT_WHITELIST"); v != "" {
		c.ConcurrentWhitelist = strings.Split(v, ",")
	}
	if c.JWTSubject == "" {
		c.JWTSubject = "rtmp_event"
	}

	return c
}

// Server accepts RTMP/RTMPS connections and drives one Connection per
// socket, sharing the registry of channels across all of them (spec
// section 11).
type Server struct {
	config Config

	listener       net.Listener
	secureListener net.Listener

	certLoader *certloader.SslCertificateLoader

	registry *registry

	control *ControlConnection

	closed bool
	wg     sync.WaitGroup
}

// NewServer creates listeners per config and returns a Server ready
// to Start, or an error if binding failed.
func NewServer(config Config) (*Server, error) {
	s := &Server{
		config:   config,
		registry: newRegistry(config.IPConnectionLimit, config.GOPCacheLimitBytes),
	}

	addr := config.BindAddress + ":" + strconv.Itoa(config.RTMPPort)
	lTCP, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s.listener = lTCP
	rtmplog.Info("[RTMP] Listening on " + addr)

	if config.SSLCertFile != "" && config.SSLKeyFile != "" {
		loader, err := certloader.NewSslCertificateLoader(config.SSLCertFile, config.SSLKeyFile, 60)
		if err != nil {
			lTCP.Close()
			return nil, err
		}
		s.certLoader = loader
		go loader.RunReloadThread()

		sslAddr := config.BindAddress + ":" + strconv.Itoa(config.SSLPort)
		tlsConfig := &tls.Config{GetCertificate: loader.GetCertificateFunc()}
		lnSSL, err := tls.Listen("tcp", sslAddr, tlsConfig)
		if err != nil {
			lTCP.Close()
			return nil, err
		}
		s.secureListener = lnSSL
		rtmplog.Info("[SSL] Listening on " + sslAddr)
	}

	return s, nil
}

// SetControlConnection wires an optional coordinator connection; see
// control.go.
func (s *Server) SetControlConnection(c *ControlConnection) {
	s.control = c
}

func (s *Server) isIPExempted(ipStr string) bool {
	if len(s.config.ConcurrentWhitelist) == 0 {
		return false
	}
	ip := net.ParseIP(ipStr)
	for _, entry := range s.config.ConcurrentWhitelist {
		entry = strings.TrimSpace(entry)
		if entry == "*" {
			return true
		}
		_, cidr, err := net.ParseCIDR(entry)
		if err != nil {
			if entry == ipStr {
				return true
			}
			continue
		}
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// Start runs the accept loops and the ping ticker and blocks until all
// of them end. The ping ticker has no stop condition (closed is never
// set), so Start does not return even after the listeners close.
func (s *Server) Start() {
	if s.listener != nil {
		s.wg.Add(1)
		go s.acceptOn(s.listener)
	}
	if s.secureListener != nil {
		s.wg.Add(1)
		go s.acceptOn(s.secureListener)
	}
	s.wg.Add(1)
	go s.sendPings()

	s.wg.Wait()
}

func (s *Server) acceptOn(listener net.Listener) {
	defer func() {
		listener.Close()
		s.wg.Done()
	}()
	for {
		conn, err := listener.Accept()
		if err != nil {
			rtmplog.Error(err)
			return
		}

		id := s.registry.nextConnectionID()
		ip := remoteIP(conn)

		if !s.isIPExempted(ip) {
			if !s.registry.addIP(ip) {
				conn.Close()
				rtmplog.Request(id, ip, "Connection rejected: too many concurrent connections")
				continue
			}
		}

		rtmplog.DebugSession(id, ip, "Connection accepted")
		go s.handleConnection(id, ip, conn)
	}
}

func (s *Server) sendPings() {
	defer s.wg.Done()
	for !s.closed {
		time.Sleep(pingIntervalMs * time.Millisecond)
		s.registry.mutex.Lock()
		conns := make([]*Connection, 0, len(s.registry.connections))
		for _, c := range s.registry.connections {
			conns = append(conns, c)
		}
		s.registry.mutex.Unlock()

		for _, c := range conns {
			c.sendPingRequest()
		}
	}
}

func (s *Server) handleConnection(id uint64, ip string, conn net.Conn) {
	c := newConnection(s, id, ip, conn)
	s.registry.addConnection(c)

	defer func() {
		if r := recover(); r != nil {
			rtmplog.Request(id, ip, "connection handler panic recovered")
		}
		c.onClose()
		conn.Close()
		s.registry.removeConnection(id)
		s.registry.removeIP(ip)
		rtmplog.DebugSession(id, ip, "Connection closed")
	}()

	c.run()
}

func remoteIP(conn net.Conn) string {
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return addr.IP.String()
	}
	return conn.RemoteAddr().String()
}

// KillAllActivePublishers forcibly disconnects every connection
// currently publishing, used after the control connection reconnects
// since the coordinator no longer trusts their state (spec section
// 11.4, grounded on the teacher's ControlServerConnection.Connect).
func (s *Server) KillAllActivePublishers() {
	s.registry.mutex.Lock()
	var publishers []*Connection
	for _, ch := range s.registry.channels {
		if ch.isPublishing {
			if c := s.registry.connections[ch.publisherID]; c != nil {
				publishers = append(publishers, c)
			}
		}
	}
	s.registry.mutex.Unlock()

	for _, c := range publishers {
		c.kill()
	}
}

// GetPublisher looks up the connection currently publishing a
// channel, used by the Redis command handler and control connection.
func (s *Server) GetPublisher(channel string) *Connection {
	return s.registry.publisher(channel)
}
