// Package feed pushes committed engine events to indexers over QUIC.
//
// A subscriber connects, opens one bidirectional stream carrying the last
// sequence number it has seen, and receives the retained backlog on that
// stream. Every later event arrives on its own unidirectional stream. Both
// carry FlatBuffers-encoded events with 4-byte length framing.
package feed

import (
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"ReliefAuction/internal/events"
	"ReliefAuction/internal/logger"
	"ReliefAuction/internal/metrics"
)

const (
	// alpnProtocol is the ALPN identifier of the feed.
	alpnProtocol = "relief-feed/1"

	// queueSize is the per-subscriber backlog before it is dropped as too slow.
	queueSize = 256

	// helloTimeout bounds the backlog exchange after connect.
	helloTimeout = 10 * time.Second
)

// Config holds the feed server configuration.
type Config struct {
	PrivateKey ed25519.PrivateKey // PrivateKey is the server identity
	ListenAddr string             // ListenAddr is the UDP address to listen on
}

// Server accepts indexer connections and fans bus events out to them.
type Server struct {
	bus        *events.Bus
	tlsConf    *tls.Config
	quicConf   *quic.Config
	listenAddr string
	listener   *quic.Listener

	mu   sync.Mutex
	subs map[string]*remote

	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// remote is one connected indexer.
type remote struct {
	key   string
	conn  *quic.Conn
	queue chan []byte
	once  sync.Once
}

// NewServer creates a feed server publishing events from bus.
func NewServer(cfg Config, bus *events.Bus) (*Server, error) {
	if cfg.PrivateKey == nil {
		return nil, fmt.Errorf("private key is required")
	}

	if cfg.ListenAddr == "" {
		return nil, fmt.Errorf("listen address is required")
	}

	tc, err := tlsConfig(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("tls config:\n%w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		bus:        bus,
		tlsConf:    tc,
		quicConf:   quicConfig(),
		listenAddr: cfg.ListenAddr,
		subs:       make(map[string]*remote),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start listens for subscribers and begins forwarding bus events.
func (s *Server) Start() error {
	listener, err := quic.ListenAddr(s.listenAddr, s.tlsConf, s.quicConf)
	if err != nil {
		return fmt.Errorf("listen:\n%w", err)
	}

	s.listener = listener
	s.unsubscribe = s.bus.Subscribe(s.broadcast)

	s.wg.Add(1)
	go s.acceptLoop()

	logger.Info("event feed listening", "addr", listener.Addr().String())

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// Subscribers returns the number of connected indexers.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.subs)
}

// Close disconnects every subscriber and stops the listener.
func (s *Server) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}

	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.Lock()
	subs := make([]*remote, 0, len(s.subs))
	for _, r := range s.subs {
		subs = append(subs, r)
	}
	s.mu.Unlock()

	for _, r := range subs {
		s.drop(r, "server closing")
	}

	s.wg.Wait()

	return nil
}

// broadcast queues ev for every subscriber. It runs on the publishing
// goroutine, so it never blocks: a full queue drops the subscriber.
func (s *Server) broadcast(ev events.Event) {
	data := events.Encode(ev)

	s.mu.Lock()
	subs := make([]*remote, 0, len(s.subs))
	for _, r := range s.subs {
		subs = append(subs, r)
	}
	s.mu.Unlock()

	for _, r := range subs {
		select {
		case r.queue <- data:
		default:
			logger.Warn("feed subscriber too slow, dropping", "peer", r.key[:16])
			go s.drop(r, "too slow")
		}
	}
}

// acceptLoop accepts incoming indexer connections.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept(s.ctx)
		if err != nil {
			return
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serve(conn)
		}()
	}
}

// serve registers conn, answers its backlog request and pumps live events.
func (s *Server) serve(conn *quic.Conn) {
	pub, err := peerKey(conn.ConnectionState().TLS)
	if err != nil {
		conn.CloseWithError(1, "bad identity")
		return
	}

	r := &remote{
		key:   hex.EncodeToString(pub),
		conn:  conn,
		queue: make(chan []byte, queueSize),
	}

	// Register before reading the hello so no event published during the
	// backlog exchange is missed. Overlap is removed by subscriber dedup.
	s.mu.Lock()
	if old, ok := s.subs[r.key]; ok {
		s.mu.Unlock()
		s.drop(old, "replaced")
		s.mu.Lock()
	}
	s.subs[r.key] = r
	s.mu.Unlock()

	metrics.SubscriberConnected()
	logger.Debug("feed subscriber connected", "peer", r.key[:16], "addr", conn.RemoteAddr().String())

	if err := s.backlog(conn); err != nil {
		logger.Debug("feed backlog failed", "peer", r.key[:16], "error", err)
		s.drop(r, "backlog failed")
		return
	}

	for {
		select {
		case <-conn.Context().Done():
			s.drop(r, "")
			return
		case data := <-r.queue:
			if err := push(conn, data); err != nil {
				logger.Debug("feed push failed", "peer", r.key[:16], "error", err)
				s.drop(r, "push failed")
				return
			}
		}
	}
}

// backlog reads the subscriber's last seen sequence and replies with every
// retained event after it, terminated by an empty frame.
func (s *Server) backlog(conn *quic.Conn) error {
	ctx, cancel := context.WithTimeout(s.ctx, helloTimeout)
	defer cancel()

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		return fmt.Errorf("accept hello:\n%w", err)
	}
	defer stream.Close()

	stream.SetDeadline(time.Now().Add(helloTimeout))

	hello, err := readFrame(stream)
	if err != nil {
		return fmt.Errorf("read hello:\n%w", err)
	}

	if len(hello) != 8 {
		return fmt.Errorf("invalid hello length: %d", len(hello))
	}

	after := binary.BigEndian.Uint64(hello)

	for _, ev := range s.bus.Since(after) {
		if err := writeFrame(stream, events.Encode(ev)); err != nil {
			return err
		}
	}

	return writeFrame(stream, nil)
}

// push sends one event on a fresh unidirectional stream.
func push(conn *quic.Conn, data []byte) error {
	stream, err := conn.OpenUniStreamSync(conn.Context())
	if err != nil {
		return fmt.Errorf("open stream:\n%w", err)
	}

	if err := writeFrame(stream, data); err != nil {
		stream.CancelWrite(0)
		return err
	}

	return stream.Close()
}

// drop disconnects r once and unregisters it.
func (s *Server) drop(r *remote, reason string) {
	r.once.Do(func() {
		s.mu.Lock()
		if s.subs[r.key] == r {
			delete(s.subs, r.key)
		}
		s.mu.Unlock()

		if reason == "" {
			reason = "closed"
		}

		r.conn.CloseWithError(0, reason)
		metrics.SubscriberDisconnected()
		logger.Debug("feed subscriber disconnected", "peer", r.key[:16], "reason", reason)
	})
}
