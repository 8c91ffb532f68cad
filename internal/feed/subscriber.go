package feed

import (
	"context"
	"crypto/ed25519"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"

	"ReliefAuction/internal/events"
	"ReliefAuction/internal/logger"
)

// SubscriberConfig configures an indexer connection.
type SubscriberConfig struct {
	PrivateKey ed25519.PrivateKey // PrivateKey is the indexer identity
	Addr       string             // Addr is the feed server address
	After      uint64             // After is the last sequence already processed
}

// Subscriber receives events from a feed server. The handler runs on a
// single goroutine, backlog first, in sequence order.
type Subscriber struct {
	conn    *quic.Conn
	handler func(events.Event)
	seen    *dedup
	last    atomic.Uint64
	done    chan struct{}
	wg      sync.WaitGroup
}

// Dial connects to a feed server, replays the backlog after cfg.After and
// keeps delivering live events until Close.
func Dial(ctx context.Context, cfg SubscriberConfig, handler func(events.Event)) (*Subscriber, error) {
	if cfg.PrivateKey == nil {
		return nil, fmt.Errorf("private key is required")
	}

	tc, err := tlsConfig(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("tls config:\n%w", err)
	}

	conn, err := quic.DialAddr(ctx, cfg.Addr, tc, quicConfig())
	if err != nil {
		return nil, fmt.Errorf("dial:\n%w", err)
	}

	s := &Subscriber{
		conn:    conn,
		handler: handler,
		seen:    newDedup(defaultDedupTTL),
		done:    make(chan struct{}),
	}
	s.last.Store(cfg.After)

	if err := s.replay(ctx, cfg.After); err != nil {
		conn.CloseWithError(1, "backlog failed")
		return nil, err
	}

	s.wg.Add(1)
	go s.receiveLoop()

	return s, nil
}

// Last returns the sequence number of the last delivered event.
func (s *Subscriber) Last() uint64 {
	return s.last.Load()
}

// Done is closed when the connection ends.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Close disconnects from the server and waits for the receive loop.
func (s *Subscriber) Close() error {
	err := s.conn.CloseWithError(0, "closed")
	s.wg.Wait()

	return err
}

// replay requests and delivers the server's retained events after seq.
func (s *Subscriber) replay(ctx context.Context, after uint64) error {
	stream, err := s.conn.OpenStreamSync(ctx)
	if err != nil {
		return fmt.Errorf("open hello stream:\n%w", err)
	}
	defer stream.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(helloTimeout)
	}
	stream.SetDeadline(deadline)

	var hello [8]byte
	binary.BigEndian.PutUint64(hello[:], after)

	if err := writeFrame(stream, hello[:]); err != nil {
		return fmt.Errorf("write hello:\n%w", err)
	}

	for {
		data, err := readFrame(stream)
		if err != nil {
			return fmt.Errorf("read backlog:\n%w", err)
		}

		if len(data) == 0 {
			return nil
		}

		s.deliver(data)
	}
}

// receiveLoop reads one event per unidirectional stream, in stream order.
func (s *Subscriber) receiveLoop() {
	defer s.wg.Done()
	defer close(s.done)

	ctx := s.conn.Context()

	for {
		stream, err := s.conn.AcceptUniStream(ctx)
		if err != nil {
			logger.Debug("feed receive loop ended", "error", err)
			return
		}

		data, err := readFrame(stream)
		if err != nil {
			logger.Debug("feed stream read error", "error", err)
			continue
		}

		s.deliver(data)
	}
}

// deliver drops duplicates and stale events, then calls the handler.
func (s *Subscriber) deliver(data []byte) {
	if !s.seen.first(data) {
		return
	}

	ev, err := events.Decode(data)
	if err != nil {
		logger.Warn("feed dropped malformed event", "error", err)
		return
	}

	if ev.Seq <= s.last.Load() {
		return
	}

	s.last.Store(ev.Seq)

	if s.handler != nil {
		s.handler(ev)
	}
}
