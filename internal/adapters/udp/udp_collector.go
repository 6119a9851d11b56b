package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ghalamif/DAOGuard/internal/domain"
	"github.com/ghalamif/DAOGuard/internal/ports"
)

// Config describes the socket advertisements arrive on.
type Config struct {
	Listen      string `yaml:"listen"`
	MaxDatagram int    `yaml:"max_datagram"`
}

func (c *Config) ApplyDefaults() {
	if c.Listen == "" {
		c.Listen = "[::]:12345"
	}
	if c.MaxDatagram <= 0 {
		c.MaxDatagram = 1024
	}
}

func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("listen address %q: %w", c.Listen, err)
	}
	if c.MaxDatagram > 65535 {
		return errors.New("max_datagram must be <= 65535")
	}
	return nil
}

// Collector reads one advertisement per datagram. The sender is the
// datagram's source IP (port dropped, as senders rebind freely) and the
// arrival is the local receive time.
type Collector struct {
	cfg  Config
	now  func() time.Time
	conn net.PacketConn

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

func NewCollector(cfg Config) (*Collector, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Collector{cfg: cfg, now: time.Now}, nil
}

func (c *Collector) Start(out chan<- *domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return fmt.Errorf("udp collector already started")
	}

	conn, err := net.ListenPacket("udp", c.cfg.Listen)
	if err != nil {
		return fmt.Errorf("udp listen %s: %w", c.cfg.Listen, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.conn = conn
	c.cancel = cancel
	c.started = true

	c.wg.Add(1)
	go c.consume(ctx, conn, out)
	return nil
}

// Addr is the bound address, useful when listening on port 0.
func (c *Collector) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.LocalAddr()
}

func (c *Collector) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	conn, cancel := c.conn, c.cancel
	c.started = false
	c.conn = nil
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	err := conn.Close()
	c.wg.Wait()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

func (c *Collector) consume(ctx context.Context, conn net.PacketConn, out chan<- *domain.Event) {
	defer c.wg.Done()

	buf := make([]byte, c.cfg.MaxDatagram)
	for {
		n, from, err := conn.ReadFrom(buf)
		arrival := c.now()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		ev := &domain.Event{
			Sender:  senderOf(from),
			Payload: payload,
			Arrival: arrival,
		}

		select {
		case <-ctx.Done():
			return
		case out <- ev:
		}
	}
}

func senderOf(addr net.Addr) domain.SenderID {
	if ua, ok := addr.(*net.UDPAddr); ok {
		return domain.SenderID(ua.IP.String())
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return domain.SenderID(addr.String())
	}
	return domain.SenderID(host)
}

var _ ports.Collector = (*Collector)(nil)
