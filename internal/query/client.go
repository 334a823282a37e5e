// Package query implements the UDP discovery transport: fire-and-forget
// status probes to known servers, LAN broadcast search, and decoding of the
// responses into pending records handed back to the game list.
package query

import (
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"serverbrowser-go/internal/gamelist"
)

// NameLearner receives display names servers report for content packages,
// feeding the unknown-content cache.
type NameLearner interface {
	LearnName(ident gamelist.ContentIdent, name string)
}

// Client sends discovery probes and feeds responses into the list's pending
// queue. It never blocks the tick loop: sends are fire-and-forget and
// responses arrive on a dedicated reader goroutine.
type Client struct {
	logger        *zap.Logger
	list          *gamelist.List
	learner       NameLearner
	localRevision string
	defaultPort   int

	conn *net.UDPConn
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewClient opens a UDP socket on an ephemeral port and starts the reader.
// learner may be nil.
func NewClient(list *gamelist.List, learner NameLearner, localRevision string, defaultPort int, logger *zap.Logger) (*Client, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero})
	if err != nil {
		return nil, fmt.Errorf("failed to open discovery socket: %w", err)
	}

	c := &Client{
		logger:        logger.Named("query"),
		list:          list,
		learner:       learner,
		localRevision: localRevision,
		defaultPort:   defaultPort,
		conn:          conn,
	}

	c.wg.Add(1)
	go c.readLoop()
	return c, nil
}

// Close shuts the socket down and waits for the reader to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.conn.Close()
	c.wg.Wait()
	return err
}

// QueryServer implements gamelist.StatusQuerier: sends one find-server
// probe to the given address. Failures are logged, never propagated; an
// unanswered probe simply leaves the entry offline.
func (c *Client) QueryServer(address string) {
	udpAddr, err := net.ResolveUDPAddr("udp4", address)
	if err != nil {
		c.logger.Debug("Unresolvable server address",
			zap.String("server", address),
			zap.Error(err))
		return
	}
	if _, err := c.conn.WriteToUDP(encodeFindServer(), udpAddr); err != nil {
		c.logger.Debug("Failed to send status query",
			zap.String("server", address),
			zap.Error(err))
	}
}

// SearchLAN broadcasts a find-server probe on the local network. Servers
// answer to our socket like any direct query.
func (c *Client) SearchLAN() {
	addr := &net.UDPAddr{IP: net.IPv4bcast, Port: c.defaultPort}
	if _, err := c.conn.WriteToUDP(encodeFindServer(), addr); err != nil {
		c.logger.Debug("Failed to send broadcast probe", zap.Error(err))
	}
}

func (c *Client) readLoop() {
	defer c.wg.Done()

	buf := make([]byte, maxPacketSize)
	for {
		n, remote, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.logger.Warn("Discovery socket read failed", zap.Error(err))
			}
			return
		}

		c.handlePacket(buf[:n], remote)
	}
}

func (c *Client) handlePacket(data []byte, remote *net.UDPAddr) {
	resp, err := decodeResponse(data)
	if err != nil {
		c.logger.Debug("Dropping malformed packet",
			zap.String("from", remote.String()),
			zap.Error(err))
		return
	}

	info := gamelist.ServerInfo{
		Name:              resp.Name,
		Revision:          resp.Revision,
		ClientsOn:         int(resp.ClientsOn),
		ClientsMax:        int(resp.ClientsMax),
		Online:            true,
		VersionCompatible: gamelist.ReleaseCompatible(c.localRevision, resp.Revision),
	}
	for _, ref := range resp.Content {
		// Resolution fields stay empty here; the compatibility resolver
		// owns them. Reported names only feed the learned-name cache.
		info.Content = append(info.Content, &gamelist.ContentInfo{Ident: ref.Ident})
		if c.learner != nil && ref.Name != "" {
			c.learner.LearnName(ref.Ident, ref.Name)
		}
	}

	c.logger.Debug("Received server response",
		zap.String("server", remote.String()),
		zap.String("name", resp.Name))

	c.list.PushDiscovered(&gamelist.PendingRecord{
		Address: remote.String(),
		Info:    info,
	})
}
