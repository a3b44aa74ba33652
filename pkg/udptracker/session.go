package udptracker

import (
	"context"
	"encoding/binary"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/anacrolix/torrent/metainfo"
	"github.com/anacrolix/torrent/tracker"
	"github.com/anthonyraymond/joal-udptracker/internal/configloader"
	"github.com/anthonyraymond/joal-udptracker/pkg/logs"
	"github.com/anthonyraymond/joal-udptracker/pkg/udptracker/connection"
	"github.com/anthonyraymond/joal-udptracker/pkg/udptracker/transaction"
	"github.com/anthonyraymond/joal-udptracker/pkg/udptracker/wire"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type AnnounceStats struct {
	Downloaded uint64
	Left       uint64
	Uploaded   uint64
	Event      tracker.AnnounceEvent
	// IP is sent only when it is an IPv4 address, otherwise the tracker uses the source address of the datagram.
	IP      net.IP
	NumWant uint32
}

// DefaultAnnounceStats announces an unknown amount left and asks for as many peers as the tracker allows.
func DefaultAnnounceStats() AnnounceStats {
	return AnnounceStats{
		Left:    ^uint64(0),
		Event:   tracker.None,
		NumWant: wire.NumWantUnlimited,
	}
}

// Session talks to a single UDP tracker through its own socket.
type Session struct {
	id          string
	endpoint    *net.UDPAddr
	borderline  time.Duration
	coordinator *transaction.Coordinator
	connections *connection.Manager
	log         *zap.Logger
	now         func() time.Time
}

// NewSession resolves trackerHost, either "host:port" or "udp://host:port/announce", and binds the session socket.
func NewSession(trackerHost string, conf *Config) (*Session, error) {
	if err := configloader.Validate(conf); err != nil {
		return nil, errors.Wrap(err, "invalid session config")
	}
	endpoint, err := resolveTracker(trackerHost)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenPacket("udp", conf.LocalAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to bind udp socket on '%s'", conf.LocalAddress)
	}

	id := uuid.NewString()
	log := logs.GetLogger().With(zap.String("session", id), zap.String("tracker", endpoint.String()))
	coordinator := transaction.NewCoordinator(conn, conf.coordinatorConfig(), log)

	log.Debug("tracker session: started", zap.Stringer("local", conn.LocalAddr()))
	return &Session{
		id:          id,
		endpoint:    endpoint,
		borderline:  conf.BorderlineMargin,
		coordinator: coordinator,
		connections: connection.NewManager(coordinator, conf.ConnectionIDValidity, log),
		log:         log,
		now:         time.Now,
	}, nil
}

func resolveTracker(trackerHost string) (*net.UDPAddr, error) {
	host := trackerHost
	if strings.Contains(trackerHost, "://") {
		u, err := url.Parse(trackerHost)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse tracker url '%s'", trackerHost)
		}
		if u.Scheme != "udp" {
			return nil, errors.Errorf("unsupported tracker scheme '%s'", u.Scheme)
		}
		host = u.Host
	}
	endpoint, err := net.ResolveUDPAddr("udp", host)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve tracker '%s'", trackerHost)
	}
	return endpoint, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Endpoint() net.Addr {
	return s.endpoint
}

func (s *Session) Stats() transaction.Stats {
	return s.coordinator.Stats()
}

// Announce registers the peer in the swarm of infoHash and returns the tracker answer.
// The peer list is left undecoded in AnnounceResponse.Peers.
func (s *Session) Announce(ctx context.Context, infoHash metainfo.Hash, peerID [20]byte, port uint16, stats AnnounceStats) (*wire.AnnounceResponse, error) {
	req := &wire.AnnounceRequest{
		InfoHash:   infoHash,
		PeerID:     peerID,
		Downloaded: stats.Downloaded,
		Left:       stats.Left,
		Uploaded:   stats.Uploaded,
		Event:      uint64(stats.Event),
		IPAddress:  ipv4ToUint32(stats.IP),
		NumWant:    stats.NumWant,
		Port:       port,
	}
	data, err := s.exchange(ctx, req, func(id uint64) { req.ConnectionID = id })
	if err != nil {
		s.log.Warn("tracker session: announce failed", zap.Stringer("infohash", infoHash), zap.Error(err))
		return nil, err
	}

	m, err := wire.Decode(data, wire.Announce)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode announce response")
	}
	res := m.(*wire.AnnounceResponse)
	s.log.Debug("tracker session: announced",
		zap.Stringer("infohash", infoHash),
		zap.Duration("interval", res.NextAnnounceIn()),
		zap.Uint32("seeders", res.Seeders),
		zap.Uint32("leechers", res.Leechers),
	)
	return res, nil
}

// Scrape fetches the swarm figures of up to wire.MaxScrapeInfoHashes torrents, entries come back in request order.
func (s *Session) Scrape(ctx context.Context, infoHashes ...metainfo.Hash) (*wire.ScrapeResponse, error) {
	req := &wire.ScrapeRequest{InfoHashes: make([][20]byte, 0, len(infoHashes))}
	for _, h := range infoHashes {
		req.InfoHashes = append(req.InfoHashes, h)
	}
	if _, err := req.MarshalBinary(); err != nil {
		return nil, err
	}

	data, err := s.exchange(ctx, req, func(id uint64) { req.ConnectionID = id })
	if err != nil {
		s.log.Warn("tracker session: scrape failed", zap.Int("torrents", len(infoHashes)), zap.Error(err))
		return nil, err
	}

	m, err := wire.Decode(data, wire.Scrape)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode scrape response")
	}
	res := m.(*wire.ScrapeResponse)
	if len(res.Entries) != len(infoHashes) {
		s.log.Debug("tracker session: scrape answered partially", zap.Int("requested", len(infoHashes)), zap.Int("received", len(res.Entries)))
	}
	return res, nil
}

// exchange sends req under a connection id, renewing the id and retrying once if the failure points at a stale one.
func (s *Session) exchange(ctx context.Context, req wire.Request, bind func(connectionID uint64)) ([]byte, error) {
	lease, err := s.connections.ConnectionID(ctx, s.endpoint)
	if err != nil {
		return nil, err
	}
	bind(lease.ID)
	borderline := lease.Remaining(s.now()) <= s.borderline

	data, err := s.coordinator.Send(ctx, s.endpoint, req)
	if err == nil || !isStaleSession(err, borderline) {
		return data, err
	}

	s.log.Info("tracker session: connection id looks stale, renewing", zap.Stringer("action", req.Action()), zap.Uint64("connection", lease.ID), zap.Error(err))
	lease, err = s.connections.Renew(ctx, s.endpoint, lease.ID)
	if err != nil {
		return nil, err
	}
	bind(lease.ID)
	return s.coordinator.Send(ctx, s.endpoint, req)
}

func isStaleSession(err error, borderline bool) bool {
	var rejected *transaction.RejectedError
	if errors.As(err, &rejected) {
		return mentionsConnectionID(rejected.Message)
	}
	return borderline && errors.Is(err, transaction.ErrTrackerTimeout)
}

// mentionsConnectionID matches the wordings trackers use, "Connection ID missmatch.", "invalid connection_id", ...
func mentionsConnectionID(message string) bool {
	normalized := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(message))
	return strings.Contains(normalized, "connectionid")
}

func ipv4ToUint32(ip net.IP) uint32 {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return binary.BigEndian.Uint32(v4)
}

// Close fails every pending call with ErrCancelled and releases the socket.
func (s *Session) Close() error {
	err := s.coordinator.Close()
	stats := s.coordinator.Stats()
	s.log.Debug("tracker session: closed",
		zap.Int64("sent", stats.Sent),
		zap.Int64("retransmitted", stats.Retransmitted),
		zap.Int64("matched", stats.Matched),
		zap.Int64("dropped", stats.Dropped),
	)
	return err
}
