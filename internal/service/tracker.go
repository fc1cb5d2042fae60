package service

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/ipsentry/ipsentry/internal/model"
	"github.com/ipsentry/ipsentry/internal/pkg/metrics"
)

const maxUserAgentLen = 255

// fallbackAddress is recorded when neither a forwarded-for header nor a
// transport peer address is available.
const fallbackAddress = "0.0.0.0"

// RequestInfo is the framework-free request descriptor handed to the
// interceptor. The transport adapter fills it from whatever request
// object the hosting framework provides.
type RequestInfo struct {
	RemoteAddr   string
	ForwardedFor string
	Path         string
	Method       string
	UserAgent    string
}

// ClientAddress resolves the originating address: the leftmost entry of
// the forwarded-for header when present, otherwise the transport peer.
func (r RequestInfo) ClientAddress() string {
	if r.ForwardedFor != "" {
		first := strings.TrimSpace(strings.SplitN(r.ForwardedFor, ",", 2)[0])
		if first != "" {
			return first
		}
	}
	addr := r.RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if addr == "" {
		return fallbackAddress
	}
	return addr
}

type Decision struct {
	Allowed bool
	Address string
}

// TrackerService is the request interceptor: blocklist check, then geo
// enrichment for allowed requests, with exactly one best-effort log
// write either way.
type TrackerService struct {
	blocklist *BlocklistService
	geo       *GeoService
	sink      RequestLogSink
}

func NewTrackerService(blocklist *BlocklistService, geo *GeoService, sink RequestLogSink) *TrackerService {
	return &TrackerService{blocklist: blocklist, geo: geo, sink: sink}
}

func (s *TrackerService) Intercept(ctx context.Context, req RequestInfo) Decision {
	addr := req.ClientAddress()
	entry := &model.RequestLog{
		IPAddress: addr,
		Timestamp: time.Now().UTC(),
		Path:      req.Path,
		Method:    optional(req.Method),
		UserAgent: optional(truncate(req.UserAgent, maxUserAgentLen)),
	}

	if s.blocklist.IsBlocked(ctx, addr) {
		// Rejected requests are logged without geo enrichment; no
		// point spending an upstream call on them.
		s.sink.Write(entry)
		metrics.RequestsTotal.WithLabelValues("blocked").Inc()
		return Decision{Allowed: false, Address: addr}
	}

	if info := s.geo.Lookup(ctx, addr); info != nil {
		entry.Country = optional(info.Country)
		entry.City = optional(info.City)
	}
	s.sink.Write(entry)
	metrics.RequestsTotal.WithLabelValues("allowed").Inc()
	return Decision{Allowed: true, Address: addr}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
