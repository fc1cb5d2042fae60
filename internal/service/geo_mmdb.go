package service

import (
	"context"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// MMDBGeoResolver looks addresses up in a local MaxMind city database.
// Useful when outbound calls to a lookup service are undesirable.
type MMDBGeoResolver struct {
	reader *geoip2.Reader
}

func NewMMDBGeoResolver(path string) (*MMDBGeoResolver, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &MMDBGeoResolver{reader: reader}, nil
}

func (r *MMDBGeoResolver) Resolve(_ context.Context, ip string) *GeoInfo {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil
	}
	record, err := r.reader.City(parsed)
	if err != nil {
		return nil
	}
	country := record.Country.Names["en"]
	city := record.City.Names["en"]
	if country == "" && city == "" {
		return nil
	}
	return &GeoInfo{Country: country, City: city}
}

func (r *MMDBGeoResolver) Close() error {
	return r.reader.Close()
}
