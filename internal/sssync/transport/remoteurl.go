package transport

import (
	"fmt"
	"net/url"
	"strings"
)

// ParsedRemote is a decomposed remote location: for `s3://bucket/prefix`,
// Host is the bucket and Prefix is the path with its leading slash
// stripped. Mirrors the original's treatment of a remote's location as a
// URL whose host names the bucket and whose path names a key prefix.
type ParsedRemote struct {
	Scheme string
	Host   string
	Prefix string
}

// ParseRemoteLocation parses a Remote.Location value such as
// "s3://my-bucket/games" or "local:///var/data/mirror".
func ParseRemoteLocation(location string) (ParsedRemote, error) {
	u, err := url.Parse(location)
	if err != nil {
		return ParsedRemote{}, fmt.Errorf("transport: parse remote location %q: %w", location, err)
	}
	return ParsedRemote{
		Scheme: u.Scheme,
		Host:   u.Host,
		Prefix: strings.TrimPrefix(u.Path, "/"),
	}, nil
}
