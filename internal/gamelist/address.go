package gamelist

import (
	"net"
	"strconv"
	"strings"
)

// DefaultPort is the port assumed when a connection string carries none.
const DefaultPort = 3979

// ResolveAddress normalizes a connection string to canonical host:port
// form: the host is lowercased, IPv6 literals keep their brackets, and the
// default port is applied when missing. Invalid input is returned lowercased
// as-is rather than rejected; the list treats the string as an opaque key.
func ResolveAddress(connectionString string, defaultPort int) string {
	s := strings.ToLower(strings.TrimSpace(connectionString))
	if s == "" {
		return s
	}

	host, port, err := net.SplitHostPort(s)
	if err != nil {
		// No port present (or bare IPv6 literal).
		host = strings.Trim(s, "[]")
		port = strconv.Itoa(defaultPort)
	}
	return net.JoinHostPort(host, port)
}

// NewDefaultResolver returns an AddressResolver applying the given default
// port.
func NewDefaultResolver(defaultPort int) AddressResolver {
	return ResolverFunc(func(connectionString string) string {
		return ResolveAddress(connectionString, defaultPort)
	})
}
