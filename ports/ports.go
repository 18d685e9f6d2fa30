package ports

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"
)

// ErrInvalidSpec indicates a port specification that cannot be parsed.
var ErrInvalidSpec = errors.New("ports: invalid port specification")

// Parse expands specifications like "8080", "443/udp" or
// "2000-2003/tcp" into normalized ports, deduplicated in first-seen
// order. The protocol defaults to tcp. Any bad specification fails the
// whole call; nil stays nil.
func Parse(specs []string) ([]nat.Port, error) {
	if specs == nil {
		return nil, nil
	}
	seen := make(map[nat.Port]struct{}, len(specs))
	out := make([]nat.Port, 0, len(specs))
	for _, spec := range specs {
		raw := strings.TrimSpace(spec)
		if raw == "" {
			return nil, fmt.Errorf("%w: empty specification", ErrInvalidSpec)
		}
		if strings.Count(raw, "/") > 1 {
			return nil, fmt.Errorf("%w: %q is malformed", ErrInvalidSpec, spec)
		}
		proto, portRange := nat.SplitProtoPort(raw)
		if portRange == "" {
			return nil, fmt.Errorf("%w: %q has no port number", ErrInvalidSpec, spec)
		}
		proto = strings.ToLower(proto)
		switch proto {
		case "tcp", "udp", "sctp":
		default:
			return nil, fmt.Errorf("%w: %q has unsupported protocol %q", ErrInvalidSpec, spec, proto)
		}
		first, last, err := parseRange(portRange)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSpec, spec, err)
		}
		for n := first; n <= last; n++ {
			port, err := nat.NewPort(proto, strconv.Itoa(n))
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSpec, spec, err)
			}
			if _, ok := seen[port]; ok {
				continue
			}
			seen[port] = struct{}{}
			out = append(out, port)
		}
	}
	return out, nil
}

// Sorted returns the ports ordered by port number, then by protocol. The
// input slice is left untouched.
func Sorted(ports []nat.Port) []nat.Port {
	if ports == nil {
		return nil
	}
	out := make([]nat.Port, len(ports))
	copy(out, ports)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Int() != out[j].Int() {
			return out[i].Int() < out[j].Int()
		}
		return out[i].Proto() < out[j].Proto()
	})
	return out
}

// parseRange splits "n" or "n-m" into inclusive bounds.
func parseRange(portRange string) (first, last int, err error) {
	lo, hi, isRange := strings.Cut(portRange, "-")
	first, err = parsePortNumber(lo)
	if err != nil {
		return 0, 0, err
	}
	if !isRange {
		return first, first, nil
	}
	last, err = parsePortNumber(hi)
	if err != nil {
		return 0, 0, err
	}
	if last < first {
		return 0, 0, fmt.Errorf("range %d-%d is out of order", first, last)
	}
	return first, last, nil
}

// parsePortNumber parses a decimal port, rejecting 0 and values above 65535.
func parsePortNumber(s string) (int, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("port %q is not a number between 1 and 65535", s)
	}
	return int(n), nil
}
