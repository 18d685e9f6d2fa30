package ports

import (
	"errors"
	"strings"
	"testing"

	"github.com/docker/go-connections/nat"
)

func joined(ports []nat.Port) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = string(p)
	}
	return strings.Join(parts, ",")
}

func TestParseSinglePorts(t *testing.T) {
	got, err := Parse([]string{"8080", "443/udp", "9000/sctp"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if joined(got) != "8080/tcp,443/udp,9000/sctp" {
		t.Fatalf("unexpected ports %s", joined(got))
	}
}

func TestParseExpandsRanges(t *testing.T) {
	got, err := Parse([]string{"2000-2003/udp"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if joined(got) != "2000/udp,2001/udp,2002/udp,2003/udp" {
		t.Fatalf("unexpected range expansion %s", joined(got))
	}
}

func TestParseDeduplicatesKeepingFirstSeenOrder(t *testing.T) {
	got, err := Parse([]string{"80", "80/tcp", "79-81"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if joined(got) != "80/tcp,79/tcp,81/tcp" {
		t.Fatalf("unexpected ports %s", joined(got))
	}
}

func TestParseTrimsWhitespace(t *testing.T) {
	got, err := Parse([]string{" 8080/tcp "})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if joined(got) != "8080/tcp" {
		t.Fatalf("unexpected ports %s", joined(got))
	}
}

func TestParseNilStaysNil(t *testing.T) {
	got, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestParseEmptyStaysEmpty(t *testing.T) {
	got, err := Parse([]string{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %v", got)
	}
}

func TestParseRejectsBadSpecs(t *testing.T) {
	for _, spec := range []string{"", "abc", "0", "70000", "8080-80", "80-82-90", "80/icmp", "8080-", "-90", "80/tcp/x"} {
		t.Run(spec, func(t *testing.T) {
			if _, err := Parse([]string{spec}); !errors.Is(err, ErrInvalidSpec) {
				t.Fatalf("expected invalid spec error for %q, got %v", spec, err)
			}
		})
	}
}

func TestSortedOrdersWithoutMutating(t *testing.T) {
	in := []nat.Port{"443/tcp", "80/udp", "80/tcp"}
	got := Sorted(in)
	if joined(got) != "80/tcp,80/udp,443/tcp" {
		t.Fatalf("unexpected order %s", joined(got))
	}
	if joined(in) != "443/tcp,80/udp,80/tcp" {
		t.Fatalf("input slice was mutated: %s", joined(in))
	}
}

func TestSortedNilStaysNil(t *testing.T) {
	if got := Sorted(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
