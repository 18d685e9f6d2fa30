package containerconfig

import (
	"sort"
	"time"

	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Config is an immutable description of how a container built from an
// image runs, produced by Builder.Build. Accessors return copies, so
// Configs are safe to share across goroutines.
type Config struct {
	creationTime     time.Time
	entrypoint       []string
	programArguments []string
	environment      map[string]string
	exposedPorts     nat.PortSet
	volumes          map[string]struct{}
	labels           map[string]string
	user             string
	workingDirectory string
	platforms        []ocispec.Platform
}

// CreationTime reports the image creation timestamp. Defaults to the
// Unix epoch so unconfigured builds stay reproducible.
func (c *Config) CreationTime() time.Time {
	return c.creationTime
}

// Entrypoint reports the tokenized entrypoint command, or nil when unset.
func (c *Config) Entrypoint() []string {
	return copyStrings(c.entrypoint)
}

// ProgramArguments reports the tokenized arguments appended to the
// entrypoint, or nil when unset.
func (c *Config) ProgramArguments() []string {
	return copyStrings(c.programArguments)
}

// Environment reports the environment variable map, or nil when unset.
func (c *Config) Environment() map[string]string {
	return copyStringMap(c.environment)
}

// ExposedPorts reports the exposed container ports sorted by port number,
// then by protocol. Returns nil when unset.
func (c *Config) ExposedPorts() []nat.Port {
	if c.exposedPorts == nil {
		return nil
	}
	ports := make([]nat.Port, 0, len(c.exposedPorts))
	for port := range c.exposedPorts {
		ports = append(ports, port)
	}
	sortPorts(ports)
	return ports
}

// Volumes reports the declared mount points in lexical order, or nil
// when unset.
func (c *Config) Volumes() []string {
	if c.volumes == nil {
		return nil
	}
	paths := make([]string, 0, len(c.volumes))
	for path := range c.volumes {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Labels reports the image labels, or nil when unset.
func (c *Config) Labels() map[string]string {
	return copyStringMap(c.labels)
}

// User reports the runtime user and optional group, or "" when unset.
func (c *Config) User() string {
	return c.user
}

// WorkingDirectory reports the container working directory, or "" when
// unset.
func (c *Config) WorkingDirectory() string {
	return c.workingDirectory
}

// Platforms reports the target platforms. The slice is never empty: a
// builder that was never told otherwise targets linux/amd64.
func (c *Config) Platforms() []ocispec.Platform {
	return copyPlatforms(c.platforms)
}

// sortPorts orders ports by number, then by protocol.
func sortPorts(ports []nat.Port) {
	sort.Slice(ports, func(i, j int) bool {
		if ports[i].Int() != ports[j].Int() {
			return ports[i].Int() < ports[j].Int()
		}
		return ports[i].Proto() < ports[j].Proto()
	})
}

// copyStrings copies a string slice, preserving nil.
func copyStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyPortSet(s nat.PortSet) nat.PortSet {
	if s == nil {
		return nil
	}
	out := make(nat.PortSet, len(s))
	for port := range s {
		out[port] = struct{}{}
	}
	return out
}

func copyStringSet(s map[string]struct{}) map[string]struct{} {
	if s == nil {
		return nil
	}
	out := make(map[string]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// copyPlatforms deep-copies platforms, including each OSFeatures slice.
func copyPlatforms(platforms []ocispec.Platform) []ocispec.Platform {
	if platforms == nil {
		return nil
	}
	out := make([]ocispec.Platform, len(platforms))
	for i, p := range platforms {
		p.OSFeatures = copyStrings(p.OSFeatures)
		out[i] = p
	}
	return out
}
