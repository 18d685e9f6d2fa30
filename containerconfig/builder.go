package containerconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Builder accumulates container runtime settings and freezes them into
// a Config. A failed setter leaves the builder unchanged; Build never
// fails. Not safe for concurrent use, unlike the Configs it produces.
type Builder struct {
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

// NewBuilder returns a Builder with the image creation time pinned to the
// Unix epoch and linux/amd64 as the sole target platform. Everything else
// starts unset.
func NewBuilder() *Builder {
	return &Builder{
		creationTime: time.Unix(0, 0).UTC(),
		platforms:    []ocispec.Platform{{Architecture: "amd64", OS: "linux"}},
	}
}

// SetCreationTime sets the creation timestamp recorded in the image.
func (b *Builder) SetCreationTime(t time.Time) {
	b.creationTime = t
}

// SetEntrypoint sets the tokenized command the container executes. nil
// clears the field back to unset; an empty non-nil slice records an
// explicitly empty entrypoint.
func (b *Builder) SetEntrypoint(entrypoint []string) {
	b.entrypoint = copyStrings(entrypoint)
}

// SetProgramArguments sets the tokenized arguments appended to the
// entrypoint. nil clears the field; an empty non-nil slice records
// explicitly empty arguments.
func (b *Builder) SetProgramArguments(args []string) {
	b.programArguments = copyStrings(args)
}

// SetUser sets the user and optional group the container runs as, in any
// form Docker accepts (name, uid, uid:gid). "" clears the field.
func (b *Builder) SetUser(user string) {
	b.user = user
}

// SetEnvironment replaces the environment variable map. nil clears the
// field; an empty non-nil map records an explicitly empty environment.
// Fails if any variable name is empty or contains '='.
func (b *Builder) SetEnvironment(env map[string]string) error {
	if env == nil {
		b.environment = nil
		return nil
	}
	next := make(map[string]string, len(env))
	for name, value := range env {
		if err := validateEnvName(name); err != nil {
			return err
		}
		next[name] = value
	}
	b.environment = next
	return nil
}

// AddEnvironmentVariable sets a single environment variable, overwriting
// any previous value for the same name.
func (b *Builder) AddEnvironmentVariable(name, value string) error {
	if err := validateEnvName(name); err != nil {
		return err
	}
	if b.environment == nil {
		b.environment = make(map[string]string)
	}
	b.environment[name] = value
	return nil
}

// SetExposedPorts replaces the set of exposed ports, normalized to
// "number/protocol" form. nil clears the field; an empty non-nil slice
// records an explicitly empty set. Ports must be single numbers in
// 1-65535 with protocol tcp, udp or sctp.
func (b *Builder) SetExposedPorts(ports []nat.Port) error {
	if ports == nil {
		b.exposedPorts = nil
		return nil
	}
	next := make(nat.PortSet, len(ports))
	for _, port := range ports {
		normalized, err := normalizePort(port)
		if err != nil {
			return err
		}
		next[normalized] = struct{}{}
	}
	b.exposedPorts = next
	return nil
}

// AddExposedPorts adds ports to the exposed set, creating it if it was
// unset. Either every port is added or none are.
func (b *Builder) AddExposedPorts(ports ...nat.Port) error {
	if len(ports) == 0 {
		return nil
	}
	normalized := make([]nat.Port, len(ports))
	for i, port := range ports {
		p, err := normalizePort(port)
		if err != nil {
			return err
		}
		normalized[i] = p
	}
	if b.exposedPorts == nil {
		b.exposedPorts = make(nat.PortSet, len(normalized))
	}
	for _, p := range normalized {
		b.exposedPorts[p] = struct{}{}
	}
	return nil
}

// SetVolumes replaces the set of declared mount points. nil clears the
// field; an empty non-nil slice records an explicitly empty set. Fails
// without changing the field unless every path is absolute.
func (b *Builder) SetVolumes(paths []string) error {
	if paths == nil {
		b.volumes = nil
		return nil
	}
	next := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		if err := validateVolumePath(path); err != nil {
			return err
		}
		next[path] = struct{}{}
	}
	b.volumes = next
	return nil
}

// AddVolumes adds mount points to the volume set, creating it if it was
// unset. Either every path is added or none are.
func (b *Builder) AddVolumes(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	for _, path := range paths {
		if err := validateVolumePath(path); err != nil {
			return err
		}
	}
	if b.volumes == nil {
		b.volumes = make(map[string]struct{}, len(paths))
	}
	for _, path := range paths {
		b.volumes[path] = struct{}{}
	}
	return nil
}

// SetLabels replaces the image label map. nil clears the field; an empty
// non-nil map records explicitly empty labels. Fails if any key is empty.
func (b *Builder) SetLabels(labels map[string]string) error {
	if labels == nil {
		b.labels = nil
		return nil
	}
	next := make(map[string]string, len(labels))
	for key, value := range labels {
		if err := validateLabelKey(key); err != nil {
			return err
		}
		next[key] = value
	}
	b.labels = next
	return nil
}

// AddLabel sets a single image label, overwriting any previous value for
// the same key.
func (b *Builder) AddLabel(key, value string) error {
	if err := validateLabelKey(key); err != nil {
		return err
	}
	if b.labels == nil {
		b.labels = make(map[string]string)
	}
	b.labels[key] = value
	return nil
}

// SetWorkingDirectory sets the working directory the container starts
// in. "" clears the field; anything else must be an absolute path.
func (b *Builder) SetWorkingDirectory(dir string) error {
	if dir != "" && !strings.HasPrefix(dir, "/") {
		return fmt.Errorf("%w: working directory %q must be an absolute path", ErrInvalidArgument, dir)
	}
	b.workingDirectory = dir
	return nil
}

// SetPlatforms replaces the target platform list. The list cannot be
// cleared: at least one platform with both OS and architecture filled in
// is required. Duplicates collapse to the first occurrence.
func (b *Builder) SetPlatforms(platforms []ocispec.Platform) error {
	if len(platforms) == 0 {
		return fmt.Errorf("%w: at least one target platform is required", ErrInvalidArgument)
	}
	next, err := dedupePlatforms(nil, platforms)
	if err != nil {
		return err
	}
	b.platforms = next
	return nil
}

// AddPlatforms adds target platforms, skipping any already present.
// Either every platform is accepted or none are.
func (b *Builder) AddPlatforms(platforms ...ocispec.Platform) error {
	if len(platforms) == 0 {
		return nil
	}
	next, err := dedupePlatforms(b.platforms, platforms)
	if err != nil {
		return err
	}
	b.platforms = next
	return nil
}

// Build snapshots the builder into an immutable Config. It never fails:
// every value the builder holds has already been validated on the way
// in. The builder stays usable and later mutations do not leak into
// Configs built earlier.
func (b *Builder) Build() *Config {
	return &Config{
		creationTime:     b.creationTime,
		entrypoint:       copyStrings(b.entrypoint),
		programArguments: copyStrings(b.programArguments),
		environment:      copyStringMap(b.environment),
		exposedPorts:     copyPortSet(b.exposedPorts),
		volumes:          copyStringSet(b.volumes),
		labels:           copyStringMap(b.labels),
		user:             b.user,
		workingDirectory: b.workingDirectory,
		platforms:        copyPlatforms(b.platforms),
	}
}

func validateEnvName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: environment variable name must not be empty", ErrInvalidArgument)
	}
	if strings.Contains(name, "=") {
		return fmt.Errorf("%w: environment variable name %q must not contain '='", ErrInvalidArgument, name)
	}
	return nil
}

func validateVolumePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: volume path must not be empty", ErrInvalidArgument)
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("%w: volume path %q must be absolute", ErrInvalidArgument, path)
	}
	return nil
}

func validateLabelKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: label key must not be empty", ErrInvalidArgument)
	}
	return nil
}

// normalizePort rewrites a port into its canonical "number/protocol"
// form so that equivalent spellings land on the same set entry.
func normalizePort(port nat.Port) (nat.Port, error) {
	if port == "" {
		return "", fmt.Errorf("%w: exposed port must not be empty", ErrInvalidArgument)
	}
	if strings.Count(string(port), "/") > 1 {
		return "", fmt.Errorf("%w: exposed port %q is malformed", ErrInvalidArgument, string(port))
	}
	proto, portNum := nat.SplitProtoPort(string(port))
	if portNum == "" {
		return "", fmt.Errorf("%w: exposed port %q has no port number", ErrInvalidArgument, string(port))
	}
	proto = strings.ToLower(proto)
	switch proto {
	case "tcp", "udp", "sctp":
	default:
		return "", fmt.Errorf("%w: exposed port %q has unsupported protocol %q", ErrInvalidArgument, string(port), proto)
	}
	n, err := nat.ParsePort(portNum)
	if err != nil {
		return "", fmt.Errorf("%w: exposed port %q: %v", ErrInvalidArgument, string(port), err)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: exposed port %q must be between 1 and 65535", ErrInvalidArgument, string(port))
	}
	normalized, err := nat.NewPort(proto, portNum)
	if err != nil {
		return "", fmt.Errorf("%w: exposed port %q: %v", ErrInvalidArgument, string(port), err)
	}
	return normalized, nil
}

func validatePlatform(p ocispec.Platform) error {
	if strings.TrimSpace(p.OS) == "" {
		return fmt.Errorf("%w: platform OS must not be empty", ErrInvalidArgument)
	}
	if strings.TrimSpace(p.Architecture) == "" {
		return fmt.Errorf("%w: platform architecture must not be empty", ErrInvalidArgument)
	}
	return nil
}

// dedupePlatforms validates additions and appends those not already in
// base, returning a fresh slice. base is never mutated.
func dedupePlatforms(base, additions []ocispec.Platform) ([]ocispec.Platform, error) {
	for _, p := range additions {
		if err := validatePlatform(p); err != nil {
			return nil, err
		}
	}
	seen := make(map[platformKey]struct{}, len(base)+len(additions))
	next := make([]ocispec.Platform, 0, len(base)+len(additions))
	for _, p := range base {
		seen[keyOf(p)] = struct{}{}
		next = append(next, p)
	}
	for _, p := range additions {
		key := keyOf(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		p.OSFeatures = copyStrings(p.OSFeatures)
		next = append(next, p)
	}
	return next, nil
}

// platformKey is a comparable identity for a platform. OSFeatures is
// folded in with length prefixes so neighboring values cannot collide.
type platformKey struct {
	os, arch, variant, osVersion, features string
}

func keyOf(p ocispec.Platform) platformKey {
	features := ""
	for _, f := range p.OSFeatures {
		features += fmt.Sprintf("%d:%s", len(f), f)
	}
	return platformKey{p.OS, p.Architecture, p.Variant, p.OSVersion, features}
}
