package dockermeta

import (
	"fmt"
	"sort"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"

	"github.com/splax/containerkit/containerconfig"
)

// CreateConfig renders a configuration as the container.Config payload
// ContainerCreate expects. Unset collections stay nil so the engine
// inherits the image defaults; explicitly empty ones override them with
// nothing. Creation time and platforms describe the image rather than a
// container, so they are not mapped.
func CreateConfig(cfg *containerconfig.Config, image string) (*container.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if strings.TrimSpace(image) == "" {
		return nil, fmt.Errorf("image name cannot be empty")
	}

	var exposed nat.PortSet
	if ports := cfg.ExposedPorts(); ports != nil {
		exposed = make(nat.PortSet, len(ports))
		for _, port := range ports {
			exposed[port] = struct{}{}
		}
	}

	var volumes map[string]struct{}
	if paths := cfg.Volumes(); paths != nil {
		volumes = make(map[string]struct{}, len(paths))
		for _, path := range paths {
			volumes[path] = struct{}{}
		}
	}

	return &container.Config{
		Image:        image,
		Entrypoint:   cfg.Entrypoint(),
		Cmd:          cfg.ProgramArguments(),
		Env:          EncodeEnv(cfg.Environment()),
		ExposedPorts: exposed,
		Volumes:      volumes,
		Labels:       cfg.Labels(),
		User:         cfg.User(),
		WorkingDir:   cfg.WorkingDirectory(),
	}, nil
}

// FromImageConfig seeds a builder from the runtime configuration an
// image carries, typically the output of an image inspect. The returned
// builder can be adjusted further before building.
func FromImageConfig(ic *container.Config) (*containerconfig.Builder, error) {
	if ic == nil {
		return nil, fmt.Errorf("image config cannot be nil")
	}

	b := containerconfig.NewBuilder()
	b.SetEntrypoint(ic.Entrypoint)
	b.SetProgramArguments(ic.Cmd)
	b.SetUser(ic.User)

	env, err := ParseEnv(ic.Env)
	if err != nil {
		return nil, fmt.Errorf("image config environment: %w", err)
	}
	if err := b.SetEnvironment(env); err != nil {
		return nil, fmt.Errorf("image config environment: %w", err)
	}

	var exposed []nat.Port
	if ic.ExposedPorts != nil {
		exposed = make([]nat.Port, 0, len(ic.ExposedPorts))
		for port := range ic.ExposedPorts {
			exposed = append(exposed, port)
		}
	}
	if err := b.SetExposedPorts(exposed); err != nil {
		return nil, fmt.Errorf("image config exposed ports: %w", err)
	}

	var volumes []string
	if ic.Volumes != nil {
		volumes = make([]string, 0, len(ic.Volumes))
		for path := range ic.Volumes {
			volumes = append(volumes, path)
		}
	}
	if err := b.SetVolumes(volumes); err != nil {
		return nil, fmt.Errorf("image config volumes: %w", err)
	}

	if err := b.SetLabels(ic.Labels); err != nil {
		return nil, fmt.Errorf("image config labels: %w", err)
	}
	if err := b.SetWorkingDirectory(ic.WorkingDir); err != nil {
		return nil, fmt.Errorf("image config working directory: %w", err)
	}
	return b, nil
}

// EncodeEnv renders an environment map as the "NAME=value" list Docker
// consumes, sorted by name so the output is deterministic. nil stays nil.
func EncodeEnv(env map[string]string) []string {
	if env == nil {
		return nil
	}
	out := make([]string, 0, len(env))
	for name, value := range env {
		out = append(out, name+"="+value)
	}
	sort.Strings(out)
	return out
}

// ParseEnv parses "NAME=value" entries into a map. Later entries for the
// same name win, matching how the engine resolves duplicates. nil stays
// nil.
func ParseEnv(entries []string) (map[string]string, error) {
	if entries == nil {
		return nil, nil
	}
	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("environment entry %q is not in NAME=value form", entry)
		}
		if name == "" {
			return nil, fmt.Errorf("environment entry %q has an empty name", entry)
		}
		out[name] = value
	}
	return out, nil
}
