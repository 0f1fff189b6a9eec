// Package docker runs hosted instances as Docker containers.
//
// Each instance is one long-running container named after the instance. The
// container name is the lookup key for stop and remove, so no state is kept
// in this process. Names are validated by launcher.ValidateName before they
// reach the Docker API.
package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"

	"github.com/sakif/botpanel/internal/launcher"
)

// labelInstance marks containers created by the panel.
const labelInstance = "io.botpanel.instance"

// Launcher implements launcher.Launcher using the Docker Engine API.
type Launcher struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
}

var _ launcher.Launcher = (*Launcher)(nil)

// New connects to the Docker daemon described by the environment (DOCKER_HOST
// etc.) and makes sure the bot image is present, pulling it if needed.
func New(cfg Config, logger *slog.Logger) (*Launcher, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("failed to reach docker daemon: %w", err)
	}

	if err := ensureImage(ctx, cli, cfg.Image, logger); err != nil {
		cli.Close()
		return nil, err
	}

	return &Launcher{
		cli:    cli,
		config: cfg,
		logger: logger,
	}, nil
}

// Close releases the Docker client.
func (l *Launcher) Close() error {
	return l.cli.Close()
}

func ensureImage(ctx context.Context, cli *client.Client, ref string, logger *slog.Logger) error {
	if _, err := cli.ImageInspect(ctx, ref); err == nil {
		return nil
	}

	logger.Info("pulling bot image", slog.String("image", ref))
	reader, err := cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	defer reader.Close()
	// Read everything to block until the pull is complete
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to read pull progress: %w", err)
	}
	logger.Info("bot image is ready", slog.String("image", ref))
	return nil
}

// Start launches the container for spec, or returns the pid of the one that is
// already running under that name. A stopped container with the same name is
// replaced so a changed token takes effect.
func (l *Launcher) Start(ctx context.Context, spec launcher.Spec) (int, error) {
	if err := launcher.ValidateName(spec.Name); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, l.config.Timeout)
	defer cancel()

	if pid, running, err := l.inspect(ctx, spec.Name); err != nil {
		return 0, err
	} else if running {
		l.logger.Debug("instance already running", slog.String("name", spec.Name), slog.Int("pid", pid))
		return pid, nil
	}

	// Leftover stopped container: remove before recreating under the same name.
	if err := l.remove(ctx, spec.Name); err != nil {
		return 0, err
	}

	containerCfg, hostCfg := l.containerConfig(spec)
	resp, err := l.cli.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		return 0, fmt.Errorf("ContainerCreate %s failed: %w", spec.Name, err)
	}

	if err := l.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = l.remove(ctx, spec.Name)
		return 0, fmt.Errorf("ContainerStart %s failed: %w", spec.Name, err)
	}

	pid, _, err := l.inspect(ctx, spec.Name)
	if err != nil {
		return 0, err
	}

	l.logger.Info("instance started", slog.String("name", spec.Name), slog.Int("pid", pid))
	return pid, nil
}

// Stop stops the named container, giving it StopGrace to exit.
func (l *Launcher) Stop(ctx context.Context, name string) error {
	if err := launcher.ValidateName(name); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, l.config.Timeout+l.config.StopGrace)
	defer cancel()

	grace := int(l.config.StopGrace.Seconds())
	err := l.cli.ContainerStop(ctx, name, container.StopOptions{Timeout: &grace})
	if err != nil && !cerrdefs.IsNotFound(err) {
		return fmt.Errorf("ContainerStop %s failed: %w", name, err)
	}
	return nil
}

// Remove force-removes the named container.
func (l *Launcher) Remove(ctx context.Context, name string) error {
	if err := launcher.ValidateName(name); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, l.config.Timeout)
	defer cancel()

	return l.remove(ctx, name)
}

func (l *Launcher) remove(ctx context.Context, name string) error {
	err := l.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true})
	if err != nil && !cerrdefs.IsNotFound(err) {
		return fmt.Errorf("ContainerRemove %s failed: %w", name, err)
	}
	return nil
}

// inspect reports the pid and running state of the named container. A missing
// container is (0, false, nil).
func (l *Launcher) inspect(ctx context.Context, name string) (int, bool, error) {
	info, err := l.cli.ContainerInspect(ctx, name)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("ContainerInspect %s failed: %w", name, err)
	}
	if info.ContainerJSONBase == nil || info.State == nil {
		return 0, false, nil
	}
	return info.State.Pid, info.State.Running, nil
}

// containerConfig builds the create request for one instance.
func (l *Launcher) containerConfig(spec launcher.Spec) (*container.Config, *container.HostConfig) {
	env := []string{"INSTANCE_NAME=" + spec.Name}
	if spec.Token != "" {
		env = append(env, "DISCORD_TOKEN="+spec.Token)
	}

	cfg := &container.Config{
		Image:  l.config.Image,
		Env:    env,
		Labels: map[string]string{labelInstance: spec.Name},
		User:   "nobody",
	}

	hostCfg := &container.HostConfig{
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
		Resources: container.Resources{
			Memory:   l.config.MemoryLimit,
			NanoCPUs: int64(l.config.CPULimit * 1e9),
		},
		ReadonlyRootfs: true,
	}

	return cfg, hostCfg
}
