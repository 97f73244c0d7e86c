package installer

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

// imagePuller is the slice of the Docker API the installer needs.
type imagePuller interface {
	Pull(ctx context.Context, ref string) error
	Close() error
}

type dockerPuller struct {
	cli *client.Client
}

func newDockerPuller() (imagePuller, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &dockerPuller{cli: cli}, nil
}

func (d *dockerPuller) Pull(ctx context.Context, ref string) error {
	reader, err := d.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()
	// The pull only completes once the progress stream is drained.
	_, err = io.Copy(io.Discard, reader)
	return err
}

func (d *dockerPuller) Close() error {
	return d.cli.Close()
}

func (i *Installer) pullerClient() (imagePuller, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.puller != nil {
		return i.puller, nil
	}
	puller, err := i.newPuller()
	if err != nil {
		return nil, err
	}
	i.puller = puller
	return puller, nil
}

// installImage pulls the container image and prepares a docker run launch
// with stdio attached.
func (i *Installer) installImage(ctx context.Context, descriptor *api.PluginDescriptor) (*api.Installation, error) {
	if descriptor.ImageRef == "" {
		return nil, api.NewOperationError(api.ErrorKindInstall,
			fmt.Sprintf("plugin %q declares no image reference", descriptor.Slug))
	}

	puller, err := i.pullerClient()
	if err != nil {
		return nil, api.WrapOperationError(api.ErrorKindInstall,
			fmt.Sprintf("container runtime unavailable for %q", descriptor.Slug), err)
	}

	logging.Info(subsystem, "Pulling image %s for plugin %s", descriptor.ImageRef, descriptor.Slug)
	if err := puller.Pull(ctx, descriptor.ImageRef); err != nil {
		if ctx.Err() != nil {
			return nil, api.WrapOperationError(api.ErrorKindInstall,
				fmt.Sprintf("image pull for %q timed out", descriptor.Slug), ctx.Err())
		}
		return nil, api.WrapOperationError(api.ErrorKindInstall,
			fmt.Sprintf("image pull for %q failed", descriptor.Slug), err)
	}

	dir, cleanup, err := i.attemptDir(descriptor.Slug)
	if err != nil {
		return nil, err
	}

	return &api.Installation{
		Dir:     dir,
		Command: "docker",
		Args:    []string{"run", "--rm", "-i", descriptor.ImageRef},
		Env:     minimalEnv(dir),
		Cleanup: cleanup,
	}, nil
}
