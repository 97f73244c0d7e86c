package installer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/internal/config"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

const subsystem = "Installer"

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// Installer materializes plugin artifacts for validation runs.
type Installer struct {
	workDir string

	mu        sync.Mutex
	puller    imagePuller
	newPuller func() (imagePuller, error)
}

// New creates an installer. The Docker client is dialed lazily on the
// first image install, so package-only deployments never need a daemon.
func New(cfg config.ValidatorConfig) *Installer {
	return &Installer{
		workDir:   cfg.WorkDir,
		newPuller: newDockerPuller,
	}
}

// Install materializes the descriptor's artifact and returns how to launch
// it. The caller owns the returned Cleanup.
func (i *Installer) Install(ctx context.Context, descriptor *api.PluginDescriptor) (*api.Installation, error) {
	if descriptor == nil {
		return nil, api.NewOperationError(api.ErrorKindInternal, "install requires a descriptor")
	}

	switch descriptor.Artifact {
	case api.ArtifactNPM:
		return i.installPackage(ctx, descriptor)
	case api.ArtifactImage:
		return i.installImage(ctx, descriptor)
	default:
		return nil, api.NewOperationError(api.ErrorKindInstall,
			fmt.Sprintf("plugin %q has unsupported artifact type %q", descriptor.Slug, descriptor.Artifact))
	}
}

// Close releases the Docker client if one was ever dialed.
func (i *Installer) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.puller == nil {
		return nil
	}
	err := i.puller.Close()
	i.puller = nil
	return err
}

// attemptDir creates a unique working directory for one install attempt.
// Directories are never reused across attempts.
func (i *Installer) attemptDir(slug string) (string, func(), error) {
	pattern := "oc-install-" + strings.ReplaceAll(slug, "/", "-") + "-"
	dir, err := os.MkdirTemp(i.workDir, pattern)
	if err != nil {
		return "", nil, api.WrapOperationError(api.ErrorKindInternal, "create install directory", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			logging.Warn(subsystem, "Could not remove install directory %s: %v", dir, err)
		}
	}
	return dir, cleanup, nil
}

// minimalEnv is the child environment: enough to find the runtime, nothing
// inherited that could carry an operator secret into plugin code.
func minimalEnv(dir string) []string {
	return []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + dir,
	}
}

// tail keeps the end of command output for error context.
func tail(output []byte, n int) string {
	s := strings.TrimSpace(string(output))
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
