package installer

import (
	"context"
	"fmt"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

// installPackage installs an npm package reference into a private prefix
// and prepares an npm exec launch against that prefix.
func (i *Installer) installPackage(ctx context.Context, descriptor *api.PluginDescriptor) (*api.Installation, error) {
	if descriptor.PackageRef == "" {
		return nil, api.NewOperationError(api.ErrorKindInstall,
			fmt.Sprintf("plugin %q declares no package reference", descriptor.Slug))
	}

	dir, cleanup, err := i.attemptDir(descriptor.Slug)
	if err != nil {
		return nil, err
	}

	logging.Info(subsystem, "Installing package %s for plugin %s", descriptor.PackageRef, descriptor.Slug)

	cmd := execCommandContext(ctx, "npm", "install",
		"--prefix", dir,
		"--no-audit", "--no-fund", "--loglevel", "error",
		"--", descriptor.PackageRef)
	cmd.Dir = dir
	// HOME inside the attempt dir keeps the operator's .npmrc, and any
	// token in it, away from the install.
	cmd.Env = append(cmd.Env, minimalEnv(dir)...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		cleanup()
		if ctx.Err() != nil {
			return nil, api.WrapOperationError(api.ErrorKindInstall,
				fmt.Sprintf("package install for %q timed out", descriptor.Slug), ctx.Err())
		}
		return nil, api.NewOperationError(api.ErrorKindInstall,
			fmt.Sprintf("package install for %q failed: %s", descriptor.Slug, tail(output, 512)))
	}

	return &api.Installation{
		Dir:     dir,
		Command: "npm",
		Args:    []string{"exec", "--prefix", dir, "--yes", "--", descriptor.PackageRef},
		Env:     minimalEnv(dir),
		Cleanup: cleanup,
	}, nil
}
