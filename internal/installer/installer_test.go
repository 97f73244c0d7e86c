package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/internal/config"
)

// mockExecCommandContext routes exec calls through TestHelperProcess.
func mockExecCommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", name}
	cs = append(cs, args...)
	cmd := exec.Command(os.Args[0], cs...)
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
	return cmd
}

// TestHelperProcess is a helper process for mocking exec.Command
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "No command\n")
		os.Exit(2)
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "npm":
		if len(args) > 0 && args[0] == "install" {
			ref := args[len(args)-1]
			if ref == "@broken/pkg" {
				fmt.Fprintf(os.Stderr, "npm ERR! 404 Not Found - %s\n", ref)
				os.Exit(1)
			}
			os.Exit(0)
		}
	}

	fmt.Fprintf(os.Stderr, "Unknown command: %s %v\n", cmd, args)
	os.Exit(1)
}

func newTestInstaller(t *testing.T) *Installer {
	t.Helper()

	oldExec := execCommandContext
	execCommandContext = mockExecCommandContext
	t.Cleanup(func() { execCommandContext = oldExec })

	installer := New(config.ValidatorConfig{WorkDir: t.TempDir()})
	t.Cleanup(func() { installer.Close() })
	return installer
}

func npmDescriptor(ref string) *api.PluginDescriptor {
	return &api.PluginDescriptor{Slug: "alpha", Artifact: api.ArtifactNPM, PackageRef: ref}
}

func TestInstallPackageLaysOutAttemptDir(t *testing.T) {
	installer := newTestInstaller(t)

	inst, err := installer.Install(context.Background(), npmDescriptor("@example/alpha"))
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	if _, err := os.Stat(inst.Dir); err != nil {
		t.Errorf("attempt dir %s should exist: %v", inst.Dir, err)
	}
	if inst.Command != "npm" {
		t.Errorf("Command = %q, want npm", inst.Command)
	}
	if !strings.Contains(strings.Join(inst.Args, " "), "@example/alpha") {
		t.Errorf("Args %v should reference the package", inst.Args)
	}

	inst.Cleanup()
	if _, err := os.Stat(inst.Dir); !os.IsNotExist(err) {
		t.Errorf("Cleanup() should remove %s", inst.Dir)
	}
	// Second call must be harmless.
	inst.Cleanup()
}

func TestInstallPackageEnvIsMinimal(t *testing.T) {
	t.Setenv("OPERATOR_SECRET", "super-secret")
	installer := newTestInstaller(t)

	inst, err := installer.Install(context.Background(), npmDescriptor("@example/alpha"))
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	defer inst.Cleanup()

	for _, kv := range inst.Env {
		if strings.Contains(kv, "OPERATOR_SECRET") {
			t.Fatalf("child env leaked parent variable: %s", kv)
		}
	}
	joined := strings.Join(inst.Env, "\n")
	if !strings.Contains(joined, "HOME="+inst.Dir) {
		t.Errorf("child HOME should live inside the attempt dir, got:\n%s", joined)
	}
}

func TestInstallPackageFailureCleansUp(t *testing.T) {
	installer := newTestInstaller(t)

	_, err := installer.Install(context.Background(), npmDescriptor("@broken/pkg"))
	if err == nil {
		t.Fatal("Install() should fail for a broken package")
	}
	if api.KindOf(err) != api.ErrorKindInstall {
		t.Errorf("error kind = %q, want install", api.KindOf(err))
	}
	if !strings.Contains(err.Error(), "alpha") {
		t.Errorf("error should name the plugin: %v", err)
	}

	entries, readErr := os.ReadDir(installer.workDir)
	if readErr != nil {
		t.Fatalf("read work dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Errorf("failed install left %d entries in the work dir", len(entries))
	}
}

func TestInstallPackageTimeout(t *testing.T) {
	installer := newTestInstaller(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := installer.Install(ctx, npmDescriptor("@broken/pkg"))
	if err == nil {
		t.Fatal("Install() should fail under an expired context")
	}
	if api.KindOf(err) != api.ErrorKindInstall {
		t.Errorf("error kind = %q, want install", api.KindOf(err))
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("error should report the timeout: %v", err)
	}
}

func TestInstallPackageRequiresRef(t *testing.T) {
	installer := newTestInstaller(t)

	_, err := installer.Install(context.Background(), &api.PluginDescriptor{Slug: "alpha", Artifact: api.ArtifactNPM})
	if err == nil || api.KindOf(err) != api.ErrorKindInstall {
		t.Errorf("missing package ref should be an install error, got %v", err)
	}
}

func TestInstallUnknownArtifact(t *testing.T) {
	installer := newTestInstaller(t)

	_, err := installer.Install(context.Background(), &api.PluginDescriptor{Slug: "alpha", Artifact: "wasm"})
	if err == nil || api.KindOf(err) != api.ErrorKindInstall {
		t.Errorf("unknown artifact should be an install error, got %v", err)
	}
}

func TestInstallNilDescriptor(t *testing.T) {
	installer := newTestInstaller(t)

	_, err := installer.Install(context.Background(), nil)
	if err == nil || api.KindOf(err) != api.ErrorKindInternal {
		t.Errorf("nil descriptor should be an internal error, got %v", err)
	}
}

// fakePuller records pulls without a Docker daemon.
type fakePuller struct {
	pulled []string
	err    error
	closed bool
}

func (f *fakePuller) Pull(_ context.Context, ref string) error {
	f.pulled = append(f.pulled, ref)
	return f.err
}

func (f *fakePuller) Close() error {
	f.closed = true
	return nil
}

func TestInstallImagePullsThenPreparesRun(t *testing.T) {
	installer := newTestInstaller(t)
	fake := &fakePuller{}
	installer.newPuller = func() (imagePuller, error) { return fake, nil }

	inst, err := installer.Install(context.Background(), &api.PluginDescriptor{
		Slug: "beta", Artifact: api.ArtifactImage, ImageRef: "ghcr.io/example/beta:1",
	})
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	defer inst.Cleanup()

	if len(fake.pulled) != 1 || fake.pulled[0] != "ghcr.io/example/beta:1" {
		t.Errorf("pulled = %v, want the image ref", fake.pulled)
	}
	want := []string{"run", "--rm", "-i", "ghcr.io/example/beta:1"}
	if inst.Command != "docker" || strings.Join(inst.Args, " ") != strings.Join(want, " ") {
		t.Errorf("launch = %s %v, want docker %v", inst.Command, inst.Args, want)
	}
}

func TestInstallImagePullFailure(t *testing.T) {
	installer := newTestInstaller(t)
	installer.newPuller = func() (imagePuller, error) {
		return &fakePuller{err: errors.New("manifest unknown")}, nil
	}

	_, err := installer.Install(context.Background(), &api.PluginDescriptor{
		Slug: "beta", Artifact: api.ArtifactImage, ImageRef: "ghcr.io/example/beta:1",
	})
	if err == nil || api.KindOf(err) != api.ErrorKindInstall {
		t.Errorf("pull failure should be an install error, got %v", err)
	}

	entries, readErr := os.ReadDir(installer.workDir)
	if readErr != nil {
		t.Fatalf("read work dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Errorf("failed pull left %d entries in the work dir", len(entries))
	}
}

func TestInstallImageRuntimeUnavailable(t *testing.T) {
	installer := newTestInstaller(t)
	installer.newPuller = func() (imagePuller, error) {
		return nil, errors.New("cannot connect to the Docker daemon")
	}

	_, err := installer.Install(context.Background(), &api.PluginDescriptor{
		Slug: "beta", Artifact: api.ArtifactImage, ImageRef: "ghcr.io/example/beta:1",
	})
	if err == nil || api.KindOf(err) != api.ErrorKindInstall {
		t.Errorf("missing runtime should be an install error, got %v", err)
	}
}

func TestCloseReleasesPuller(t *testing.T) {
	installer := newTestInstaller(t)
	fake := &fakePuller{}
	installer.newPuller = func() (imagePuller, error) { return fake, nil }

	_, err := installer.Install(context.Background(), &api.PluginDescriptor{
		Slug: "beta", Artifact: api.ArtifactImage, ImageRef: "ghcr.io/example/beta:1",
	})
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	if err := installer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !fake.closed {
		t.Error("Close() should close the docker client")
	}
}

func TestTailTruncatesLongOutput(t *testing.T) {
	long := strings.Repeat("x", 600)
	got := tail([]byte(long), 512)
	if len(got) != 515 {
		t.Errorf("tail length = %d, want 515 (512 plus ellipsis)", len(got))
	}
	if !strings.HasPrefix(got, "...") {
		t.Errorf("truncated output should start with ellipsis: %q", got[:8])
	}

	if tail([]byte("  short  \n"), 512) != "short" {
		t.Error("short output should pass through trimmed")
	}
}
