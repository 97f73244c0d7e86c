package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/epicmotionSD/openconductor-sub010/internal/agent"
	"github.com/epicmotionSD/openconductor-sub010/internal/cli"
)

// credentialEnvVar supplies the hosting credential without a flag, which
// keeps it out of shell history and process listings.
const credentialEnvVar = "OPENCONDUCTOR_CREDENTIAL"

var deployFlags cli.CommandFlags

var (
	deployCredential     string
	deployIdempotencyKey string
)

// deployCmd represents the deploy command
var deployCmd = &cobra.Command{
	Use:   "deploy <slug>",
	Short: "Deploy a plugin to the hosting platform",
	Long: `Deploy a plugin as a hosted instance on the hosting platform, on
behalf of the account the credential belongs to.

The hosting credential is resolved from --credential, then the
OPENCONDUCTOR_CREDENTIAL environment variable, then an interactive
prompt that does not echo. The gateway never stores the credential;
only a one-way fingerprint is kept for audit correlation. Prefer the
environment variable over the flag so the credential stays out of
shell history and process listings.

Deploys are idempotent per (slug, credential): repeating a deploy
returns the prior receipt instead of charging and building again. Pass
--idempotency-key to scope retries explicitly.

Examples:
  OPENCONDUCTOR_CREDENTIAL=... openconductor deploy github-mcp
  openconductor deploy github-mcp --output json

Note: The gateway must be running (use 'openconductor serve') before
using this command.`,
	Args: cobra.ExactArgs(1),
	RunE: runDeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)

	cli.RegisterCommonFlags(deployCmd, &deployFlags)
	deployCmd.Flags().StringVar(&deployCredential, "credential", "", "Hosting credential (prefer env: OPENCONDUCTOR_CREDENTIAL)")
	deployCmd.Flags().StringVar(&deployIdempotencyKey, "idempotency-key", "", "Explicit idempotency key for retry scoping")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	credential, err := resolveCredential()
	if err != nil {
		return err
	}

	toolArgs := map[string]interface{}{
		"slug":       args[0],
		"credential": credential,
	}
	if deployIdempotencyKey != "" {
		toolArgs["idempotency_key"] = deployIdempotencyKey
	}

	options, err := deployFlags.ToExecutorOptions()
	if err != nil {
		return err
	}

	executor, err := cli.NewToolExecutor(options)
	if err != nil {
		return err
	}
	defer executor.Close()

	ctx := cmd.Context()
	if err := executor.Connect(ctx); err != nil {
		return err
	}

	return executor.ExecuteOperation(ctx, agent.OpDeploy, toolArgs)
}

// resolveCredential finds the hosting credential: flag, environment,
// then a non-echoing prompt. The value is passed to the gateway in the
// tool arguments and never written anywhere else.
func resolveCredential() (string, error) {
	if deployCredential != "" {
		return deployCredential, nil
	}

	if credential := os.Getenv(credentialEnvVar); credential != "" {
		return credential, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("a hosting credential is required: set %s or pass --credential", credentialEnvVar)
	}

	// The prompt goes to stderr so redirected stdout stays clean.
	fmt.Fprint(os.Stderr, "Hosting credential: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}

	credential := strings.TrimSpace(string(raw))
	if credential == "" {
		return "", fmt.Errorf("a hosting credential is required")
	}

	return credential, nil
}
