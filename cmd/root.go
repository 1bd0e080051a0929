package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd only groups the handler subcommands; it has no action of its own.
var rootCmd = &cobra.Command{
	Use:   "eks-kubectl-handler",
	Short: "kubectl custom resource handlers for EKS",
	Long: `eks-kubectl-handler serves CloudFormation custom resources that read from
and patch Kubernetes objects in an EKS cluster by running kubectl.

Each handler runs as its own Lambda function:
  - get: waits for a jsonpath value on a Kubernetes object
  - patch: applies a patch on Create/Update and restores it on Delete

kubectl authenticates through an exec credential plugin
(aws-iam-authenticator) which assumes the role given in the event.`,
	// Handler failures are not usage errors.
	SilenceUsage: true,
}

// SetVersion records the build version reported by the version command,
// logs and instrumentation.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "eks-kubectl-handler version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newPatchCmd())
	rootCmd.AddCommand(newInvokeCmd())
}
