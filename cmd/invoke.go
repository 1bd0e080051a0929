package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/spf13/cobra"

	"github.com/giantswarm/eks-kubectl-handler/internal/kubeconfig"
)

// newInvokeCmd creates the command running a handler once against an event file.
func newInvokeCmd() *cobra.Command {
	var (
		cfg             HandlerConfig
		eventFile       string
		printKubeconfig bool
	)

	cmd := &cobra.Command{
		Use:   "invoke <get|patch>",
		Short: "Run a handler once against a custom resource event",
		Long: `Run the get or patch handler once outside the Lambda runtime.

The event is read from --event (use - for stdin) in the CloudFormation
custom resource request format, and the handler response is printed as
JSON on stdout. Point --kubeconfig-dir somewhere writable when /tmp is not.`,
		Example: `  eks-kubectl-handler invoke get --event create.json
  eks-kubectl-handler invoke patch --event delete.json --kubeconfig-dir ./out --print-kubeconfig`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{handlerGet, handlerPatch},
		RunE: func(cmd *cobra.Command, args []string) error {
			loadHandlerEnvVars(cmd, &cfg)

			event, err := readEvent(cmd.InOrStdin(), eventFile)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			rt, err := newHandlerRuntime(ctx, cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Shutdown(context.Background())

			handle, err := buildHandler(args[0], rt.config)
			if err != nil {
				return err
			}

			resp, handleErr := handle(ctx, event)

			if printKubeconfig {
				if err := writeKubeconfig(cmd.ErrOrStderr(), kubeconfig.Path(cfg.KubeconfigDir)); err != nil {
					return err
				}
			}
			if handleErr != nil {
				return handleErr
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	addHandlerFlags(cmd.Flags(), &cfg)
	cmd.Flags().StringVar(&eventFile, "event", "", "Path to the JSON event, or - for stdin")
	cmd.Flags().BoolVar(&printKubeconfig, "print-kubeconfig", false, "Print the generated kubeconfig to stderr")
	_ = cmd.MarkFlagRequired("event")

	return cmd
}

// readEvent decodes a custom resource event from path, or from stdin when path is "-".
func readEvent(stdin io.Reader, path string) (cfn.Event, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return cfn.Event{}, fmt.Errorf("reading event: %w", err)
	}

	var event cfn.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return cfn.Event{}, fmt.Errorf("decoding event: %w", err)
	}
	return event, nil
}

// writeKubeconfig prints the kubeconfig at path, if the handler wrote one.
func writeKubeconfig(w io.Writer, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		_, _ = fmt.Fprintf(w, "no kubeconfig written to %s\n", path)
		return nil
	}
	cfg, err := kubeconfig.Load(path)
	if err != nil {
		return err
	}
	data, err := kubeconfig.Serialize(cfg)
	if err != nil {
		return fmt.Errorf("serializing kubeconfig: %w", err)
	}
	_, err = w.Write(data)
	return err
}
