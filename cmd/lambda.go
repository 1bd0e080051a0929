package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/giantswarm/eks-kubectl-handler/internal/handler"
	"github.com/giantswarm/eks-kubectl-handler/internal/kubeconfig"
)

// Handler names, used as subcommand names.
const (
	handlerGet   = "get"
	handlerPatch = "patch"
)

// authenticatorCommands is the exec plugin path in each handler's Lambda layers.
var authenticatorCommands = map[string]string{
	handlerGet:   kubeconfig.DefaultAuthenticatorCommand,
	handlerPatch: kubeconfig.LayerAuthenticatorCommand,
}

// handleFunc serves one custom-resource event.
type handleFunc func(ctx context.Context, event cfn.Event) (handler.Response, error)

// startLambda hands control to the Lambda runtime. It only returns in tests.
var startLambda = func(h interface{}, options ...lambda.Option) {
	lambda.StartWithOptions(h, options...)
}

// buildHandler returns the Handle method of the named handler.
func buildHandler(name string, cfg handler.Config) (handleFunc, error) {
	if cfg.Kubeconfig.AuthenticatorCommand == "" {
		cfg.Kubeconfig.AuthenticatorCommand = authenticatorCommands[name]
	}
	switch name {
	case handlerGet:
		h, err := handler.NewGetHandler(cfg)
		if err != nil {
			return nil, err
		}
		return h.Handle, nil
	case handlerPatch:
		h, err := handler.NewPatchHandler(cfg)
		if err != nil {
			return nil, err
		}
		return h.Handle, nil
	default:
		return nil, fmt.Errorf("unknown handler %q (want %s or %s)", name, handlerGet, handlerPatch)
	}
}

// newLambdaCmd creates the command serving the named handler in the Lambda runtime.
func newLambdaCmd(name, short, long string) *cobra.Command {
	var cfg HandlerConfig

	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadHandlerEnvVars(cmd, &cfg)

			ctx := cmd.Context()
			rt, err := newHandlerRuntime(ctx, cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			handle, err := buildHandler(name, rt.config)
			if err != nil {
				rt.Shutdown(context.Background())
				return err
			}

			rt.logger.Info("starting lambda handler",
				slog.String("handler", name),
				slog.String("version", rootCmd.Version))
			startLambda(handle,
				lambda.WithContext(ctx),
				lambda.WithEnableSIGTERM(func() {
					rt.Shutdown(context.Background())
				}))
			return nil
		},
	}

	addHandlerFlags(cmd.Flags(), &cfg)
	return cmd
}

func newGetCmd() *cobra.Command {
	return newLambdaCmd(handlerGet,
		"Serve the kubectl get custom resource handler",
		`Serve the kubectl get handler in the AWS Lambda runtime.

On Create and Update the handler polls
  kubectl get -n <ObjectNamespace> <ObjectType> <ObjectName> -o=jsonpath='{<JsonPath>}'
until it prints a value or TimeoutSeconds elapses, and returns the value
under Data.Value. Delete is a no-op.`)
}

func newPatchCmd() *cobra.Command {
	return newLambdaCmd(handlerPatch,
		"Serve the kubectl patch custom resource handler",
		`Serve the kubectl patch handler in the AWS Lambda runtime.

Create and Update run
  kubectl patch <ResourceName> -n <ResourceNamespace> -p <ApplyPatchJson> --type <PatchType>
and Delete runs the same command with RestorePatchJson. Calls that time out
are retried up to --max-attempts times.`)
}
