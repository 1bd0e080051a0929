package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/giantswarm/eks-kubectl-handler/internal/handler"
	"github.com/giantswarm/eks-kubectl-handler/internal/kubeconfig"
	"github.com/giantswarm/eks-kubectl-handler/internal/kubectl"
)

// defaultSearchPath holds the directories of the kubectl and awscli Lambda layers.
const defaultSearchPath = "/opt/kubectl:/opt/awscli"

// Flag names.
const (
	flagKubectlBinary        = "kubectl-binary"
	flagSearchPath           = "search-path"
	flagKubeconfigDir        = "kubeconfig-dir"
	flagAuthenticatorCommand = "authenticator-command"
	flagExecAPIVersion       = "exec-api-version"
	flagMaxAttempts          = "max-attempts"
	flagPollInterval         = "poll-interval"
	flagPollErrorPolicy      = "poll-error-policy"
	flagUnquoteMode          = "unquote-mode"
	flagLogLevel             = "log-level"
)

// HandlerConfig holds the settings shared by every handler command.
type HandlerConfig struct {
	// kubectl settings
	KubectlBinary string
	SearchPath    string
	MaxAttempts   int

	// Kubeconfig settings
	KubeconfigDir        string
	AuthenticatorCommand string
	ExecAPIVersion       string

	// Poll settings
	PollInterval    time.Duration
	PollErrorPolicy string
	UnquoteMode     string

	LogLevel string
}

// addHandlerFlags registers the HandlerConfig flags on fs.
func addHandlerFlags(fs *pflag.FlagSet, cfg *HandlerConfig) {
	fs.StringVar(&cfg.KubectlBinary, flagKubectlBinary, kubectl.DefaultBinary, "kubectl executable name or path (env: KUBECTL_BINARY)")
	fs.StringVar(&cfg.SearchPath, flagSearchPath, defaultSearchPath, "Directories searched for kubectl and prepended to its PATH (env: KUBECTL_SEARCH_PATH)")
	fs.IntVar(&cfg.MaxAttempts, flagMaxAttempts, kubectl.DefaultMaxAttempts, "Attempts per kubectl call when it times out (env: KUBECTL_MAX_ATTEMPTS)")
	fs.StringVar(&cfg.KubeconfigDir, flagKubeconfigDir, handler.DefaultKubeconfigDir, "Directory the kubeconfig is written to (env: KUBECONFIG_DIR or TEST_OUTDIR)")
	fs.StringVar(&cfg.AuthenticatorCommand, flagAuthenticatorCommand, "", "Exec credential plugin used by kubectl; empty selects the handler's layer default (env: AUTHENTICATOR_COMMAND)")
	fs.StringVar(&cfg.ExecAPIVersion, flagExecAPIVersion, kubeconfig.DefaultExecAPIVersion, "API version of the exec credential plugin (env: EXEC_API_VERSION)")
	fs.DurationVar(&cfg.PollInterval, flagPollInterval, kubectl.DefaultPollInterval, "Pause between attempts while waiting for a value (env: POLL_INTERVAL)")
	fs.StringVar(&cfg.PollErrorPolicy, flagPollErrorPolicy, string(kubectl.PolicyLenient), "Failures tolerated while polling: lenient or strict (env: POLL_ERROR_POLICY)")
	fs.StringVar(&cfg.UnquoteMode, flagUnquoteMode, string(kubectl.UnquoteLiteral), "Quote removal on jsonpath output: literal or strict (env: UNQUOTE_MODE)")
	fs.StringVar(&cfg.LogLevel, flagLogLevel, "info", "Log level: debug, info, warn, error (env: LOG_LEVEL)")
}

// loadHandlerEnvVars fills cfg from the environment for every flag the user
// did not set explicitly.
func loadHandlerEnvVars(cmd *cobra.Command, cfg *HandlerConfig) {
	flags := cmd.Flags()

	loadString := func(flag string, target *string, envNames ...string) {
		if flags.Changed(flag) {
			return
		}
		for _, name := range envNames {
			if v := os.Getenv(name); v != "" {
				*target = v
				return
			}
		}
	}

	loadString(flagKubectlBinary, &cfg.KubectlBinary, "KUBECTL_BINARY")
	loadString(flagSearchPath, &cfg.SearchPath, "KUBECTL_SEARCH_PATH")
	loadString(flagKubeconfigDir, &cfg.KubeconfigDir, "KUBECONFIG_DIR", "TEST_OUTDIR")
	loadString(flagAuthenticatorCommand, &cfg.AuthenticatorCommand, "AUTHENTICATOR_COMMAND")
	loadString(flagExecAPIVersion, &cfg.ExecAPIVersion, "EXEC_API_VERSION")
	loadString(flagPollErrorPolicy, &cfg.PollErrorPolicy, "POLL_ERROR_POLICY")
	loadString(flagUnquoteMode, &cfg.UnquoteMode, "UNQUOTE_MODE")
	loadString(flagLogLevel, &cfg.LogLevel, "LOG_LEVEL")

	if !flags.Changed(flagMaxAttempts) {
		if n, ok := parseIntEnv(os.Getenv("KUBECTL_MAX_ATTEMPTS"), "KUBECTL_MAX_ATTEMPTS"); ok {
			cfg.MaxAttempts = n
		}
	}
	if !flags.Changed(flagPollInterval) {
		if d, ok := parseDurationEnv(os.Getenv("POLL_INTERVAL"), "POLL_INTERVAL"); ok {
			cfg.PollInterval = d
		}
	}
}

// Validate checks the configuration and returns the first problem found.
func (c HandlerConfig) Validate() error {
	if strings.TrimSpace(c.KubectlBinary) == "" {
		return fmt.Errorf("kubectl binary must not be empty")
	}
	if c.KubeconfigDir == "" {
		return fmt.Errorf("kubeconfig directory must not be empty")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if _, err := kubectl.ParseErrorPolicy(c.PollErrorPolicy); err != nil {
		return err
	}
	if _, err := kubectl.ParseUnquoteMode(c.UnquoteMode); err != nil {
		return err
	}
	return nil
}

// searchPathList splits SearchPath into directories, dropping empty entries.
func (c HandlerConfig) searchPathList() []string {
	var dirs []string
	for _, dir := range filepath.SplitList(c.SearchPath) {
		if dir = strings.TrimSpace(dir); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// parseDurationEnv parses a duration from an environment variable value.
// Returns the parsed duration and true if successful, or zero and false if parsing fails.
// Logs a warning if the value is present but invalid.
func parseDurationEnv(value, envName string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration in environment", slog.String("env", envName), slog.String("value", value), slog.String("error", err.Error()))
		return 0, false
	}
	return d, true
}

// parseIntEnv parses an integer from an environment variable value.
// Returns the parsed int and true if successful, or zero and false if parsing fails.
// Logs a warning if the value is present but invalid.
func parseIntEnv(value, envName string) (int, bool) {
	if value == "" {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in environment", slog.String("env", envName), slog.String("value", value), slog.String("error", err.Error()))
		return 0, false
	}
	return n, true
}
