package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmritiSatyan/garden/internal/helm"
)

var helmCmd = &cobra.Command{
	Use:   "helm [flags] -- <helm args...>",
	Short: "Run helm against the project's cluster",
	Long: "Run helm with the kube context, kubeconfig and namespace from the project's " +
		"helm block. Flags override the project settings.",
	Example: "  garden helm -- upgrade --install api ./charts/api",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runHelm,
}

var helmOpts struct {
	context    string
	kubeconfig string
	namespace  string
	timeout    time.Duration
	quiet      bool
}

func init() {
	f := helmCmd.Flags()
	f.StringVar(&helmOpts.context, "kube-context", "", "kube context (default: project helm.context)")
	f.StringVar(&helmOpts.kubeconfig, "kubeconfig", "", "kubeconfig path (default: project helm.kubeconfig)")
	f.StringVarP(&helmOpts.namespace, "namespace", "n", "", "namespace (default: project helm.namespace)")
	f.DurationVar(&helmOpts.timeout, "timeout", helm.DefaultTimeout, "stop helm after this long")
	f.BoolVarP(&helmOpts.quiet, "quiet", "q", false, "do not forward helm output as log lines")
	rootCmd.AddCommand(helmCmd)
}

func runHelm(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := helm.Options{Args: args}
	if p, err := loadProject(); err == nil {
		opts = helm.FromProject(p.Helm, args...)
		opts.Dir = p.Dir
	}

	opts.Context = firstNonEmpty(helmOpts.context, opts.Context)
	opts.Kubeconfig = firstNonEmpty(helmOpts.kubeconfig, opts.Kubeconfig)
	opts.Namespace = firstNonEmpty(helmOpts.namespace, opts.Namespace)
	opts.Timeout = helmOpts.timeout
	opts.EmitLogEvents = !helmOpts.quiet
	opts.Events = newBus()

	if opts.Context == "" {
		return fmt.Errorf("no kube context: set helm.context in garden.yml or pass --kube-context")
	}

	out, err := helm.Run(ctx, opts)
	if err != nil {
		return err
	}
	if helmOpts.quiet {
		fmt.Fprint(cmd.OutOrStdout(), out)
	}
	return nil
}
