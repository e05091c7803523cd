// Package cli implements the tinytasks command.
package cli

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-log/tfsdklog"
	"github.com/spf13/cobra"
)

const logEnv = "TINYTASKS_LOG"

var cfgFile string

// NewRootCommand builds the tinytasks command tree.
func NewRootCommand(version, commit string) *cobra.Command {
	root := &cobra.Command{
		Use:          "tinytasks",
		Short:        "Agency console backend for blog posts and clients",
		SilenceUsage: true,
		Version:      version,
	}
	root.SetVersionTemplate(fmt.Sprintf("tinytasks %s (commit: %s)\n", version, commit))
	root.PersistentFlags().StringVar(&cfgFile, "config", "tinytasks.yaml", "config file path")

	root.AddCommand(newServeCommand())
	root.AddCommand(newSlugCommand())
	return root
}

// withLogger installs the root logger that tflog writes through, at the
// level named by TINYTASKS_LOG.
func withLogger(ctx context.Context) context.Context {
	return tfsdklog.NewRootProviderLogger(ctx,
		tfsdklog.WithLogName("tinytasks"),
		tfsdklog.WithLevelFromEnv(logEnv),
	)
}
