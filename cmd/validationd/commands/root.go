package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// BuildInfo 构建信息
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// options 全局参数
type options struct {
	configFile string
}

// NewRootCmd 创建根命令
func NewRootCmd(info BuildInfo) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "validationd",
		Short: "validationd - asynchronous validation service",
		Long: `validationd hosts an account form behind an asynchronous validation orchestrator.

Fields are validated concurrently off the request goroutine, the current errors per field
are served as JSON, and every change notification is streamed as server-sent events.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file path (yaml)")

	root.AddCommand(newServeCmd(opts), newCheckCmd(opts))
	return root
}
