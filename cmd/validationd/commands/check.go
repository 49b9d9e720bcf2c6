package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"katydid-async-validation/pkg/config"
	"katydid-async-validation/pkg/validation/core"
)

// errInvalid 账户未通过验证
var errInvalid = errors.New("account is invalid")

// checkReport check 子命令的输出
type checkReport struct {
	Valid  bool                             `json:"valid"`
	Fault  string                           `json:"fault,omitempty"`
	Errors map[core.FieldKey][]core.Failure `json:"errors"`
}

// newCheckCmd check 子命令：对 JSON 账户文件执行一次整体验证
func newCheckCmd(opts *options) *cobra.Command {
	var (
		file    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate an account JSON document once and print its errors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read account: %w", err)
			}
			var account Account
			if err := json.Unmarshal(data, &account); err != nil {
				return fmt.Errorf("decode account: %w", err)
			}

			cfg.Metrics.Enabled = false
			a, err := newApp(cmd.Context(), cfg, zap.NewNop(), &account)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.orch.ValidateAll(cmd.Context(), nil).AwaitWithTimeout(timeout)
			if err != nil {
				return err
			}

			report := checkReport{
				Valid:  !a.orch.HasErrors(),
				Errors: a.orch.Store().Snapshot(),
			}
			if result.Fault != nil {
				report.Fault = result.Fault.Error()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}

			if !report.Valid {
				return errInvalid
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "account JSON file")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "maximum time to wait for validation")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
