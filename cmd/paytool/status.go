package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fatflowers/paygate/internal/app/service/gateway"
	"github.com/fatflowers/paygate/pkg/config"
)

func newFawryStatusCommand() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "fawry-status <fawry_ref>",
		Short: "Look an EasyPay invoice up by its Fawry reference",
		Long:  `Calls the EasyPay invoice status check with the vendor code from the service configuration.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			ep, err := gateway.NewEasyPayFromConfig(cfg)
			if err != nil {
				return err
			}
			return runFawryStatus(cmd, ep, args[0], timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	return cmd
}

type fawryStatusChecker interface {
	StatusCheck(ctx context.Context, fawryRef string) (json.RawMessage, error)
}

func runFawryStatus(cmd *cobra.Command, ep fawryStatusChecker, ref string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	raw, err := ep.StatusCheck(ctx, ref)
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out.String())
	return nil
}
