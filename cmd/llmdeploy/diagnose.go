package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	cliconfig "github.com/llmdeploy/llmdeploy/internal/cli/config"
	"github.com/llmdeploy/llmdeploy/internal/diag"
	"github.com/llmdeploy/llmdeploy/internal/session"
)

func newDiagnoseCmd(root *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Bundle logs and session state for a support request",
		RunE: func(*cobra.Command, []string) error {
			if out == "" {
				out = fmt.Sprintf("llmdeploy-diag-%s.tar.zst", time.Now().Format("20060102-150405"))
			}
			if err := diag.Bundle(out, cliconfig.DefaultLogDir(), session.DefaultHandoffPath()); err != nil {
				return err
			}
			root.logger.Infof("wrote diagnostic bundle %s", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "bundle output path (default llmdeploy-diag-<timestamp>.tar.zst)")
	return cmd
}
