package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llmdeploy/llmdeploy/internal/session"
	"github.com/llmdeploy/llmdeploy/internal/shell"
	"github.com/llmdeploy/llmdeploy/internal/slurm"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active deployment recorded by a running session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec, err := session.LoadHandoff(session.DefaultHandoffPath())
			if err != nil {
				return err
			}
			fmt.Printf("Job:   %s\n", rec.JobID)
			fmt.Printf("Node:  %s\n", rec.Node)
			fmt.Printf("Local: http://localhost:%s\n", rec.Port)

			client := slurm.NewClient(shell.New(root.logger), root.logger)
			raw, state, err := client.QueryStatus(cmd.Context(), rec.JobID)
			if err != nil {
				root.logger.Warnf("could not query scheduler: %v", err)
				return nil
			}
			fmt.Printf("State: %s (%s)\n", state, raw)
			return nil
		},
	}
}
