package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llmdeploy/llmdeploy/internal/download"
	"github.com/llmdeploy/llmdeploy/internal/model"
)

func newModelsCmd(root *rootOptions) *cobra.Command {
	var modelDir string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models available in the local cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir := firstNonEmpty(modelDir, root.config.ModelDir)
			names, err := model.ListAvailable(dir)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("no models cached; fetch one with 'llmdeploy download'")
				return nil
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modelDir, "model-dir", "", "model cache directory (overrides config)")
	return cmd
}

func newDownloadCmd(root *rootOptions) *cobra.Command {
	var opts download.Options
	cmd := &cobra.Command{
		Use:   "download <repo-id>",
		Short: "Download a model snapshot into the local cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.RepoID = args[0]
			if opts.CacheDir == "" {
				opts.CacheDir = root.config.ModelDir
			}
			return download.New(root.logger).Fetch(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.Revision, "revision", "main", "model revision to download")
	cmd.Flags().StringVar(&opts.CacheDir, "cache-dir", "", "cache directory (overrides config modelDir)")
	return cmd
}
