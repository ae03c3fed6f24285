package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/vango-dev/enhance/internal/config"
)

func versionCmd() *cobra.Command {
	var (
		short bool
		dir   string
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and project information",
		Long: `Print the CLI version and the project settings the dev server would use:
the config file that was found, the template driver and the listen address.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, version)
				return nil
			}
			if dir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				dir = wd
			}
			cfg, err := config.LoadOrDefault(dir)
			if err != nil {
				return err
			}
			writeVersion(out, cfg)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version number")
	cmd.Flags().StringVarP(&dir, "dir", "C", "", "Project directory (default: current directory)")

	return cmd
}

func writeVersion(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "enhance %s (%s, built %s, %s %s/%s)\n",
		version, commit, date, runtime.Version(), runtime.GOOS, runtime.GOARCH)

	configPath := cfg.Path()
	if configPath == "" {
		configPath = "none, using defaults"
	}
	fmt.Fprintf(w, "  config:    %s\n", configPath)

	switch cfg.Templates.Driver {
	case config.DriverS3:
		s3 := cfg.Templates.S3
		fmt.Fprintf(w, "  templates: s3://%s/%s\n", s3.Bucket, s3.Prefix)
	default:
		fmt.Fprintf(w, "  templates: %s\n", cfg.TemplatePath())
	}
	fmt.Fprintf(w, "  dev:       http://%s (hot reload %t)\n", cfg.DevAddress(), cfg.Dev.HotReload)
}
