package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/enhance/internal/config"
	"github.com/vango-dev/enhance/internal/errors"
)

const starterPage = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>enhance</title>
</head>
<body>
  <main id="app">
    <h1>Hello, <span state-binding="name" format="title">world</span></h1>
    <label>Name <input name="name" state-binding="name" value="world"></label>
    <p>Characters: <span state-binding="name" format="js:value.length">5</span></p>
  </main>
</body>
</html>
`

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create an enhance.json and a starter page",
		Long: `Init writes a default enhance.json and, when the template directory
is empty, a starter page with a few state bindings.

Examples:
  enhance init
  enhance init ./site --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(dir, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing configuration")

	return cmd
}

func runInit(dir string, force bool) error {
	if config.Exists(dir) && !force {
		return errors.New("E120").
			WithDetail("configuration already exists in " + dir).
			WithSuggestion("Pass --force to overwrite it")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.New("E120").Wrap(err)
	}

	cfg := config.New()
	path := filepath.Join(dir, config.ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		return err
	}
	success("Created %s", path)

	page := filepath.Join(cfg.TemplatePath(), "index.html")
	if _, err := os.Stat(page); err == nil {
		info("Kept existing %s", page)
		return nil
	}
	if err := os.MkdirAll(cfg.TemplatePath(), 0755); err != nil {
		return errors.New("E120").Wrap(err)
	}
	if err := os.WriteFile(page, []byte(starterPage), 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}
	success("Created %s", page)
	info("Run 'enhance dev' to start the development server")
	return nil
}
