package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/arcletproject/entari-console/internal/api"
	"github.com/arcletproject/entari-console/internal/validate"
)

func newPluginsCommand() *cobra.Command {
	pluginsCmd := &cobra.Command{
		Use:   "plugins",
		Short: "Manage plugins",
	}

	listCmd := &cobra.Command{
		Use:           "list",
		Short:         "List all plugins",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runPluginsList,
	}

	searchCmd := &cobra.Command{
		Use:           "search [keyword]",
		Short:         "Search the plugin index",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runPluginsSearch,
	}

	toggleCmd := &cobra.Command{
		Use:           "toggle [name]",
		Short:         "Enable or disable a plugin",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runPluginsToggle,
	}
	toggleCmd.Flags().Bool("enable", false, "Enable the plugin")
	toggleCmd.Flags().Bool("disable", false, "Disable the plugin")

	pluginsCmd.AddCommand(listCmd, searchCmd, toggleCmd)

	nameOps := []struct {
		use, short, past string
		op               func(*api.Client, context.Context, string) error
	}{
		{"create", "Scaffold a new local plugin", "created", (*api.Client).CreatePlugin},
		{"install", "Install a plugin", "installed", (*api.Client).InstallPlugin},
		{"uninstall", "Uninstall a plugin", "uninstalled", (*api.Client).UninstallPlugin},
		{"load", "Load a plugin", "loaded", (*api.Client).LoadPlugin},
		{"unload", "Unload a plugin", "unloaded", (*api.Client).UnloadPlugin},
		{"reload", "Reload a plugin", "reloaded", (*api.Client).ReloadPlugin},
	}
	for _, entry := range nameOps {
		entry := entry
		pluginsCmd.AddCommand(&cobra.Command{
			Use:           entry.use + " [name]",
			Short:         entry.short,
			Args:          cobra.ExactArgs(1),
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPluginAction(cmd, args[0], entry.past, entry.op)
			},
		})
	}

	return pluginsCmd
}

func runPluginsList(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	c, err := openConsole(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	list, err := c.api.ListPlugins(ctx)
	if err != nil {
		return err
	}
	if out.JSON() {
		return out.Print(list)
	}
	if len(list) == 0 {
		return out.Print("No plugins found.")
	}
	printPluginsTable(list)
	return nil
}

func runPluginsSearch(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	c, err := openConsole(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	list, err := c.api.SearchPlugins(ctx, args[0])
	if err != nil {
		return err
	}
	if out.JSON() {
		return out.Print(list)
	}
	if len(list) == 0 {
		return out.Print("No plugins matched.")
	}
	printPluginsTable(list)
	return nil
}

func printPluginsTable(list []api.Plugin) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tVERSION\tINSTALLED\tENABLED\tDESC")
	for _, p := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%v\t%s\n",
			p.ID, p.Title, p.Version, p.Installed, p.Status, p.Desc)
	}
	w.Flush()
}

func runPluginsToggle(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	enable, _ := cmd.Flags().GetBool("enable")
	disable, _ := cmd.Flags().GetBool("disable")
	if enable == disable {
		return fmt.Errorf("exactly one of --enable or --disable is required")
	}

	c, err := openConsole(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	list, err := c.api.ListPlugins(ctx)
	if err != nil {
		return err
	}
	for _, p := range list {
		if p.ID != args[0] {
			continue
		}
		p.Status = enable
		if err := c.api.SavePlugin(ctx, p); err != nil {
			return err
		}
		verb := "disabled"
		if enable {
			verb = "enabled"
		}
		return out.Print(fmt.Sprintf("Plugin %q %s.", p.ID, verb))
	}
	return fmt.Errorf("plugin %q not found", args[0])
}

func runPluginAction(cmd *cobra.Command, name, past string, op func(*api.Client, context.Context, string) error) error {
	out := newOutputFormatter(cmd)

	if !validate.Ident(name) {
		return fmt.Errorf("invalid plugin name %q", name)
	}

	c, err := openConsole(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := op(c.api, ctx, name); err != nil {
		return err
	}
	return out.Print(fmt.Sprintf("Plugin %q %s.", name, past))
}
