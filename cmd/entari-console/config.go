package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arcletproject/entari-console/internal/api"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the global runtime configuration",
	}

	getCmd := &cobra.Command{
		Use:           "get",
		Short:         "Print the current configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runConfigGet,
	}

	saveCmd := &cobra.Command{
		Use:           "save",
		Short:         "Replace the configuration from a YAML file",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runConfigSave,
	}
	saveCmd.Flags().String("file", "", "YAML file with the new configuration")

	configCmd.AddCommand(getCmd, saveCmd)
	return configCmd
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	c, err := openConsole(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	cfg, err := c.api.GetConfig(ctx)
	if err != nil {
		return err
	}
	if out.JSON() {
		return out.Print(cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	fmt.Print(string(data))
	return nil
}

func runConfigSave(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	file, _ := cmd.Flags().GetString("file")
	if file == "" {
		return fmt.Errorf("--file is required")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var cfg api.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	c, err := openConsole(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	result, err := c.api.SaveConfig(ctx, cfg)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("backend rejected the configuration")
	}
	return out.Print("Configuration saved.")
}
