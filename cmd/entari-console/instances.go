package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arcletproject/entari-console/internal/api"
	"github.com/arcletproject/entari-console/internal/instance"
)

func newInstancesCommand() *cobra.Command {
	instancesCmd := &cobra.Command{
		Use:   "instances",
		Short: "Manage bot instances",
	}

	listCmd := &cobra.Command{
		Use:           "list",
		Short:         "List instances",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runInstancesList,
	}
	listCmd.Flags().Bool("refresh", false, "Fetch the list from the backend instead of the stored session")

	createCmd := &cobra.Command{
		Use:           "create",
		Short:         "Create a new instance",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runInstancesCreate,
	}
	createCmd.Flags().String("name", "", "Instance name")
	createCmd.Flags().String("config", "", "Optional YAML file seeding the instance config")

	startCmd := &cobra.Command{
		Use:           "start [id]",
		Short:         "Start an instance",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runInstancesStart,
	}
	stopCmd := &cobra.Command{
		Use:           "stop [id]",
		Short:         "Stop an instance",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runInstancesStop,
	}
	deleteCmd := &cobra.Command{
		Use:           "delete [id]",
		Short:         "Delete an instance",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runInstancesDelete,
	}

	setConfigCmd := &cobra.Command{
		Use:           "set-config [id]",
		Short:         "Replace an instance's configuration",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runInstancesSetConfig,
	}
	setConfigCmd.Flags().String("file", "", "YAML file with the new config mapping")

	instancesCmd.AddCommand(listCmd, createCmd, startCmd, stopCmd, deleteCmd, setConfigCmd)
	return instancesCmd
}

func parseInstanceID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid instance id %q", arg)
	}
	return id, nil
}

func runInstancesList(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	c, err := openConsole(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	refresh, _ := cmd.Flags().GetBool("refresh")
	if refresh {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		list, err := c.api.ListInstances(ctx)
		if err != nil {
			return err
		}
		c.store.SetInstances(list)
	}

	list := c.store.Instances()
	if out.JSON() {
		return out.Print(list)
	}
	if len(list) == 0 {
		return out.Print("No instances. Run 'entari-console instances list --refresh' or log in first.")
	}
	printInstancesTable(list)
	return nil
}

func printInstancesTable(list []instance.Instance) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tHOST\tPORT\tSTATE\tPLUGINS")
	for _, ins := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%d\n",
			ins.ID, ins.Name, ins.Type, ins.Host, ins.Port, ins.State, len(ins.Plugins))
	}
	w.Flush()
}

func runInstancesCreate(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		return fmt.Errorf("--name is required")
	}

	var config map[string]any
	if file, _ := cmd.Flags().GetString("config"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return fmt.Errorf("parse config file: %w", err)
		}
	}

	c, err := openConsole(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := c.api.CreateInstance(ctx, api.CreateInstanceRequest{Name: name, Config: config}); err != nil {
		return err
	}

	// The create endpoint returns no body; refresh so the stored list
	// picks up the server-assigned id.
	list, err := c.api.ListInstances(ctx)
	if err != nil {
		return err
	}
	c.store.SetInstances(list)

	return out.Print(fmt.Sprintf("Instance %q created.", name))
}

func runInstancesStart(cmd *cobra.Command, args []string) error {
	return setInstanceState(cmd, args[0], instance.StateRunning)
}

func runInstancesStop(cmd *cobra.Command, args []string) error {
	return setInstanceState(cmd, args[0], instance.StateStopped)
}

func setInstanceState(cmd *cobra.Command, arg, state string) error {
	out := newOutputFormatter(cmd)

	id, err := parseInstanceID(arg)
	if err != nil {
		return err
	}

	c, err := openConsole(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if state == instance.StateRunning {
		err = c.api.StartInstance(ctx, id)
	} else {
		err = c.api.StopInstance(ctx, id)
	}
	if err != nil {
		return err
	}

	merged, err := c.store.AddInstance(instance.Partial{ID: &id, State: &state})
	if err != nil {
		// Unknown id locally: the stored list predates this instance, so
		// fall back to a full refresh.
		var missing instance.MissingFieldsError
		if !errors.As(err, &missing) {
			return err
		}
		list, lerr := c.api.ListInstances(ctx)
		if lerr != nil {
			return lerr
		}
		c.store.SetInstances(list)
		return out.Print(fmt.Sprintf("Instance %d is now %s.", id, state))
	}
	return out.Print(fmt.Sprintf("Instance %d is now %s.", merged.ID, merged.State))
}

func runInstancesDelete(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	id, err := parseInstanceID(args[0])
	if err != nil {
		return err
	}

	c, err := openConsole(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := c.api.DeleteInstance(ctx, id); err != nil {
		return err
	}
	c.store.RemoveInstance(id)

	return out.Print(fmt.Sprintf("Instance %d deleted.", id))
}

func runInstancesSetConfig(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	id, err := parseInstanceID(args[0])
	if err != nil {
		return err
	}
	file, _ := cmd.Flags().GetString("file")
	if file == "" {
		return fmt.Errorf("--file is required")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var config map[string]any
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	c, err := openConsole(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := c.api.UpdateInstanceConfig(ctx, id, config); err != nil {
		return err
	}

	// Merge into the stored list when the instance is known locally; a
	// stale local list just means the next refresh picks it up.
	cfg := config
	if _, err := c.store.AddInstance(instance.Partial{ID: &id, Config: &cfg}); err != nil {
		var missing instance.MissingFieldsError
		if !errors.As(err, &missing) {
			return err
		}
	}
	return out.Print(fmt.Sprintf("Instance %d config updated.", id))
}
