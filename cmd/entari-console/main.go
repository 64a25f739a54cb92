// Command entari-console is a terminal management console for a
// multi-instance Entari bot runtime. It talks to the WebUI backend over
// HTTP: operator login, instance lifecycle, plugin management and global
// configuration.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/arcletproject/entari-console/internal/api"
	"github.com/arcletproject/entari-console/internal/notify"
	"github.com/arcletproject/entari-console/internal/runtimecfg"
	"github.com/arcletproject/entari-console/internal/session"
	"github.com/arcletproject/entari-console/internal/validate"
)

const commandTimeout = 15 * time.Second

var rootCmd *cobra.Command

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd = &cobra.Command{
		Use:           "entari-console",
		Short:         "Manage Entari bot instances, plugins and configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("server", "http://127.0.0.1:5140", "Console origin serving frontend/runtime.json")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")

	rootCmd.AddCommand(
		newLoginCommand(),
		newLogoutCommand(),
		newInstancesCommand(),
		newPluginsCommand(),
		newConfigCommand(),
		newLogsCommand(),
		newVersionCommand(),
	)
}

// console wires the boot sequence together: open the database, restore
// the session store, resolve the runtime address (awaited), and only
// then construct the request pipeline.
type console struct {
	db       *session.DBStore
	store    *session.Store
	bus      *notify.Bus
	resolver *runtimecfg.Resolver
	api      *api.Client

	sub  *notify.Subscription
	done chan struct{}
}

func openConsole(cmd *cobra.Command) (*console, error) {
	origin, _ := cmd.Flags().GetString("server")
	if err := validate.HTTPURL(origin); err != nil {
		return nil, fmt.Errorf("invalid --server: %w", err)
	}

	db, err := session.OpenDB(session.Options{})
	if err != nil {
		return nil, fmt.Errorf("open console database: %w", err)
	}

	store, err := session.New(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}

	bus := notify.New()
	sub := bus.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for n := range sub.C() {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", strings.ToUpper(string(n.Severity)), n.Message)
		}
	}()

	resolver := runtimecfg.New(origin, bus, runtimecfg.WithCache(db))

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()
	resolver.Resolve(ctx)

	return &console{
		db:       db,
		store:    store,
		bus:      bus,
		resolver: resolver,
		api:      api.New(resolver, store, bus),
		sub:      sub,
		done:     done,
	}, nil
}

func (c *console) Close() {
	c.sub.Close()
	<-c.done
	c.bus.Shutdown()
	c.db.Close()
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, commandTimeout)
}

// OutputFormatter handles output in JSON or human-readable format.
type OutputFormatter struct {
	jsonMode bool
}

func newOutputFormatter(cmd *cobra.Command) *OutputFormatter {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &OutputFormatter{jsonMode: jsonMode}
}

// Print outputs data in the appropriate format. In human mode strings
// print as-is and other values fall back to indented JSON.
func (f *OutputFormatter) Print(data any) error {
	if s, ok := data.(string); ok && !f.jsonMode {
		fmt.Println(s)
		return nil
	}
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(jsonBytes))
	return nil
}

// JSON reports whether machine-readable output was requested.
func (f *OutputFormatter) JSON() bool {
	return f.jsonMode
}
