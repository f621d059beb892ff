package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/xcmis/internal/adapters/driven/typedefs"
	"github.com/custodia-labs/xcmis/internal/core/domain"
)

var (
	typesJSON   bool
	typesOutput string
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "Manage object types",
}

var typesListCmd = &cobra.Command{
	Use:   "list [parent]",
	Short: "List types below a parent, or the base types",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTypesList,
}

var typesShowCmd = &cobra.Command{
	Use:   "show [type]",
	Short: "Show a type definition",
	Args:  cobra.ExactArgs(1),
	RunE:  runTypesShow,
}

var typesAddCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Register the types declared in a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTypesAdd,
}

var typesRemoveCmd = &cobra.Command{
	Use:   "rm [type]",
	Short: "Remove an unused custom type",
	Args:  cobra.ExactArgs(1),
	RunE:  runTypesRemove,
}

var typesExportCmd = &cobra.Command{
	Use:   "export [type...]",
	Short: "Write custom types as YAML",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTypesExport,
}

var typesWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reload the configured types file whenever it changes",
	Args:  cobra.NoArgs,
	RunE:  runTypesWatch,
}

func init() {
	typesShowCmd.Flags().BoolVar(&typesJSON, "json", false, "output as JSON")
	typesExportCmd.Flags().StringVarP(&typesOutput, "output", "o", "", "write to a file instead of stdout")

	typesCmd.AddCommand(typesListCmd, typesShowCmd, typesAddCmd, typesRemoveCmd, typesExportCmd, typesWatchCmd)
	rootCmd.AddCommand(typesCmd)
}

func runTypesList(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	var parent string
	if len(args) == 1 {
		parent = args[0]
	}
	defs, err := conn.GetTypeChildren(cmd.Context(), parent)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, d := range defs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.BaseType, d.DisplayName)
	}
	return w.Flush()
}

func runTypesShow(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	def, err := conn.GetTypeDefinition(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if typesJSON {
		return printJSON(cmd, def)
	}

	cmd.Printf("%s\n", def)
	if def.ParentID != "" {
		cmd.Printf("  Parent: %s\n", def.ParentID)
	}
	cmd.Printf("  Creatable: %t  Fileable: %t  Queryable: %t  Versionable: %t\n",
		def.Creatable, def.Fileable, def.Queryable, def.Versionable)
	cmd.Println()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	ids := make([]string, 0, len(def.PropertyDefinitions))
	for id := range def.PropertyDefinitions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		pd := def.PropertyDefinitions[id]
		inherited := ""
		if pd.Inherited {
			inherited = "inherited"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", id, pd.Type, pd.Cardinality, pd.Updatability, inherited)
	}
	return w.Flush()
}

func runTypesAdd(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	defs, err := typedefs.LoadFile(args[0])
	if err != nil {
		return err
	}
	for _, def := range defs {
		added, err := conn.AddType(ctx, def)
		if err != nil {
			return fmt.Errorf("failed to add type %s: %w", def.ID, err)
		}
		cmd.Println(added.ID)
	}
	return nil
}

func runTypesRemove(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	return conn.RemoveType(cmd.Context(), args[0])
}

func runTypesExport(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}

	defs := make([]*domain.TypeDefinition, 0, len(args))
	for _, id := range args {
		def, err := conn.GetTypeDefinition(cmd.Context(), id)
		if err != nil {
			return err
		}
		if def.IsBase() {
			return fmt.Errorf("%s is a base type", id)
		}
		defs = append(defs, def)
	}

	if typesOutput == "" {
		return typedefs.Encode(cmd.OutOrStdout(), defs)
	}
	f, err := os.Create(typesOutput)
	if err != nil {
		return err
	}
	if err := typedefs.Encode(f, defs); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func runTypesWatch(cmd *cobra.Command, _ []string) error {
	if services == nil || services.Types == nil {
		return errors.New("no types file configured; set " + domain.SettingTypesFile)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := services.Types.Reload(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Loaded %d types; watching for changes (Ctrl+C to stop)\n", n)
	return services.Types.Run(ctx)
}
