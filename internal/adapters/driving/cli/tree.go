package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

var (
	lsJSON    bool
	lsParents bool

	treeDepth       int
	treeFoldersOnly bool

	rmtreeUnfile      string
	rmtreeContinue    bool
	rmtreeAllVersions bool
	rmtreeYes         bool

	checkedOutJSON bool
)

var lsCmd = &cobra.Command{
	Use:   "ls [folder]",
	Short: "List the children of a folder",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLs,
}

var treeCmd = &cobra.Command{
	Use:   "tree [folder]",
	Short: "Print the descendants of a folder",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTree,
}

var rmtreeCmd = &cobra.Command{
	Use:   "rmtree [folder]",
	Short: "Delete a folder and its descendants",
	Long: `Deletes a folder tree. --unfile selects what happens to objects in the tree:

  delete             delete every object (default)
  unfile             delete folders, unfile everything else
  deletesinglefiled  delete objects filed only in the tree, unfile the rest

With --continue the objects that could not be deleted are listed and the
rest of the tree is removed; otherwise nothing is deleted on failure.`,
	Args: cobra.ExactArgs(1),
	RunE: runRmtree,
}

var checkedOutCmd = &cobra.Command{
	Use:   "checkedout [folder]",
	Short: "List private working copies",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheckedOut,
}

func init() {
	lsCmd.Flags().BoolVar(&lsJSON, "json", false, "output as JSON")
	lsCmd.Flags().BoolVar(&lsParents, "parents", false, "list the folders the object is filed in instead")

	treeCmd.Flags().IntVarP(&treeDepth, "depth", "d", -1, "levels to descend, -1 for all")
	treeCmd.Flags().BoolVar(&treeFoldersOnly, "folders", false, "only show folders")

	rmtreeCmd.Flags().StringVar(&rmtreeUnfile, "unfile", string(domain.UnfileDelete), "delete, unfile or deletesinglefiled")
	rmtreeCmd.Flags().BoolVar(&rmtreeContinue, "continue", false, "continue past objects that cannot be deleted")
	rmtreeCmd.Flags().BoolVar(&rmtreeAllVersions, "all-versions", true, "delete all versions of documents")
	rmtreeCmd.Flags().BoolVarP(&rmtreeYes, "yes", "y", false, "do not ask for confirmation")

	checkedOutCmd.Flags().BoolVar(&checkedOutJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(lsCmd, treeCmd, rmtreeCmd, checkedOutCmd)
}

func folderArg(args []string) string {
	if len(args) == 0 {
		return "/"
	}
	return args[0]
}

func runLs(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	id, err := resolveID(ctx, conn, folderArg(args))
	if err != nil {
		return err
	}
	var objs []*domain.CmisObject
	if lsParents {
		objs, err = conn.GetObjectParents(ctx, id)
	} else {
		objs, err = conn.GetChildren(ctx, id)
	}
	if err != nil {
		return err
	}
	if lsJSON {
		return printJSON(cmd, objs)
	}
	printObjects(cmd, objs)
	return nil
}

func runTree(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	root, err := resolve(ctx, conn, folderArg(args))
	if err != nil {
		return err
	}
	var trees []*domain.ObjectTree
	if treeFoldersOnly {
		trees, err = conn.GetFolderTree(ctx, root.ID, treeDepth)
	} else {
		trees, err = conn.GetDescendants(ctx, root.ID, treeDepth)
	}
	if err != nil {
		return err
	}

	name := root.Path()
	if name == "" {
		name = root.Name()
	}
	cmd.Println(name)
	printTree(cmd, trees, "")
	return nil
}

func printTree(cmd *cobra.Command, trees []*domain.ObjectTree, indent string) {
	for i, t := range trees {
		branch, next := "├── ", "│   "
		if i == len(trees)-1 {
			branch, next = "└── ", "    "
		}
		name := t.Object.Name()
		if t.Object.BaseType == domain.BaseTypeFolder {
			name += "/"
		}
		cmd.Printf("%s%s%s\n", indent, branch, name)
		printTree(cmd, t.Children, indent+next)
	}
}

func runRmtree(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	unfile, err := domain.ParseUnfileObject(rmtreeUnfile)
	if err != nil {
		return err
	}
	folder, err := resolve(ctx, conn, args[0])
	if err != nil {
		return err
	}
	if !rmtreeYes {
		ok, err := confirm(cmd, fmt.Sprintf("Delete %s and everything below it?", folder.Path()))
		if err != nil || !ok {
			return err
		}
	}

	failed, err := conn.DeleteTree(ctx, folder.ID, rmtreeAllVersions, unfile, rmtreeContinue)
	if err != nil {
		return fmt.Errorf("failed to delete tree: %w", err)
	}
	if len(failed) > 0 {
		cmd.Printf("Could not delete %d objects:\n  %s\n", len(failed), strings.Join(failed, "\n  "))
	}
	return nil
}

func runCheckedOut(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var folderID string
	if len(args) == 1 {
		if folderID, err = resolveID(ctx, conn, args[0]); err != nil {
			return err
		}
	}
	pwcs, err := conn.GetCheckedOutDocs(ctx, folderID)
	if err != nil {
		return err
	}
	if checkedOutJSON {
		return printJSON(cmd, pwcs)
	}
	printObjects(cmd, pwcs)
	return nil
}
