package cli

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

var (
	mkdirParents bool
	mkdirType    string

	putName       string
	putType       string
	putMime       string
	putVersioning string
	putProps      []string

	getJSON bool

	catOutput    string
	catRendition string

	setChangeToken string

	rmAllVersions bool

	mvFrom string
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir [path]",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runMkdir,
}

var putCmd = &cobra.Command{
	Use:   "put [file] [folder]",
	Short: "Store a local file as a document",
	Long: `Creates a document from a local file ("-" reads stdin). Without a folder
the document is created unfiled.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPut,
}

var getCmd = &cobra.Command{
	Use:   "get [object]",
	Short: "Show the properties of an object",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var catCmd = &cobra.Command{
	Use:   "cat [document]",
	Short: "Print the content stream of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runCat,
}

var setCmd = &cobra.Command{
	Use:   "set [object] [key=value...]",
	Short: "Update properties of an object",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSet,
}

var rmCmd = &cobra.Command{
	Use:   "rm [object]",
	Short: "Delete an object",
	Args:  cobra.ExactArgs(1),
	RunE:  runRm,
}

var mvCmd = &cobra.Command{
	Use:   "mv [object] [folder]",
	Short: "Move an object to another folder",
	Long: `Moves an object into a folder. A multi-filed object must name the folder
it is moved out of with --from.`,
	Args: cobra.ExactArgs(2),
	RunE: runMv,
}

var linkCmd = &cobra.Command{
	Use:   "link [object] [folder]",
	Short: "File an object in an additional folder",
	Args:  cobra.ExactArgs(2),
	RunE:  runLink,
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink [object] [folder]",
	Short: "Remove an object from a folder",
	Long:  `Removes an object from one folder, or from every folder when none is given.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runUnlink,
}

func init() {
	mkdirCmd.Flags().BoolVarP(&mkdirParents, "parents", "p", false, "create missing parent folders")
	mkdirCmd.Flags().StringVar(&mkdirType, "type", string(domain.BaseTypeFolder), "folder type")

	putCmd.Flags().StringVar(&putName, "name", "", "document name (default file name)")
	putCmd.Flags().StringVar(&putType, "type", string(domain.BaseTypeDocument), "document type")
	putCmd.Flags().StringVar(&putMime, "mime", "", "content media type (default detected)")
	putCmd.Flags().StringVar(&putVersioning, "versioning", string(domain.VersioningStateMajor),
		"versioning state: none, major, minor or checkedout")
	putCmd.Flags().StringArrayVar(&putProps, "prop", nil, "property as key=value, repeatable")

	getCmd.Flags().BoolVar(&getJSON, "json", false, "output as JSON")

	catCmd.Flags().StringVarP(&catOutput, "output", "o", "", "write to a file instead of stdout")
	catCmd.Flags().StringVar(&catRendition, "rendition", "", "rendition stream id")

	setCmd.Flags().StringVar(&setChangeToken, "change-token", "", "fail if the object changed since this token")

	rmCmd.Flags().BoolVar(&rmAllVersions, "all-versions", false, "delete every version of a document")

	mvCmd.Flags().StringVar(&mvFrom, "from", "", "folder to move the object out of")

	rootCmd.AddCommand(mkdirCmd, putCmd, getCmd, catCmd, setCmd, rmCmd, mvCmd, linkCmd, unlinkCmd)
}

func runMkdir(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	target := path.Clean("/" + args[0])
	if target == "/" {
		return errors.New("the root folder already exists")
	}
	parentPath, name := path.Dir(target), path.Base(target)

	var parentID string
	if mkdirParents {
		parentID, err = ensureFolders(cmd, parentPath)
	} else {
		parentID, err = resolveID(ctx, conn, parentPath)
	}
	if err != nil {
		return err
	}

	folder, err := conn.CreateFolder(ctx, objectInput(parentID, mkdirType, name, domain.Properties{}))
	if errors.Is(err, domain.ErrNameConstraint) && mkdirParents {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}
	cmd.Println(folder.ID)
	return nil
}

// ensureFolders creates every missing folder of p and returns the id of
// the last one.
func ensureFolders(cmd *cobra.Command, p string) (string, error) {
	conn, err := connection()
	if err != nil {
		return "", err
	}
	ctx := cmd.Context()

	info, err := conn.RepositoryInfo(ctx)
	if err != nil {
		return "", err
	}
	id := info.RootFolderID
	current := ""
	for _, name := range strings.Split(strings.Trim(p, "/"), "/") {
		if name == "" {
			continue
		}
		current += "/" + name
		obj, err := conn.GetObjectByPath(ctx, current)
		if errors.Is(err, domain.ErrNotFound) {
			obj, err = conn.CreateFolder(ctx, objectInput(id, string(domain.BaseTypeFolder), name, domain.Properties{}))
		}
		if err != nil {
			return "", err
		}
		id = obj.ID
	}
	return id, nil
}

func runPut(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	content, err := readContent(cmd, args[0], putMime)
	if err != nil {
		return err
	}
	name := putName
	if name == "" {
		name = content.FileName
	}

	var parentID string
	if len(args) == 2 {
		if parentID, err = resolveID(ctx, conn, args[1]); err != nil {
			return err
		}
	}

	props, err := parseProperties(ctx, conn, putType, putProps)
	if err != nil {
		return err
	}
	in := objectInput(parentID, putType, name, props)
	in.Content = content
	in.VersioningState = domain.VersioningState(putVersioning)

	doc, err := conn.CreateDocument(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	cmd.Println(doc.ID)
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}

	obj, err := resolve(cmd.Context(), conn, args[0])
	if err != nil {
		return err
	}
	if getJSON {
		return printJSON(cmd, obj)
	}
	printObject(cmd, obj)
	return nil
}

func runCat(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	id, err := resolveID(ctx, conn, args[0])
	if err != nil {
		return err
	}
	var content *domain.ContentStream
	if catRendition != "" {
		content, err = conn.GetRenditionStream(ctx, id, catRendition)
	} else {
		content, err = conn.GetContentStream(ctx, id, "")
	}
	if err != nil {
		return err
	}

	if catOutput != "" {
		return os.WriteFile(catOutput, content.Data, 0600)
	}
	_, err = cmd.OutOrStdout().Write(content.Data)
	return err
}

func runSet(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	obj, err := resolve(ctx, conn, args[0])
	if err != nil {
		return err
	}
	props, err := parseProperties(ctx, conn, obj.TypeID, args[1:])
	if err != nil {
		return err
	}
	updated, err := conn.UpdateProperties(ctx, obj.ID, setChangeToken, props)
	if err != nil {
		return fmt.Errorf("failed to update properties: %w", err)
	}
	cmd.Println(updated.ID)
	return nil
}

func runRm(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	id, err := resolveID(ctx, conn, args[0])
	if err != nil {
		return err
	}
	if err := conn.DeleteObject(ctx, id, rmAllVersions); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func runMv(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	id, err := resolveID(ctx, conn, args[0])
	if err != nil {
		return err
	}
	targetID, err := resolveID(ctx, conn, args[1])
	if err != nil {
		return err
	}
	sourceID, err := resolveID(ctx, conn, mvFrom)
	if err != nil {
		return err
	}
	if sourceID == "" {
		parents, err := conn.GetObjectParents(ctx, id)
		if err != nil {
			return err
		}
		if len(parents) != 1 {
			return fmt.Errorf("object is filed in %d folders; use --from", len(parents))
		}
		sourceID = parents[0].ID
	}

	moved, err := conn.MoveObject(ctx, id, targetID, sourceID)
	if err != nil {
		return fmt.Errorf("failed to move object: %w", err)
	}
	if p := moved.Path(); p != "" {
		cmd.Println(p)
		return nil
	}
	cmd.Println(moved.ID)
	return nil
}

func runLink(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	id, err := resolveID(ctx, conn, args[0])
	if err != nil {
		return err
	}
	folderID, err := resolveID(ctx, conn, args[1])
	if err != nil {
		return err
	}
	return conn.AddObjectToFolder(ctx, id, folderID)
}

func runUnlink(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	id, err := resolveID(ctx, conn, args[0])
	if err != nil {
		return err
	}
	var folderID string
	if len(args) == 2 {
		if folderID, err = resolveID(ctx, conn, args[1]); err != nil {
			return err
		}
	}
	return conn.RemoveObjectFromFolder(ctx, id, folderID)
}
