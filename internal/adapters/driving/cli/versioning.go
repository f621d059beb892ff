package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

var (
	checkinMajor   bool
	checkinComment string
	checkinFile    string
	checkinMime    string
	checkinProps   []string

	versionsJSON bool
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout [document]",
	Short: "Check out a document",
	Long:  `Creates a private working copy of the document and prints its id.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckout,
}

var checkinCmd = &cobra.Command{
	Use:   "checkin [pwc]",
	Short: "Check in a private working copy",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckin,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [document]",
	Short: "Cancel a checkout",
	Long:  `Discards the private working copy. Either the PWC or any version of the series may be given.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCancel,
}

var versionsCmd = &cobra.Command{
	Use:   "versions [document]",
	Short: "List all versions of a document",
	Long:  `Lists the versions of the series, newest first, with the private working copy on top.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runVersions,
}

func init() {
	checkinCmd.Flags().BoolVar(&checkinMajor, "major", true, "create a major version")
	checkinCmd.Flags().StringVarP(&checkinComment, "comment", "m", "", "checkin comment")
	checkinCmd.Flags().StringVarP(&checkinFile, "file", "f", "", "new content from a local file")
	checkinCmd.Flags().StringVar(&checkinMime, "mime", "", "content media type (default detected)")
	checkinCmd.Flags().StringArrayVar(&checkinProps, "prop", nil, "property as key=value, repeatable")

	versionsCmd.Flags().BoolVar(&versionsJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(checkoutCmd, checkinCmd, cancelCmd, versionsCmd)
}

func runCheckout(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	id, err := resolveID(ctx, conn, args[0])
	if err != nil {
		return err
	}
	pwc, err := conn.Checkout(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check out: %w", err)
	}
	cmd.Println(pwc.ID)
	return nil
}

func runCheckin(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	pwc, err := resolve(ctx, conn, args[0])
	if err != nil {
		return err
	}
	props, err := parseProperties(ctx, conn, pwc.TypeID, checkinProps)
	if err != nil {
		return err
	}
	in := domain.CheckinInput{
		Major:      checkinMajor,
		Comment:    checkinComment,
		Properties: props,
	}
	if checkinFile != "" {
		if in.Content, err = readContent(cmd, checkinFile, checkinMime); err != nil {
			return err
		}
	}

	doc, err := conn.Checkin(ctx, pwc.ID, in)
	if err != nil {
		return fmt.Errorf("failed to check in: %w", err)
	}
	cmd.Printf("%s %s\n", doc.ID, doc.VersionLabel())
	return nil
}

func runCancel(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	id, err := resolveID(ctx, conn, args[0])
	if err != nil {
		return err
	}
	if err := conn.CancelCheckout(ctx, id); err != nil {
		return fmt.Errorf("failed to cancel checkout: %w", err)
	}
	return nil
}

func runVersions(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	doc, err := resolve(ctx, conn, args[0])
	if err != nil {
		return err
	}
	series := doc.VersionSeriesID()
	if series == "" {
		return fmt.Errorf("%s is not versionable", args[0])
	}
	versions, err := conn.GetAllVersions(ctx, series)
	if err != nil {
		return err
	}
	if versionsJSON {
		return printJSON(cmd, versions)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for i := len(versions) - 1; i >= 0; i-- {
		v := versions[i]
		label := v.VersionLabel()
		if v.IsLatestVersion() {
			label += " (latest)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", label, v.ID,
			v.LastModified().Format("2006-01-02 15:04:05"),
			v.Properties.Get(domain.PropCheckinComment).String())
	}
	return w.Flush()
}
