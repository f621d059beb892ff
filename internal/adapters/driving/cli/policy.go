package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

var (
	policyText   string
	policyType   string
	policyFolder string

	relateType  string
	relateName  string
	relationDir string
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage policies",
}

var policyCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a policy",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyCreate,
}

var policyApplyCmd = &cobra.Command{
	Use:   "apply [policy] [object]",
	Short: "Apply a policy to an object",
	Args:  cobra.ExactArgs(2),
	RunE:  runPolicyApply,
}

var policyRemoveCmd = &cobra.Command{
	Use:   "remove [policy] [object]",
	Short: "Remove a policy from an object",
	Args:  cobra.ExactArgs(2),
	RunE:  runPolicyRemove,
}

var policyListCmd = &cobra.Command{
	Use:   "list [object]",
	Short: "List the policies applied to an object",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyList,
}

var relateCmd = &cobra.Command{
	Use:   "relate [source] [target]",
	Short: "Create a relationship between two objects",
	Args:  cobra.ExactArgs(2),
	RunE:  runRelate,
}

var relationsCmd = &cobra.Command{
	Use:   "relations [object]",
	Short: "List the relationships of an object",
	Args:  cobra.ExactArgs(1),
	RunE:  runRelations,
}

var aclCmd = &cobra.Command{
	Use:   "acl [object]",
	Short: "Show the access control list of an object",
	Args:  cobra.ExactArgs(1),
	RunE:  runACL,
}

var aclGrantCmd = &cobra.Command{
	Use:   "grant [object] [principal] [permission...]",
	Short: "Grant permissions to a principal",
	Args:  cobra.MinimumNArgs(3),
	RunE:  func(cmd *cobra.Command, args []string) error { return changeACL(cmd, args, true) },
}

var aclRevokeCmd = &cobra.Command{
	Use:   "revoke [object] [principal] [permission...]",
	Short: "Revoke permissions from a principal",
	Args:  cobra.MinimumNArgs(3),
	RunE:  func(cmd *cobra.Command, args []string) error { return changeACL(cmd, args, false) },
}

func init() {
	policyCreateCmd.Flags().StringVar(&policyText, "text", "", "policy text")
	policyCreateCmd.Flags().StringVar(&policyType, "type", string(domain.BaseTypePolicy), "policy type")
	policyCreateCmd.Flags().StringVar(&policyFolder, "folder", "", "folder to file the policy in")

	relateCmd.Flags().StringVar(&relateType, "type", string(domain.BaseTypeRelationship), "relationship type")
	relateCmd.Flags().StringVar(&relateName, "name", "", "relationship name (default source-target)")
	relationsCmd.Flags().StringVar(&relationDir, "direction", string(domain.RelationshipSource), "source, target or either")

	policyCmd.AddCommand(policyCreateCmd, policyApplyCmd, policyRemoveCmd, policyListCmd)
	aclCmd.AddCommand(aclGrantCmd, aclRevokeCmd)
	rootCmd.AddCommand(policyCmd, relateCmd, relationsCmd, aclCmd)
}

func runPolicyCreate(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	folderID, err := resolveID(ctx, conn, policyFolder)
	if err != nil {
		return err
	}
	props := domain.Properties{}
	if policyText != "" {
		props[domain.PropPolicyText] = domain.NewStringProperty(domain.PropPolicyText, policyText)
	}
	policy, err := conn.CreatePolicy(ctx, objectInput(folderID, policyType, args[0], props))
	if err != nil {
		return fmt.Errorf("failed to create policy: %w", err)
	}
	cmd.Println(policy.ID)
	return nil
}

func policyArgs(cmd *cobra.Command, args []string) (policyID, objectID string, err error) {
	conn, err := connection()
	if err != nil {
		return "", "", err
	}
	if policyID, err = resolveID(cmd.Context(), conn, args[0]); err != nil {
		return "", "", err
	}
	if objectID, err = resolveID(cmd.Context(), conn, args[1]); err != nil {
		return "", "", err
	}
	return policyID, objectID, nil
}

func runPolicyApply(cmd *cobra.Command, args []string) error {
	policyID, objectID, err := policyArgs(cmd, args)
	if err != nil {
		return err
	}
	return services.Connection.ApplyPolicy(cmd.Context(), policyID, objectID)
}

func runPolicyRemove(cmd *cobra.Command, args []string) error {
	policyID, objectID, err := policyArgs(cmd, args)
	if err != nil {
		return err
	}
	return services.Connection.RemovePolicy(cmd.Context(), policyID, objectID)
}

func runPolicyList(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	id, err := resolveID(ctx, conn, args[0])
	if err != nil {
		return err
	}
	policies, err := conn.GetAppliedPolicies(ctx, id)
	if err != nil {
		return err
	}
	printObjects(cmd, policies)
	return nil
}

func runRelate(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	source, err := resolve(ctx, conn, args[0])
	if err != nil {
		return err
	}
	target, err := resolve(ctx, conn, args[1])
	if err != nil {
		return err
	}
	name := relateName
	if name == "" {
		name = source.Name() + "-" + target.Name()
	}
	props := domain.Properties{
		domain.PropSourceID: domain.NewIDProperty(domain.PropSourceID, source.ID),
		domain.PropTargetID: domain.NewIDProperty(domain.PropTargetID, target.ID),
	}
	rel, err := conn.CreateRelationship(ctx, objectInput("", relateType, name, props))
	if err != nil {
		return fmt.Errorf("failed to create relationship: %w", err)
	}
	cmd.Println(rel.ID)
	return nil
}

func runRelations(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	id, err := resolveID(ctx, conn, args[0])
	if err != nil {
		return err
	}
	rels, err := conn.GetObjectRelationships(ctx, id, relationDir, "")
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, r := range rels {
		fmt.Fprintf(w, "%s\t%s\t%s -> %s\n", r.ID, r.TypeID,
			r.Properties.Get(domain.PropSourceID).String(),
			r.Properties.Get(domain.PropTargetID).String())
	}
	return w.Flush()
}

func runACL(cmd *cobra.Command, args []string) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	id, err := resolveID(ctx, conn, args[0])
	if err != nil {
		return err
	}
	acl, err := conn.GetACL(ctx, id)
	if err != nil {
		return err
	}
	printACL(cmd, acl)
	return nil
}

func changeACL(cmd *cobra.Command, args []string, grant bool) error {
	conn, err := connection()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	id, err := resolveID(ctx, conn, args[0])
	if err != nil {
		return err
	}
	change := domain.ACL{{Principal: args[1], Permissions: args[2:]}}
	var acl domain.ACL
	if grant {
		acl, err = conn.ApplyACL(ctx, id, change, nil)
	} else {
		acl, err = conn.ApplyACL(ctx, id, nil, change)
	}
	if err != nil {
		return fmt.Errorf("failed to update ACL: %w", err)
	}
	printACL(cmd, acl)
	return nil
}

func printACL(cmd *cobra.Command, acl domain.ACL) {
	if len(acl) == 0 {
		cmd.Println("No access control entries.")
		return
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, e := range acl {
		fmt.Fprintf(w, "%s\t%v\n", e.Principal, e.Permissions)
	}
	_ = w.Flush()
}
