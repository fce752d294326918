package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/persona-memory/internal/role"
)

func init() {
	rolesCmd := &cobra.Command{
		Use:   "roles",
		Short: "Manage advisor roles",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List roles",
		Run:   runRolesList,
	}
	list.Flags().Bool("ids-only", false, "Only output role ids")
	list.Flags().StringP("search", "s", "", "Filter by text in name, description or instructions")
	list.Flags().String("domain", "", "Filter by domains (comma-separated, any match)")
	list.Flags().String("tone", "", "Filter by tone")

	tones := &cobra.Command{
		Use:   "tones",
		Short: "List the tone profiles",
		Args:  cobra.NoArgs,
		Run:   runRolesTones,
	}

	domains := &cobra.Command{
		Use:   "domains",
		Short: "List the distinct domains across roles",
		Args:  cobra.NoArgs,
		Run:   runRolesDomains,
	}

	show := &cobra.Command{
		Use:   "show <role>",
		Short: "Show a role and its triggers",
		Args:  cobra.ExactArgs(1),
		Run:   runRolesShow,
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create or update custom roles from a YAML file",
		Long:  "Create custom roles from a YAML file of the form `roles: [...]`. Existing custom roles are updated.",
		Run:   runRolesCreate,
	}
	create.Flags().StringP("file", "f", "", "Roles file (required)")
	create.MarkFlagRequired("file")

	del := &cobra.Command{
		Use:   "delete <role>",
		Short: "Delete a custom role with its triggers and memories",
		Args:  cobra.ExactArgs(1),
		Run:   runRolesDelete,
	}

	rolesCmd.AddCommand(list, show, create, del, tones, domains)
	RootCmd.AddCommand(rolesCmd)
}

func runRolesList(cmd *cobra.Command, args []string) {
	idsOnly, _ := cmd.Flags().GetBool("ids-only")
	search, _ := cmd.Flags().GetString("search")
	domainStr, _ := cmd.Flags().GetString("domain")
	tone, _ := cmd.Flags().GetString("tone")

	a := mustApp(cmd.Context())
	defer a.Close()

	roles, err := a.svc.Roles.Find(cmd.Context(), role.Query{
		Text:    search,
		Domains: splitList(domainStr),
		Tone:    tone,
	})
	if err != nil {
		exitErr("list roles", err)
	}
	if idsOnly {
		for _, r := range roles {
			fmt.Println(r.ID)
		}
		return
	}
	printJSON(roles)
}

func runRolesShow(cmd *cobra.Command, args []string) {
	a := mustApp(cmd.Context())
	defer a.Close()

	r, err := a.svc.Roles.Get(cmd.Context(), args[0])
	if err != nil {
		exitErr("show role", err)
	}
	triggers, err := a.svc.Detector.Triggers(cmd.Context(), r.ID)
	if err != nil {
		exitErr("show role", err)
	}
	tone := role.Tones[r.Tone]
	printJSON(map[string]any{
		"role":     r,
		"tone":     tone,
		"triggers": triggers,
	})
}

func runRolesCreate(cmd *cobra.Command, args []string) {
	path, _ := cmd.Flags().GetString("file")

	defs, err := role.LoadFile(path)
	if err != nil {
		exitErr("load roles", err)
	}

	a := mustApp(cmd.Context())
	defer a.Close()

	if err := a.svc.LoadRoles(cmd.Context(), defs); err != nil {
		exitErr("create roles", err)
	}
	ids := make([]string, len(defs))
	for i, d := range defs {
		ids[i] = d.ID
	}
	printJSON(map[string]any{"ok": true, "roles": ids})
}

func runRolesDelete(cmd *cobra.Command, args []string) {
	a := mustApp(cmd.Context())
	defer a.Close()

	if err := a.svc.DeleteRole(cmd.Context(), args[0]); err != nil {
		exitErr("delete role", err)
	}
	fmt.Printf(`{"ok":true,"role_id":%q}`+"\n", args[0])
}

func runRolesTones(cmd *cobra.Command, args []string) {
	type tone struct {
		Name string `json:"name"`
		role.Tone
	}
	out := []tone{}
	for _, name := range role.ToneNames() {
		out = append(out, tone{Name: name, Tone: role.Tones[name]})
	}
	printJSON(out)
}

func runRolesDomains(cmd *cobra.Command, args []string) {
	a := mustApp(cmd.Context())
	defer a.Close()

	domains, err := a.svc.Roles.Domains(cmd.Context())
	if err != nil {
		exitErr("list domains", err)
	}
	printJSON(domains)
}
