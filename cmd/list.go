package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jcdickinson/doclink/internal/filter"
	"github.com/jcdickinson/doclink/internal/rpc"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [project]",
	Short: "List documentation pages matching the given criteria",
	Long: `List the pages of a project's catalog. Without criteria every page is
listed. Criteria are regular expression fragments matched case-insensitively
against page names like "Parent.Member(args) Method (Namespace)".

Types: Api, Class, Struct, Interface, Enumeration, Constructor, Delegate,
or any other page kind (Method, Property, ...).`,
	Example: `  doclink list https://docs.example.com/mylib --type Class
  doclink list --type Method --parent Foo
  doclink list --type Constructor --namespace 'My\.Lib'
  doclink list --name 'Get.*' --json`,
	Args: cobra.MaximumNArgs(1),
	Run:  runList,
}

var (
	listType      string
	listNamespace string
	listParent    string
	listName      string
	listJSON      bool
	listPattern   bool
)

func init() {
	listCmd.Flags().StringVar(&listType, "type", "", "page kind")
	listCmd.Flags().StringVar(&listNamespace, "namespace", "", "namespace regex")
	listCmd.Flags().StringVar(&listParent, "parent", "", "declaring type regex")
	listCmd.Flags().StringVar(&listName, "name", "", "member name regex")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	listCmd.Flags().BoolVar(&listPattern, "pattern", false, "print the compiled pattern")
}

// criteriaFromFlags only sets the criteria whose flags were given, so an
// explicit empty value still counts as supplied.
func criteriaFromFlags(cmd *cobra.Command) filter.Criteria {
	var c filter.Criteria
	flags := cmd.Flags()
	if flags.Changed("type") {
		c.Type = filter.Text(listType)
	}
	if flags.Changed("namespace") {
		c.Namespace = filter.Text(listNamespace)
	}
	if flags.Changed("parent") {
		c.Parent = filter.Text(listParent)
	}
	if flags.Changed("name") {
		c.Name = filter.Text(listName)
	}
	return c
}

func runList(cmd *cobra.Command, args []string) {
	req := rpc.ListRequest{Criteria: criteriaFromFlags(cmd)}
	if len(args) == 1 {
		req.Project = args[0]
	}

	client, err := connectDaemon()
	if err != nil {
		log.Fatalf("failed to connect to daemon: %v", err)
	}

	resp, err := client.List(context.Background(), req)
	if err != nil {
		log.Fatalf("list failed: %v", err)
	}

	if listJSON {
		out, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(out))
		return
	}

	if listPattern && resp.Pattern != "" {
		fmt.Printf("pattern: %s\n", resp.Pattern)
	}

	if len(resp.Entries) == 0 {
		fmt.Println("no matching pages")
		return
	}

	for _, e := range resp.Entries {
		if e.Malformed {
			fmt.Printf("  (malformed catalog line)  %s\n", e.DisplayName)
			continue
		}
		fmt.Printf("  %s  %s\n", e.URL, e.Name)
	}
}

var linkCmd = &cobra.Command{
	Use:   "link <page>",
	Short: "Print a link to a documentation page",
	Example: `  doclink link T_MyLib_Foo.htm
  doclink link M_MyLib_Foo_Bar.htm --text Bar --format markdown
  doclink link T_MyLib_Foo.htm --project https://docs.example.com/mylib`,
	Args: cobra.ExactArgs(1),
	Run:  runLink,
}

var (
	linkProject string
	linkText    string
	linkFormat  string
)

func init() {
	linkCmd.Flags().StringVar(&linkProject, "project", "", "documentation root (default: current project)")
	linkCmd.Flags().StringVar(&linkText, "text", "", "link text (default: page name)")
	linkCmd.Flags().StringVar(&linkFormat, "format", "html", "output format: html or markdown")
}

func runLink(cmd *cobra.Command, args []string) {
	client, err := connectDaemon()
	if err != nil {
		log.Fatalf("failed to connect to daemon: %v", err)
	}

	resp, err := client.Link(context.Background(), rpc.LinkRequest{
		Project: linkProject,
		Page:    args[0],
		Text:    linkText,
		Format:  linkFormat,
	})
	if err != nil {
		log.Fatalf("link failed: %v", err)
	}

	fmt.Println(resp.Output)
}
