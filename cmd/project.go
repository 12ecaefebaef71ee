package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jcdickinson/doclink/internal/config"
	"github.com/jcdickinson/doclink/internal/daemon"
	"github.com/jcdickinson/doclink/internal/rpc"
	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load <project>",
	Short: "Load a documentation project's page catalog",
	Long: `Fetch index.txt from the project's documentation root and make it the
current project. Later commands with no --project use it.`,
	Example: `  doclink load https://docs.example.com/mylib
  doclink load https://docs.example.com/mylib/`,
	Args: cobra.ExactArgs(1),
	Run:  runLoad,
}

func runLoad(cmd *cobra.Command, args []string) {
	client, err := connectDaemon()
	if err != nil {
		log.Fatalf("failed to connect to daemon: %v", err)
	}

	resp, err := client.Load(context.Background(), rpc.LoadRequest{Project: args[0]})
	if err != nil {
		log.Fatalf("failed to load project: %v", err)
	}

	suffix := ""
	if resp.Project.Cached {
		suffix = " (from cache)"
	}
	fmt.Printf("  %s: %d pages%s\n", resp.Project.Root, resp.Project.Entries, suffix)
}

var forgetCmd = &cobra.Command{
	Use:   "forget <project>",
	Short: "Remove a project from the registry and the catalog cache",
	Args:  cobra.ExactArgs(1),
	Run:   runForget,
}

func runForget(cmd *cobra.Command, args []string) {
	client, err := connectDaemon()
	if err != nil {
		log.Fatalf("failed to connect to daemon: %v", err)
	}

	resp, err := client.Forget(context.Background(), args[0])
	if err != nil {
		log.Fatalf("failed to forget project: %v", err)
	}
	if !resp.Registered {
		fmt.Printf("  %s: not registered, cached copy removed\n", resp.Root)
		return
	}
	fmt.Printf("  %s: forgotten\n", resp.Root)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current project and known projects",
	Run:   runStatus,
}

var statusJSON bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) {
	client, err := connectDaemon()
	if err != nil {
		log.Fatalf("failed to connect to daemon: %v", err)
	}

	resp, err := client.Status(context.Background())
	if err != nil {
		log.Fatalf("status failed: %v", err)
	}

	if statusJSON {
		out, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(out))
		return
	}

	if resp.Last != nil {
		fmt.Printf("current: %s (%d pages, loaded %s)\n", resp.Last.Root, resp.Last.Entries, resp.Last.LoadedAt)
	} else {
		fmt.Println("no project loaded")
	}

	for _, p := range resp.Projects {
		state := "remote"
		if p.Cached {
			state = "cached"
		}
		fmt.Printf("  %s [%d pages, %s, last used %s]\n", p.Root, p.Entries, state, p.LastUsedAt)
	}
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background daemon",
	Run:   runStop,
}

func runStop(cmd *cobra.Command, args []string) {
	client := daemon.NewClient(config.SocketPath())
	if !client.IsAvailable() {
		fmt.Println("daemon is not running")
		return
	}

	// The daemon exits right after responding, so a reset connection is fine.
	client.Shutdown(context.Background())
	fmt.Println("daemon stopped")
}
