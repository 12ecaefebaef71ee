package cmd

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/jcdickinson/doclink/internal/config"
	"github.com/jcdickinson/doclink/internal/fetch"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View daemon log file",
	Example: `  doclink logs -n 100
  doclink logs -f --project https://docs.example.com/mylib`,
	Run: runLogs,
}

var (
	logsFollow  bool
	logsLines   int
	logsProject string
)

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "number of lines to show")
	logsCmd.Flags().StringVar(&logsProject, "project", "", "only show records about this documentation root")
}

// projectMatcher reports whether a daemon log record concerns root. The
// daemon's text handler writes the key as project=<root>, quoted when the
// root needs it.
func projectMatcher(root string) func(string) bool {
	if root == "" {
		return func(string) bool { return true }
	}
	root = fetch.ProjectRoot(root)
	bare := "project=" + root
	quoted := "project=" + strconv.Quote(root)
	return func(line string) bool {
		for _, field := range strings.Fields(line) {
			if field == bare || field == quoted {
				return true
			}
		}
		return strings.Contains(line, quoted+" ") || strings.HasSuffix(line, quoted)
	}
}

// lastMatching returns up to n of the final lines of r accepted by match.
func lastMatching(r io.Reader, n int, match func(string) bool) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	var lines []string
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line = strings.TrimSuffix(line, "\n"); line != "" && match(line) {
			lines = append(lines, line)
			if len(lines) > n {
				lines = lines[1:]
			}
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func runLogs(cmd *cobra.Command, args []string) {
	logPath := config.LogPath()
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Println("no log file found (daemon may not have run yet)")
		return
	}

	if logsProject == "" {
		tailLog(logPath, logsLines, nil)
		return
	}

	match := projectMatcher(logsProject)
	f, err := os.Open(logPath)
	if err != nil {
		log.Fatalf("opening log file: %v", err)
	}
	lines, err := lastMatching(f, logsLines, match)
	f.Close()
	if err != nil {
		log.Fatalf("reading log file: %v", err)
	}
	for _, line := range lines {
		fmt.Println(line)
	}

	if logsFollow {
		tailLog(logPath, 0, match)
	}
}

// tailLog runs tail on the log file. With a matcher, output is filtered
// line by line.
func tailLog(logPath string, lines int, match func(string) bool) {
	tailArgs := []string{"-n", strconv.Itoa(lines)}
	if logsFollow {
		tailArgs = append(tailArgs, "-f")
	}
	tailArgs = append(tailArgs, logPath)

	tailCmd := exec.Command("tail", tailArgs...)
	tailCmd.Stderr = os.Stderr
	if match == nil {
		tailCmd.Stdout = os.Stdout
		if err := tailCmd.Run(); err != nil {
			log.Fatalf("tail failed: %v", err)
		}
		return
	}

	out, err := tailCmd.StdoutPipe()
	if err != nil {
		log.Fatalf("tail failed: %v", err)
	}
	if err := tailCmd.Start(); err != nil {
		log.Fatalf("tail failed: %v", err)
	}
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		if match(scanner.Text()) {
			fmt.Println(scanner.Text())
		}
	}
	if err := tailCmd.Wait(); err != nil {
		log.Fatalf("tail failed: %v", err)
	}
}
