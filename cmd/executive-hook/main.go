// executive-hook is the machine-to-machine client agent hooks invoke around
// a session: register on start, autopilot-check before tool use, resume on
// user input, complete on stop, delete on session end.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ncr5012/executive/internal/api"
	"github.com/ncr5012/executive/internal/paths"
	"github.com/ncr5012/executive/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "register":
		register(os.Args[2:])
	case "complete":
		transition(os.Args[2:], "complete", "/api/complete")
	case "resume":
		transition(os.Args[2:], "resume", "/api/resume")
	case "autopilot":
		autopilot(os.Args[2:])
	case "delete":
		remove(os.Args[2:])
	case "list":
		list()
	case "version":
		fmt.Printf("executive-hook %s (%s)\n", version.Version, version.Commit)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	_, _ = fmt.Fprintln(os.Stderr, "usage:")
	_, _ = fmt.Fprintln(os.Stderr, "  executive-hook register --session <id> [--cwd <dir>] [--machine <name>]")
	_, _ = fmt.Fprintln(os.Stderr, "  executive-hook complete --task <id>")
	_, _ = fmt.Fprintln(os.Stderr, "  executive-hook resume --task <id>")
	_, _ = fmt.Fprintln(os.Stderr, "  executive-hook autopilot --task <id>")
	_, _ = fmt.Fprintln(os.Stderr, "  executive-hook delete --task <id>")
	_, _ = fmt.Fprintln(os.Stderr, "  executive-hook list")
	_, _ = fmt.Fprintln(os.Stderr, "  executive-hook version")
}

func register(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	var session, cwd, machine string
	fs.StringVar(&session, "session", "", "session id")
	fs.StringVar(&cwd, "cwd", "", "working directory (defaults to current)")
	fs.StringVar(&machine, "machine", "", "machine identity (defaults to the host identity file)")
	_ = fs.Parse(args)

	if session == "" {
		fs.Usage()
		os.Exit(2)
	}
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	if machine == "" {
		machine = machineIdentity()
	}

	body := do(http.MethodPost, "/api/register", api.RegisterRequest{SessionID: session, Machine: machine, Cwd: cwd})
	fmt.Println(string(body))
}

func transition(args []string, name, path string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	var task string
	fs.StringVar(&task, "task", "", "task id")
	_ = fs.Parse(args)

	if task == "" {
		fs.Usage()
		os.Exit(2)
	}
	body := do(http.MethodPost, path, api.TaskRef{TaskID: task})
	fmt.Println(string(body))
}

func autopilot(args []string) {
	fs := flag.NewFlagSet("autopilot", flag.ExitOnError)
	var task string
	fs.StringVar(&task, "task", "", "task id")
	_ = fs.Parse(args)

	body := do(http.MethodPost, "/api/autopilot", api.AutopilotRequest{TaskID: task, Check: "1"})

	var resp api.AutopilotResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		fatal(err)
	}
	fmt.Println(resp.Allow)
	if !resp.Allow {
		os.Exit(1)
	}
}

func remove(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	var task string
	fs.StringVar(&task, "task", "", "task id")
	_ = fs.Parse(args)

	if task == "" {
		fs.Usage()
		os.Exit(2)
	}
	body := do(http.MethodDelete, "/api/tasks/"+task, nil)
	fmt.Println(string(body))
}

func list() {
	body := do(http.MethodGet, "/api/tasks", nil)
	fmt.Println(string(body))
}

// do issues one API request with the shared secret attached and returns the
// response body, exiting on transport errors or non-2xx statuses.
func do(method, path string, payload any) []byte {
	var buf bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			fatal(err)
		}
	}

	req, err := http.NewRequest(method, host()+path, &buf)
	if err != nil {
		fatal(err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := apiKey(); key != "" {
		req.Header.Set("X-Api-Key", key)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fatal(err)
	}
	if resp.StatusCode >= 400 {
		fatal(fmt.Errorf("request failed: %s: %s", resp.Status, string(body)))
	}
	return body
}

func host() string {
	if v := os.Getenv("EXECUTIVE_HOST_URL"); v != "" {
		return v
	}
	if f, err := paths.HomeHostFile(); err == nil {
		if v, ok := paths.ReadTrimmed(f); ok {
			return v
		}
	}
	return fmt.Sprintf("http://%s:%d", api.DefaultHost, api.DefaultPort)
}

func apiKey() string {
	if v := os.Getenv("EXECUTIVE_API_KEY"); v != "" {
		return v
	}
	if f, err := paths.HomeKeyFile(); err == nil {
		if v, ok := paths.ReadTrimmed(f); ok {
			return v
		}
	}
	return ""
}

func machineIdentity() string {
	if f, err := paths.HomeMachineFile(); err == nil {
		if v, ok := paths.ReadTrimmed(f); ok {
			return v
		}
	}
	return "unknown"
}

func fatal(err error) {
	_, _ = fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
