// Command agentcompanyd is the workspace daemon: it runs init/validate/
// doctor against a company workspace root, then (absent one of those
// one-shot flags) starts the debounced index sync worker and the
// read-only HTTP+WS snapshot surface and blocks until signaled.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/CLIAIMONITOR/internal/eventlog"
	"github.com/CLIAIMONITOR/internal/idgen"
	"github.com/CLIAIMONITOR/internal/index"
	"github.com/CLIAIMONITOR/internal/mcp"
	"github.com/CLIAIMONITOR/internal/notify"
	"github.com/CLIAIMONITOR/internal/obslog"
	"github.com/CLIAIMONITOR/internal/policy"
	"github.com/CLIAIMONITOR/internal/review"
	"github.com/CLIAIMONITOR/internal/rpcsurface"
	"github.com/CLIAIMONITOR/internal/syncworker"
	"github.com/CLIAIMONITOR/internal/types"
	"github.com/CLIAIMONITOR/internal/workspace"
)

var log = obslog.New("agentcompanyd")

func main() {
	root := flag.String("root", ".", "Company workspace root")
	addr := flag.String("addr", ":4170", "HTTP+WS snapshot surface listen address")
	companyName := flag.String("company-name", "New Company", "Company name (init only)")

	initFlag := flag.Bool("init", false, "Initialize a fresh workspace at -root and exit")
	forceInit := flag.Bool("force", false, "With -init, re-init a non-empty workspace")
	validateFlag := flag.Bool("validate", false, "Validate the workspace and exit")
	doctorFlag := flag.Bool("doctor", false, "Run health checks and exit")
	flag.Parse()

	absRoot, err := filepath.Abs(*root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolving -root: %v\n", err)
		os.Exit(1)
	}

	if *initFlag {
		if err := workspace.Init(absRoot, *companyName, *forceInit); err != nil {
			fmt.Fprintf(os.Stderr, "init failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("workspace initialized at %s\n", absRoot)
		return
	}

	if *validateFlag {
		result := workspace.Validate(absRoot)
		for _, issue := range result.Issues {
			fmt.Printf("  %s: %s\n", issue.Path, issue.Message)
		}
		if !result.OK() {
			fmt.Fprintf(os.Stderr, "validation failed: %d issue(s)\n", len(result.Issues))
			os.Exit(2)
		}
		fmt.Println("workspace valid")
		return
	}

	if *doctorFlag {
		result := workspace.Doctor(absRoot)
		for _, c := range result.Checks {
			fmt.Printf("  [%s] %s %s\n", c.Status, c.Name, c.Message)
		}
		if !result.Healthy() {
			os.Exit(1)
		}
		fmt.Println("workspace healthy")
		return
	}

	run(absRoot, *addr)
}

func run(root, addr string) {
	indexPath := filepath.Join(root, ".local", "index.sqlite")
	store, err := index.Open(indexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening index db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := index.Rebuild(store, root); err != nil {
		log.Warnf("initial rebuild: %v", err)
	}

	cfg, notifyCfg := loadConfig(root)
	log.Infof("loaded machine config: %d provider bin(s), %d repo root(s)", len(cfg.ProviderBins), len(cfg.RepoRoots))

	appender := eventlog.NewAppender()
	gate := policy.NewGate(appender)
	ids := idgen.NewFactory()

	bridge := notify.NewBridge(notifyCfg)
	defer bridge.Close()

	sync := syncworker.New(func() error { return resyncAndNotify(store, root, bridge) })
	defer sync.Close()

	reviewSvc := review.NewService(root, store, gate, appender, ids, sync, bridge)

	surface := rpcsurface.NewServer(root, store, reviewSvc)
	go surface.Hub().Run()

	mcpServer := mcp.NewServer()
	mcpServer.SetAuthorizer(agentAuthorizer(root))
	mcp.RegisterWorkspaceTools(mcpServer, reviewSvc, store)
	surface.Router().HandleFunc("/mcp", mcpServer.ServeStreamableHTTP)

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("serving workspace snapshot surface on %s", addr)
		serveErr <- surface.Serve(addr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && err.Error() != "http: Server closed" {
			fmt.Fprintf(os.Stderr, "surface error: %v\n", err)
		}
	case <-shutdown:
		log.Infof("shutting down (signal received)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := surface.Shutdown(ctx); err != nil {
		log.Errorf("surface shutdown: %v", err)
	}
	if err := sync.Flush(); err != nil {
		log.Errorf("final sync flush: %v", err)
	}
}

// agentAuthorizer rejects MCP tool calls from an agent ID with no
// org/agents/<id>/agent.yaml, so the workspace.* tool surface can only be
// driven by agents the company roster actually knows about.
func agentAuthorizer(root string) func(agentID string) error {
	return func(agentID string) error {
		if agentID == "" {
			return fmt.Errorf("agent_id is required")
		}
		path := filepath.Join(root, "org", "agents", agentID, "agent.yaml")
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("unknown agent %s", agentID)
		}
		return nil
	}
}

// resyncAndNotify rebuilds the index projection and raises a toast for any
// artifact that entered the pending-review inbox since the last rebuild.
// Diffing against the pre-rebuild pending set is how a newly-appeared
// review is distinguished from one the operator already knows about,
// since index.Rebuild itself has no notion of "new" vs. "still pending".
func resyncAndNotify(store *index.Store, root string, bridge *notify.Bridge) error {
	before, _ := store.ListPendingReviews()
	if err := index.Rebuild(store, root); err != nil {
		return err
	}
	after, err := store.ListPendingReviews()
	if err != nil {
		log.Warnf("listing pending reviews for notify diff: %v", err)
		return nil
	}

	seen := make(map[string]bool, len(before))
	for _, p := range before {
		seen[p.ArtifactID] = true
	}
	for _, p := range after {
		if !seen[p.ArtifactID] {
			bridge.NotifyPendingReview(p.ArtifactID, string(p.ArtifactType))
		}
	}
	return nil
}

// loadConfig reads .local/machine.yaml, defaulting on a missing or
// unparseable file rather than failing the daemon's startup. Its
// notifications leg lives on MachineConfig itself, so one strict decode
// populates both.
func loadConfig(root string) (types.MachineConfig, types.NotificationsConfig) {
	path := filepath.Join(root, ".local", "machine.yaml")
	cfg := types.DefaultMachineConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("reading %s: %v (using defaults)", path, err)
		return cfg, cfg.Notifications
	}
	if err := types.StrictUnmarshalYAML(data, &cfg); err != nil {
		log.Warnf("parsing %s: %v (using defaults)", path, err)
		return types.DefaultMachineConfig(), types.DefaultMachineConfig().Notifications
	}
	return cfg, cfg.Notifications
}
