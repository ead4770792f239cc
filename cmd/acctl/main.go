// Command acctl is the operator CLI for a company workspace: init,
// validate, and doctor the tree, resolve a pending review, and launch a
// run. It dispatches on the first non-flag argument to a subcommand,
// each with its own flag.FlagSet, mirroring the teacher's flag-driven
// entrypoints rather than adopting a third-party CLI framework.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/CLIAIMONITOR/internal/corerr"
	"github.com/CLIAIMONITOR/internal/eventlog"
	"github.com/CLIAIMONITOR/internal/fsys"
	"github.com/CLIAIMONITOR/internal/idgen"
	"github.com/CLIAIMONITOR/internal/index"
	"github.com/CLIAIMONITOR/internal/notify"
	"github.com/CLIAIMONITOR/internal/policy"
	"github.com/CLIAIMONITOR/internal/review"
	"github.com/CLIAIMONITOR/internal/session"
	"github.com/CLIAIMONITOR/internal/types"
	"github.com/CLIAIMONITOR/internal/workspace"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "init":
		err = cmdInit(args)
	case "validate":
		err = cmdValidate(args)
	case "doctor":
		err = cmdDoctor(args)
	case "review":
		err = cmdReview(args)
	case "run":
		err = cmdRun(args)
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "acctl: unknown command %q\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "acctl: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: acctl <command> [flags]

Commands:
  init      -root DIR -name NAME [-force]     initialize a workspace
  validate  -root DIR                         validate workspace entities
  doctor    -root DIR                         run health checks
  review list    -root DIR                    list pending reviews
  review resolve -root DIR -artifact ID -decision approved|denied -actor ID -role ROLE [-notes TEXT]
  run launch -root DIR -project ID -agent ID -provider NAME -bin PATH [-arg ...] [-stdin-file PATH]`)
}

// exitCode maps the corerr taxonomy onto process exit codes, per
// spec.md §7.
func exitCode(err error) int {
	switch err.(type) {
	case *corerr.ValidationError:
		return 2
	case *corerr.NotFoundError:
		return 3
	case *corerr.PolicyDenied:
		return 4
	case *corerr.SensitiveTextError:
		return 5
	case *corerr.LockContended:
		return 6
	default:
		return 1
	}
}

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	root := fs.String("root", ".", "Company workspace root")
	name := fs.String("name", "New Company", "Company name")
	force := fs.Bool("force", false, "Re-init a non-empty workspace")
	fs.Parse(args)

	absRoot, err := filepath.Abs(*root)
	if err != nil {
		return err
	}
	if err := workspace.Init(absRoot, *name, *force); err != nil {
		return err
	}
	fmt.Printf("workspace initialized at %s\n", absRoot)
	return nil
}

func cmdValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	root := fs.String("root", ".", "Company workspace root")
	fs.Parse(args)

	absRoot, err := filepath.Abs(*root)
	if err != nil {
		return err
	}
	result := workspace.Validate(absRoot)
	for _, issue := range result.Issues {
		fmt.Printf("  %s: %s\n", issue.Path, issue.Message)
	}
	if !result.OK() {
		issues := make([]corerr.ValidationIssue, len(result.Issues))
		for i, iss := range result.Issues {
			issues[i] = corerr.ValidationIssue{Path: iss.Path, Message: iss.Message}
		}
		return &corerr.ValidationError{Issues: issues}
	}
	fmt.Println("workspace valid")
	return nil
}

func cmdDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	root := fs.String("root", ".", "Company workspace root")
	fs.Parse(args)

	absRoot, err := filepath.Abs(*root)
	if err != nil {
		return err
	}
	result := workspace.Doctor(absRoot)
	for _, c := range result.Checks {
		fmt.Printf("  [%s] %s %s\n", c.Status, c.Name, c.Message)
	}
	if !result.Healthy() {
		return corerr.NewUserError("workspace is unhealthy; see checks above")
	}
	fmt.Println("workspace healthy")
	return nil
}

func cmdReview(args []string) error {
	if len(args) < 1 {
		return corerr.NewUserError("review: expected a subcommand (list, resolve)")
	}
	switch args[0] {
	case "list":
		return cmdReviewList(args[1:])
	case "resolve":
		return cmdReviewResolve(args[1:])
	default:
		return corerr.NewUserError("review: unknown subcommand %q", args[0])
	}
}

func cmdReviewList(args []string) error {
	fs := flag.NewFlagSet("review list", flag.ExitOnError)
	root := fs.String("root", ".", "Company workspace root")
	fs.Parse(args)

	absRoot, err := filepath.Abs(*root)
	if err != nil {
		return err
	}
	svc, store, err := openReviewService(absRoot)
	if err != nil {
		return err
	}
	defer store.Close()
	defer svc.Notify.Close()

	pending, err := svc.Pending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("no pending reviews")
		return nil
	}
	for _, p := range pending {
		fmt.Printf("%s  %s  project=%s  agent=%s  since=%s\n", p.ArtifactID, p.ArtifactType, p.ProjectID, p.ProducedBy, p.CreatedAt)
	}
	return nil
}

func cmdReviewResolve(args []string) error {
	fs := flag.NewFlagSet("review resolve", flag.ExitOnError)
	root := fs.String("root", ".", "Company workspace root")
	artifactID := fs.String("artifact", "", "Artifact id to resolve")
	decision := fs.String("decision", "", "approved or denied")
	actorID := fs.String("actor", "", "Resolving actor's agent/human id")
	role := fs.String("role", string(types.RoleHuman), "Resolving actor's role")
	notes := fs.String("notes", "", "Review notes")
	fs.Parse(args)

	if *artifactID == "" || *decision == "" || *actorID == "" {
		return corerr.NewUserError("review resolve: -artifact, -decision, and -actor are required")
	}

	absRoot, err := filepath.Abs(*root)
	if err != nil {
		return err
	}

	lock, err := fsys.WithBackoff(func() (*fsys.WorkspaceLock, error) {
		return fsys.AcquireWorkspaceLock(absRoot)
	})
	if err != nil {
		return err
	}
	defer lock.Release()

	svc, store, err := openReviewService(absRoot)
	if err != nil {
		return err
	}
	defer store.Close()
	defer svc.Notify.Close()

	rv, err := svc.Resolve(review.ResolveRequest{
		ArtifactID: *artifactID,
		Decision:   types.ReviewDecision(*decision),
		ActorID:    *actorID,
		ActorRole:  types.Role(*role),
		Notes:      *notes,
	})
	if err != nil {
		return err
	}

	fmt.Printf("review %s recorded: %s -> %s\n", rv.ID, rv.SubjectArtifactID, rv.Decision)
	return nil
}

func cmdRun(args []string) error {
	if len(args) < 1 {
		return corerr.NewUserError("run: expected a subcommand (launch)")
	}
	switch args[0] {
	case "launch":
		return cmdRunLaunch(args[1:])
	default:
		return corerr.NewUserError("run: unknown subcommand %q", args[0])
	}
}

// argvFlags collects repeated -arg flags into an argv tail appended after
// the provider binary.
type argvFlags []string

func (a *argvFlags) String() string { return fmt.Sprint([]string(*a)) }
func (a *argvFlags) Set(v string) error {
	*a = append(*a, v)
	return nil
}

func cmdRunLaunch(args []string) error {
	fs := flag.NewFlagSet("run launch", flag.ExitOnError)
	root := fs.String("root", ".", "Company workspace root")
	projectID := fs.String("project", "", "Project id")
	agentID := fs.String("agent", "", "Agent id")
	provider := fs.String("provider", "", "Provider name (matches .local/machine.yaml provider_bins key)")
	bin := fs.String("bin", "", "Provider binary path (overrides machine.yaml lookup)")
	stdinFile := fs.String("stdin-file", "", "File whose contents are piped to the provider's stdin")
	var argv argvFlags
	fs.Var(&argv, "arg", "Extra provider argv entry (repeatable)")
	fs.Parse(args)

	if *projectID == "" || *agentID == "" || *provider == "" {
		return corerr.NewUserError("run launch: -project, -agent, and -provider are required")
	}

	absRoot, err := filepath.Abs(*root)
	if err != nil {
		return err
	}

	lock, err := fsys.WithBackoff(func() (*fsys.WorkspaceLock, error) {
		return fsys.AcquireWorkspaceLock(absRoot)
	})
	if err != nil {
		return err
	}
	defer lock.Release()

	cfg, err := loadMachineConfig(absRoot)
	if err != nil {
		return err
	}

	resolvedBin := *bin
	if resolvedBin == "" {
		resolvedBin = cfg.ProviderBins[*provider]
	}
	if resolvedBin == "" {
		return corerr.NewUserError("run launch: no binary for provider %q; pass -bin or set provider_bins in machine.yaml", *provider)
	}

	var stdinText string
	if *stdinFile != "" {
		data, err := os.ReadFile(*stdinFile)
		if err != nil {
			return err
		}
		stdinText = string(data)
	} else if info, _ := os.Stdin.Stat(); info != nil && info.Mode()&os.ModeCharDevice == 0 {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			return err
		}
		stdinText = string(data)
	}

	ids := idgen.NewFactory()
	runID := ids.New(idgen.PrefixRun)
	runDir := filepath.Join(absRoot, "work", "projects", *projectID, "runs", runID)
	if err := fsys.EnsureDir(runDir); err != nil {
		return err
	}
	eventsPath := eventlog.EventsPath(runDir)
	runYAMLPath := filepath.Join(runDir, "run.yaml")

	run := types.Run{
		SchemaVersion: types.SchemaVersion,
		ID:            runID,
		ProjectID:     *projectID,
		AgentID:       *agentID,
		Provider:      *provider,
		Status:        types.RunRunning,
		CreatedAt:     time.Now().UTC(),
		EventsRelpath: "events.jsonl",
	}
	if err := writeRunYAML(runYAMLPath, run); err != nil {
		return err
	}

	driver := session.Driver{
		Provider: *provider,
		Build: func() (session.BuiltCommand, error) {
			return session.BuiltCommand{
				Argv:      append([]string{resolvedBin}, argv...),
				StdinText: stdinText,
			}, nil
		},
	}

	appender := eventlog.NewAppender()
	rt := session.NewRuntime(appender, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	outcome := rt.Launch(ctx, session.LaunchSpec{
		Run:        run,
		EventsPath: eventsPath,
		Driver:     driver,
	})

	endedAt := time.Now().UTC()
	run.Status = outcome.Status
	run.EndedAt = &endedAt
	if outcome.Usage.Total > 0 {
		run.Usage = &outcome.Usage
	}
	if outcome.ContextCycles.Count > 0 {
		run.ContextCycles = &outcome.ContextCycles
	}
	if err := writeRunYAML(runYAMLPath, run); err != nil {
		return err
	}

	if outcome.Status == types.RunFailed {
		bridge := notify.NewBridge(loadNotificationsConfig(absRoot))
		reason := "unknown error"
		if outcome.Err != nil {
			reason = outcome.Err.Error()
		}
		bridge.NotifyRunFailed(runID, reason)
		bridge.Close()
	}

	indexPath := filepath.Join(absRoot, ".local", "index.sqlite")
	store, err := index.Open(indexPath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := index.Rebuild(store, absRoot); err != nil {
		return err
	}

	fmt.Printf("run %s ended with status %s\n", runID, run.Status)
	if outcome.Err != nil {
		return outcome.Err
	}
	return nil
}

func writeRunYAML(path string, run types.Run) error {
	data, err := yaml.Marshal(run)
	if err != nil {
		return err
	}
	return fsys.WriteFileAtomic(path, data, 0o644)
}

func loadMachineConfig(root string) (types.MachineConfig, error) {
	path := filepath.Join(root, ".local", "machine.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.DefaultMachineConfig(), nil
		}
		return types.MachineConfig{}, err
	}
	cfg := types.DefaultMachineConfig()
	if err := types.StrictUnmarshalYAML(data, &cfg); err != nil {
		return types.MachineConfig{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// loadNotificationsConfig reads the notifications leg of .local/machine.yaml,
// defaulting to both channels disabled on a missing or unparseable file
// rather than failing the calling command.
func loadNotificationsConfig(root string) types.NotificationsConfig {
	cfg, err := loadMachineConfig(root)
	if err != nil {
		return types.NotificationsConfig{}
	}
	return cfg.Notifications
}

func openReviewService(root string) (*review.Service, *index.Store, error) {
	indexPath := filepath.Join(root, ".local", "index.sqlite")
	store, err := index.Open(indexPath)
	if err != nil {
		return nil, nil, err
	}
	if err := index.Rebuild(store, root); err != nil {
		store.Close()
		return nil, nil, err
	}

	appender := eventlog.NewAppender()
	gate := policy.NewGate(appender)
	ids := idgen.NewFactory()
	bridge := notify.NewBridge(loadNotificationsConfig(root))
	svc := review.NewService(root, store, gate, appender, ids, nil, bridge)
	return svc, store, nil
}
