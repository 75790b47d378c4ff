package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ldi/tend/internal/coordinator"
	"github.com/ldi/tend/internal/filter"
	"github.com/ldi/tend/internal/mcp"
	"github.com/ldi/tend/internal/registry"
	"github.com/ldi/tend/internal/remote"
	"github.com/ldi/tend/internal/store"
	"github.com/ldi/tend/internal/tui"
	"github.com/ldi/tend/pkg/models"
)

var (
	storeURL string
	dbPath   string
)

func main() {
	flag.StringVar(&storeURL, "url", defaultStoreURL(), "Base URL of the task store")
	flag.StringVar(&dbPath, "db-path", ".tend/tend.db", "Path to the dev store database file (serve)")
	flag.Parse()

	command := ""
	args := []string{}
	if flag.NArg() > 0 {
		command = flag.Arg(0)
		args = flag.Args()[1:]
	}

	var err error
	switch command {
	case "":
		err = runTUI(args)
	case "serve":
		err = runServe(args)
	case "mcp":
		err = runMCP(args)
	case "list":
		err = runList(args)
	case "add":
		err = runAdd(args)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("\nCommands:")
		fmt.Println("  (none)  Open the interactive task list")
		fmt.Println("  serve   Run the local dev task store")
		fmt.Println("  mcp     Expose task commands over MCP stdio")
		fmt.Println("  list    Print the task list")
		fmt.Println("  add     Add a task")
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func defaultStoreURL() string {
	if url := os.Getenv("TEND_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func newCoordinator(sink coordinator.Sink) *coordinator.Coordinator {
	client := remote.NewClient(storeURL, nil)
	coord := coordinator.New(client, registry.New())
	coord.SetSink(sink)
	return coord
}

func runTUI(args []string) error {
	return tui.Run(newCoordinator(coordinator.NopSink{}))
}

func runServe(args []string) error {
	serveFlags := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := serveFlags.String("port", "8080", "Port to listen on")
	if err := serveFlags.Parse(args); err != nil {
		return err
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := st.Init(ctx); err != nil {
		return err
	}

	srv := store.NewServer(st)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("tend store listening on :%s (db: %s)\n", *port, dbPath)
	if err := srv.Start(fmt.Sprintf(":%s", *port)); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func runMCP(args []string) error {
	coord := newCoordinator(coordinator.NopSink{})

	// Warm the registry; a dead store is reported per tool call, not fatal.
	if err := coord.Load(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: initial load failed: %v\n", err)
	}

	s := mcp.NewServer(coord)
	return mcp.Serve(s)
}

func runList(args []string) error {
	listFlags := flag.NewFlagSet("list", flag.ContinueOnError)
	filterName := listFlags.String("filter", "all", "Filter to apply (all, active, completed)")
	if err := listFlags.Parse(args); err != nil {
		return err
	}

	f, err := models.ParseFilter(*filterName)
	if err != nil {
		return err
	}

	coord := newCoordinator(coordinator.WriterSink{W: os.Stderr})
	if err := coord.Load(context.Background()); err != nil {
		return err
	}

	snapshot := coord.Tasks()
	visible := filter.Visible(snapshot, f)
	counts := filter.Counts(snapshot)

	fmt.Printf("%-38s %-40s %-10s\n", "ID", "TITLE", "STATUS")
	fmt.Println(strings.Repeat("-", 90))
	for _, t := range visible {
		status := "open"
		if t.Completed {
			status = "done"
		}
		fmt.Printf("%-38s %-40s %-10s\n", t.ID, t.Title, status)
	}
	fmt.Printf("\n%d total, %d active, %d done\n", counts.Total, counts.Active, counts.Completed)
	return nil
}

func runAdd(args []string) error {
	addFlags := flag.NewFlagSet("add", flag.ContinueOnError)
	description := addFlags.String("description", "", "Task description")
	if err := addFlags.Parse(args); err != nil {
		return err
	}
	title := strings.Join(addFlags.Args(), " ")

	coord := newCoordinator(coordinator.WriterSink{W: os.Stderr})
	task, err := coord.Add(context.Background(), title, *description)
	if err != nil {
		return err
	}

	fmt.Printf("Added %q (%s)\n", task.Title, task.ID)
	return nil
}
