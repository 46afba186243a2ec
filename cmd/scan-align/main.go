// scan-align levels and crops scanned exam pages.
//
// Usage:
//
//	scan-align align   -in page.png -out aligned.png [-json]
//	scan-align batch   -in scans/ -out aligned/ [-clean] [-concurrency 8]
//	scan-align clean   -in aligned.png -out clean.png
//	scan-align serve   (MCP server over stdin/stdout)
//	scan-align worker  (consume jobs from Redis)
//	scan-align enqueue -in page.png -out aligned.png [-clean]
//	scan-align grade   -key key.json (-answers sheet.json | -page page.png -student ID)
//	scan-align plagiarism -in submissions/
//	scan-align version
//
// Every command accepts -config (YAML file), -env (.env file), -debug,
// -output-dir and -log-level. Environment variables prefixed SCAN_ALIGN_
// override the YAML file; flags override both.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "align":
		err = runAlign(ctx, args[1:], stdout, stderr)
	case "batch":
		err = runBatch(ctx, args[1:], stdout, stderr)
	case "clean":
		err = runClean(args[1:], stdout, stderr)
	case "serve":
		err = runServe(ctx, args[1:], stderr)
	case "worker":
		err = runWorker(ctx, args[1:], stderr)
	case "enqueue":
		err = runEnqueue(ctx, args[1:], stdout, stderr)
	case "grade":
		err = runGrade(ctx, args[1:], stdout, stderr)
	case "plagiarism":
		err = runPlagiarism(args[1:], stdout, stderr)
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "scan-align %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		return 0
	case "--help", "-h", "help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", args[0])
		printUsage(stderr)
		return 2
	}

	if err != nil {
		if err == errUsage {
			return 2
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "scan-align - deskew and crop scanned exam pages")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: scan-align <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  align      Align a single page")
	fmt.Fprintln(w, "  batch      Align every page in a directory")
	fmt.Fprintln(w, "  clean      Prepare an aligned page for handwriting extraction")
	fmt.Fprintln(w, "  serve      Run the MCP server on stdin/stdout")
	fmt.Fprintln(w, "  worker     Process alignment jobs from Redis")
	fmt.Fprintln(w, "  enqueue    Submit an alignment job to Redis")
	fmt.Fprintln(w, "  grade      Score an answer sheet against an answer key")
	fmt.Fprintln(w, "  plagiarism Find identical answers within and across sheets")
	fmt.Fprintln(w, "  version    Print version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'scan-align <command> -h' for the options of a command.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  SCAN_ALIGN_LOG_LEVEL=debug    Enable debug logging")
	fmt.Fprintln(w, "  SCAN_ALIGN_DEBUG=true         Write intermediate images")
	fmt.Fprintln(w, "  SCAN_ALIGN_REDIS_URL=...      Redis used by worker and enqueue")
}
