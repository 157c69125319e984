package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mitchellh/panicwrap"

	"KebaP30c-Client/internal/command"
	"KebaP30c-Client/internal/config"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const banner = `---------------------------------------------------
KebaP30c configuration tool to change User Current
run with /? for Help
---------------------------------------------------
`

func main() {
	exitStatus, err := panicwrap.BasicWrap(panicHandler)
	if err != nil {
		panic(err)
	}
	// The parent process has run the child to completion.
	if exitStatus >= 0 {
		os.Exit(exitStatus)
	}
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func panicHandler(output string) {
	log.Printf("The child panicked:\n\n%s\n", output)
	os.Exit(exitFailure)
}

// run is the single place where errors are reported and the exit status
// is chosen.
func run(args []string, stdin io.Reader, stdout io.Writer) int {
	fs := flag.NewFlagSet("kebap30c", flag.ContinueOnError)
	fs.SetOutput(stdout)
	configFile := fs.String("config", "config.yaml", "Path to YAML configuration file")
	logFile := fs.String("log", "", "Log to file instead of stderr")
	noPause := fs.Bool("nopause", false, "Exit without waiting for a key press")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	// Set up logging
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(stdout, "Failed to open log file: %v\n", err)
			return exitFailure
		}
		defer f.Close()
		prev := log.Writer()
		log.SetOutput(f)
		defer log.SetOutput(prev)
	}
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	fmt.Fprint(stdout, banner)

	cmd, err := command.Parse(fs.Args())
	if err != nil {
		fmt.Fprintln(stdout, err)
		if command.IsUsageError(err) {
			return exitUsage
		}
		return exitFailure
	}
	if cmd.Kind == command.Help {
		fmt.Fprint(stdout, command.HelpText)
		if !*noPause {
			pause(stdin, stdout)
		}
		return exitOK
	}

	conf, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(stdout, "Failed to load configuration: %v\n", err)
		return exitFailure
	}
	runner, err := command.NewRunner(conf, stdout)
	if err != nil {
		fmt.Fprintf(stdout, "Failed to set up %s: %v\n", conf.Device.Host, err)
		return exitFailure
	}
	defer runner.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	status := exitOK
	if err := runner.Run(ctx, cmd); err != nil {
		log.Printf("%s failed: %v", cmd.Kind, err)
		fmt.Fprintf(stdout, "Error: %v\n", err)
		status = exitFailure
	}
	if !*noPause && conf.Pause() {
		pause(stdin, stdout)
	}
	return status
}

func pause(stdin io.Reader, stdout io.Writer) {
	fmt.Fprint(stdout, "Press any key to continue . . . ")
	bufio.NewReader(stdin).ReadString('\n')
	fmt.Fprintln(stdout)
}
