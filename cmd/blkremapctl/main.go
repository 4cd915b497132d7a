// Command blkremapctl is a thin CLI front-end over the control surface
// (internal/control), mirroring the kernel module's module_param_cb
// parameter-file interface from original_source/driver.c without depending
// on any kernel facility. Invoked either as a one-shot command:
//
//	blkremapctl base /dev/loop0
//	blkremapctl open
//	blkremapctl close
//
// or, with no arguments, as a line-oriented REPL reading the same commands
// from stdin until EOF, printing one status line per command.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"blkremap/internal/audit"
	"blkremap/internal/control"
	"blkremap/internal/device"
)

func main() {
	mgr := device.NewManager()
	surface := control.NewSurface(mgr, audit.NewBuffer(256))

	if len(os.Args) > 1 {
		status := run(surface, os.Args[1:])
		fmt.Println(status)
		os.Exit(status)
	}

	scanner := bufio.NewScanner(os.Stdin)
	status := 0
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		status = run(surface, fields)
		fmt.Println(status)
	}
	os.Exit(status)
}

// run dispatches a single command line and prints its result, returning the
// status code the specification's control-surface table assigns it.
func run(surface *control.Surface, args []string) int {
	switch args[0] {
	case "base":
		if len(args) > 1 {
			err := surface.SetBase(args[1])
			return report(err)
		}
		path, err := surface.GetBase()
		if err == nil {
			fmt.Println(path)
		}
		return report(err)
	case "open":
		return report(surface.Open())
	case "close":
		return report(surface.Close())
	default:
		fmt.Fprintf(os.Stderr, "blkremapctl: unknown command %q\n", args[0])
		return control.StatusInvalid
	}
}

func report(err error) int {
	status := control.StatusFor(err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "blkremapctl: %v\n", err)
	}
	return status
}
