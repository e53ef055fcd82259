package main

import (
	"bufio"
	"flag"
	"io"
	"strings"
	"time"

	"github.com/ecoscope/geosync/internal/dispatcher"
)

type cliFlags struct {
	configDir   string
	showVersion bool
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.configDir, "config", ".", "directory containing geosync.cfg.json")
	flag.BoolVar(&f.showVersion, "version", false, "print version and exit")
	flag.Parse()
	return f
}

// runCommandLoop reads host commands from r until EOF. One command per
// line, pipe-separated: the command name followed by its raw arguments,
// e.g. `:MAP:VIEW:|"51.5,-0.1"|16`.
func runCommandLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, "|")
		e := dispatcher.Event{
			Command:   parts[0],
			Args:      parts[1:],
			Timestamp: time.Now(),
		}

		if !eventDispatcher.HasHandler(e.Command) {
			Logger.Warn("Unknown command", "command", e.Command)
			continue
		}
		if _, err := eventDispatcher.Dispatch(e); err != nil {
			Logger.Error("Command failed", "command", e.Command, "error", err)
		}
	}
	if err := scanner.Err(); err != nil {
		Logger.Error("Command stream error", "error", err)
	}
}
