package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dianpeng/flatdb/engine"
	"github.com/fatih/color"
)

var fOutput = flag.String(
	"output",
	"",
	"specify path to save output file, default write to STDOUT",
)

var fConfig = flag.String(
	"config",
	"",
	"yaml config file, flags given explicitly override its values",
)

var fDir = flag.String(
	"dir",
	"",
	"data directory holding the table files, default is the working directory",
)

var fChunk = flag.Int(
	"chunk",
	0,
	"number of records processed per chunk",
)

var fSort = flag.String(
	"sort",
	"",
	"order by strategy, one of auto, memory or external",
)

var fLogLevel = flag.String(
	"log-level",
	"",
	"log level written to STDERR, one of debug, info, warn or error",
)

var fCommand = flag.String(
	"c",
	"",
	"command(s) to run, ';' separated, default read from STDIN",
)

var fJSON = flag.Bool(
	"json",
	false,
	"print every result as one JSON document per line",
)

var fColor = flag.Bool(
	"color",
	false,
	"colorize table output",
)

func oops(stage string, err error) {
	fmt.Fprintf(os.Stderr, "ERROR [%s] %s\n", stage, err)
	os.Exit(-1)
}

func readStdin() string {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		oops("read command", err)
	}
	return string(data)
}

func loadConfig() engine.Config {
	cfg := engine.DefaultConfig()
	if *fConfig != "" {
		c, err := engine.LoadConfig(*fConfig)
		if err != nil {
			oops("config", err)
		}
		cfg = c
	}
	if *fDir != "" {
		cfg.DataDir = *fDir
	}
	if *fChunk != 0 {
		cfg.ChunkSize = *fChunk
	}
	if *fSort != "" {
		cfg.SortStrategy = *fSort
	}
	if *fLogLevel != "" {
		cfg.LogLevel = *fLogLevel
	}

	level, err := engine.ParseLevel(cfg.LogLevel)
	if err != nil {
		oops("config", err)
	}
	cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg
}

func main() {
	flag.Parse()
	cfg := loadConfig()

	e, err := engine.Open(cfg)
	if err != nil {
		oops("open", err)
	}

	src := *fCommand
	if src == "" {
		src = readStdin()
	}

	var file *os.File
	out := io.Writer(os.Stdout)
	if *fOutput != "" {
		f, err := os.Create(*fOutput)
		if err != nil {
			oops("save", err)
		}
		file = f
		out = f
		color.NoColor = true
	}

	format := engine.PlainFormat
	if *fColor {
		format = engine.ColorFormat
	}

	failed := false
	for _, r := range e.ExecScript(src) {
		if !r.OK {
			failed = true
		}
		if *fJSON {
			data, err := r.JSON()
			if err != nil {
				oops("json", err)
			}
			if _, err := fmt.Fprintf(out, "%s\n", data); err != nil {
				oops("save", err)
			}
		} else if err := engine.Render(out, r, format); err != nil {
			oops("save", err)
		}
	}

	if file != nil {
		if err := file.Close(); err != nil {
			oops("save", err)
		}
	}
	if failed {
		os.Exit(1)
	}
}
