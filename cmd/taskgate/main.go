package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"taskgate/internal/config"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	version       = flag.Bool("version", false, "Print version and exit")
	debugMode     = flag.Bool("d", false, "Enable debug mode")
	logFile       = flag.String("log-file", "", "Log file path (logs go to stderr by default)")
	configPath    = flag.String("config", "config.json", "Configuration file path")
	listenAddr    = flag.String("addr", "", "Listen address (overrides config)")
	exampleConfig = flag.Bool("example-config", false, "Print an example configuration and exit")
	printSchema   = flag.Bool("schema", false, "Print the configuration JSON schema and exit")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println(Version)
		return
	}
	if *exampleConfig {
		fmt.Println(config.ExampleConfigJSON())
		return
	}
	if *printSchema {
		fmt.Println(config.SchemaJSON())
		return
	}

	logger, closer, err := initLogger(*debugMode, *logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}
	logger.Info().Msg("taskgate starting")

	if err := run(logger, *configPath, *listenAddr); err != nil {
		logger.Error().Err(err).Msg("taskgate stopped")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if closer != nil {
			closer.Close()
		}
		os.Exit(1)
	}
}

func initLogger(debug bool, logFilePath string) (zerolog.Logger, io.Closer, error) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var output io.Writer
	var closer io.Closer
	switch {
	case logFilePath != "":
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		closer = file
	case term.IsTerminal(int(os.Stderr.Fd())):
		output = zerolog.ConsoleWriter{Out: os.Stderr}
	default:
		output = os.Stderr
	}

	return zerolog.New(output).With().Timestamp().Logger(), closer, nil
}
