package cli

import (
	"io"
	"log"
	"os"

	"github.com/rileyhilliard/treetop/internal/config"
	"github.com/rileyhilliard/treetop/internal/errors"
	"github.com/rileyhilliard/treetop/internal/logger"
)

var logOut *os.File

// setupLogging points the standard log output at path. The terminal belongs
// to the table view, so without a path log output is discarded.
func setupLogging(path string) error {
	logger.SetDefault(logger.NewEnvLogger("[treetop]"))
	if path == "" {
		log.SetOutput(io.Discard)
		return nil
	}

	f, err := os.OpenFile(config.ExpandPath(path), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Can't open log file "+path,
			"Check the directory exists and is writable, or drop --log-file.")
	}
	logOut = f
	log.SetOutput(f)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return nil
}

func closeLogging() {
	if logOut == nil {
		return
	}
	log.SetOutput(io.Discard)
	logOut.Close()
	logOut = nil
}
