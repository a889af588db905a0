package local

import (
	"io"
	"log/slog"
	"os"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mkdir(path string) error {
	return os.MkdirAll(path, 0755)
}
