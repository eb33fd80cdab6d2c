package logging

import (
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// FileHook writes every log entry as one JSON line into a file
type FileHook struct {
	sync.Mutex

	file      *os.File
	formatter *logrus.JSONFormatter
	levels    []logrus.Level
}

// NewFileHook opens file for appending and logs all entries at or above level into it
func NewFileHook(file string, level logrus.Level) (*FileHook, error) {
	logFile, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to open log file %s: %v\n", file, err)
		return nil, err
	}

	levels := make([]logrus.Level, 0)
	for _, l := range logrus.AllLevels {
		if l <= level {
			levels = append(levels, l)
		}
	}

	return &FileHook{file: logFile, formatter: &logrus.JSONFormatter{}, levels: levels}, nil
}

func (hook *FileHook) Fire(entry *logrus.Entry) error {
	line, err := hook.formatter.Format(entry)
	if err != nil {
		return err
	}

	hook.Lock()
	defer hook.Unlock()

	_, err = hook.file.Write(line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to write to log file: %v\n", err)
		return err
	}
	return nil
}

func (hook *FileHook) Levels() []logrus.Level {
	return hook.levels
}

func (hook *FileHook) Close() error {
	return hook.file.Close()
}
