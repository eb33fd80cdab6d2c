package logging

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestFileHook(t *testing.T) {
	dir, err := ioutil.TempDir("", "guardian-log")
	if err != nil {
		t.Fatalf("creating temp dir failed: %s", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "guardian.log")
	hook, err := NewFileHook(path, logrus.InfoLevel)
	if err != nil {
		t.Fatalf("NewFileHook() failed: %s", err)
	}
	defer hook.Close()

	log := logrus.New()
	log.Out = ioutil.Discard
	log.SetLevel(logrus.DebugLevel)
	log.AddHook(hook)

	log.WithField("module", "test").Info("reverted nickname")
	log.Debug("not written")

	content, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file failed: %s", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), content)
	}
	if !strings.Contains(lines[0], `"module":"test"`) || !strings.Contains(lines[0], `"msg":"reverted nickname"`) {
		t.Fatalf("unexpected log line: %s", lines[0])
	}
}
