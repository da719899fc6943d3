// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/monadic/nodes-delete/pkg/nodes"
)

// logDir is where session logs are written, relative to the working directory.
var logDir = ".nodes-delete/logs"

// SessionLogger logs one command run to a file. It also receives the
// wizard's error reports.
type SessionLogger struct {
	mu        sync.Mutex
	file      *os.File
	startTime time.Time
	command   string
}

// NewSessionLogger creates a new logger for a command run
func NewSessionLogger(command string) (*SessionLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02-150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("%s-%s.log", command, timestamp))

	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	logger := &SessionLogger{
		file:      file,
		startTime: time.Now(),
		command:   command,
	}
	logger.writeHeader()

	return logger, nil
}

func (l *SessionLogger) writeHeader() {
	l.file.WriteString("=" + strings.Repeat("=", 79) + "\n")
	l.file.WriteString(fmt.Sprintf("nodes-delete: %s\n", l.command))
	l.file.WriteString(fmt.Sprintf("Started: %s\n", l.startTime.Format(time.RFC3339)))
	l.file.WriteString("=" + strings.Repeat("=", 79) + "\n\n")
}

// Log writes a message to the log file
func (l *SessionLogger) Log(format string, args ...interface{}) {
	if l == nil || l.file == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	timestamp := time.Now().Format("15:04:05")
	msg := fmt.Sprintf(format, args...)
	l.file.WriteString(fmt.Sprintf("[%s] %s\n", timestamp, msg))
}

// Section writes a section header
func (l *SessionLogger) Section(title string) {
	if l == nil || l.file == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.file.WriteString(fmt.Sprintf("\n--- %s ---\n", title))
}

// LogTree writes the loaded hierarchy
func (l *SessionLogger) LogTree(root nodes.Node, count int) {
	if l == nil || l.file == nil {
		return
	}
	l.Section("NODE TREE")
	l.Log("Root: %s (%s) public=%v", root.Title, root.ID, root.IsPublic)
	l.Log("Nodes: %d", count)
}

// LogChanges writes the entries about to be submitted, in request order
func (l *SessionLogger) LogChanges(changed []nodes.NodeSnapshot) {
	if l == nil || l.file == nil {
		return
	}
	l.Section("CHANGES")
	l.Log("Changed: %d", len(changed))
	for _, n := range changed {
		visibility := "private"
		if n.IsPublic {
			visibility = "public"
		}
		l.Log("  %s (%s) -> %s", n.Title, n.ID, visibility)
	}
}

// CaptureMessage records a failure reported by the wizard
func (l *SessionLogger) CaptureMessage(msg string, extra map[string]any) {
	if l == nil || l.file == nil {
		return
	}
	l.Section("ERROR")
	l.Log("%s", msg)
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		l.Log("  %s: %v", k, extra[k])
	}
}

// LogResult writes the operation result
func (l *SessionLogger) LogResult(submitted int, err error) {
	if l == nil || l.file == nil {
		return
	}
	l.Section("RESULT")
	if err != nil {
		l.Log("ERROR: %v", err)
	}
	l.Log("Submitted: %d", submitted)
	l.Log("Duration: %s", time.Since(l.startTime).Round(time.Millisecond))
}

// Close closes the log file and returns its path
func (l *SessionLogger) Close() string {
	if l == nil || l.file == nil {
		return ""
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.file.WriteString(fmt.Sprintf("\n\nCompleted: %s\n", time.Now().Format(time.RFC3339)))
	l.file.WriteString(fmt.Sprintf("Duration: %s\n", time.Since(l.startTime).Round(time.Millisecond)))

	path := l.file.Name()
	l.file.Close()
	l.file = nil
	return path
}
