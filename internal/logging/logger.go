package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger writes formatted lines to a log file through a buffered channel so
// callers on the event path never block on disk I/O. Warn and above are
// mirrored to stderr.
type Logger struct {
	level  Level
	file   *os.File
	mirror io.Writer
	lines  chan string
	wg     sync.WaitGroup
}

func New(level Level, path string) (*Logger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	l := &Logger{
		level:  level,
		file:   file,
		mirror: os.Stderr,
		lines:  make(chan string, 4096),
	}

	l.wg.Add(1)
	go l.worker()

	return l, nil
}

func (l *Logger) worker() {
	defer l.wg.Done()
	for line := range l.lines {
		l.file.WriteString(line)
	}
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	message := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("[%s] [%s] %s\n", timestamp, levelString(level), message)

	if level >= LevelWarn && l.mirror != nil {
		fmt.Fprint(l.mirror, line)
	}

	select {
	case l.lines <- line:
	default:
		// Drop rather than block when the buffer is full
	}
}

func (l *Logger) Debug(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(LevelError, format, args...) }

func levelString(level Level) string {
	switch level {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l *Logger) Close() error {
	close(l.lines)
	l.wg.Wait()
	return l.file.Close()
}

var global *Logger

// Init creates the process-wide logger used by the package-level functions.
func Init(level Level, path string) error {
	logger, err := New(level, path)
	if err != nil {
		return err
	}
	global = logger
	return nil
}

// Shutdown flushes and closes the process-wide logger.
func Shutdown() error {
	if global == nil {
		return nil
	}
	err := global.Close()
	global = nil
	return err
}

func Debug(format string, args ...interface{}) {
	if global != nil {
		global.Debug(format, args...)
	}
}

func Info(format string, args ...interface{}) {
	if global != nil {
		global.Info(format, args...)
	}
}

func Warn(format string, args ...interface{}) {
	if global != nil {
		global.Warn(format, args...)
	}
}

func Error(format string, args ...interface{}) {
	if global != nil {
		global.Error(format, args...)
	}
}
