package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rivo/tview"
)

type Types int

const (
	Info Types = iota
	Error
	Warn
	Fatal
)

type Message struct {
	Timestamp time.Time
	Tag       string
	Message   string
	LogTypes  Types
}

// manager owns the shared sinks. Loggers created with NewLogger are cheap
// views onto it that only differ by tag.
type manager struct {
	mu      sync.RWMutex
	view    *tview.TextView
	dev     bool
	out     *log.Logger
	logFile *os.File
	logChan chan Message
	done    chan struct{}
	closed  bool
}

type Logger struct {
	tag string
	m   *manager
}

var (
	logManager = newDefaultManager(os.Stderr)
	initOnce   sync.Once
)

// InitLogger sets up the process wide sinks. Loggers created earlier pick up
// the new settings. Only the first call has an effect.
func InitLogger(dev bool, logPath string, view *tview.TextView) error {
	var err error
	initOnce.Do(func() {
		err = logManager.configure(dev, logPath, view)
	})
	return err
}

func newDefaultManager(stderr io.Writer) *manager {
	done := make(chan struct{})
	close(done)
	return &manager{
		out:  log.New(stderr, "", log.LstdFlags),
		done: done,
	}
}

func newManager(dev bool, logPath string, view *tview.TextView, stderr io.Writer) (*manager, error) {
	m := newDefaultManager(stderr)
	return m, m.configure(dev, logPath, view)
}

func (m *manager) configure(dev bool, logPath string, view *tview.TextView) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.view = view
	m.dev = dev
	if logPath == "" {
		return nil
	}

	timestamp := time.Now().Format("20060102_150405")
	fileName := fmt.Sprintf("seally_log_%s.log", timestamp)
	filePath := filepath.Join(logPath, fileName)

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	m.logFile = file
	m.logChan = make(chan Message, 100)
	m.done = make(chan struct{})

	go m.processLogs(m.logFile, m.logChan, m.done)
	return nil
}

func NewLogger(tag string) *Logger {
	return &Logger{tag: tag, m: logManager}
}

// SetView swaps the debug console the dev output is rendered into.
// A nil view sends dev output to stderr.
func SetView(view *tview.TextView) {
	m := logManager
	m.mu.Lock()
	m.view = view
	m.mu.Unlock()
}

// SetDev toggles echoing of log lines to the debug console or stderr.
func SetDev(dev bool) {
	m := logManager
	m.mu.Lock()
	m.dev = dev
	m.mu.Unlock()
}

func (m *manager) processLogs(file *os.File, logChan <-chan Message, done chan<- struct{}) {
	defer close(done)
	for msg := range logChan {
		if _, err := file.WriteString(msg.format()); err != nil {
			m.out.Println("logger: write log file:", err)
		}
	}
}

func (msg Message) format() string {
	timestamp := msg.Timestamp.Format("2006-01-02 15:04:05")
	return fmt.Sprintf("%s [%s] %s: %s\n", timestamp, msg.Tag, msg.LogTypes.toString(), msg.Message)
}

func (l *Logger) log(logTypes Types, v ...interface{}) {
	message := fmt.Sprintln(v...)
	message = message[:len(message)-1]

	m := l.m
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.dev {
		if m.view != nil {
			var format string
			switch logTypes {
			case Info:
				format = "[green]DEBUG (%s): %s[-]\n"
			case Warn:
				format = "[yellow]DEBUG (%s): %s[-]\n"
			default:
				format = "[red]DEBUG (%s): %s[-]\n"
			}
			fmt.Fprintf(m.view, format, l.tag, tview.Escape(message))
		} else {
			m.out.Printf("[%s] %s: %s", l.tag, logTypes.toString(), message)
		}
	}

	if m.logChan != nil && !m.closed {
		m.logChan <- Message{
			Timestamp: time.Now(),
			Tag:       l.tag,
			Message:   message,
			LogTypes:  logTypes,
		}
	}
}

func (l *Logger) Info(v ...interface{}) {
	l.log(Info, v...)
}

func (l *Logger) Error(v ...interface{}) {
	l.log(Error, v...)
}

func (l *Logger) Warn(v ...interface{}) {
	l.log(Warn, v...)
}

func (l *Logger) Fatal(v ...interface{}) {
	l.log(Fatal, v...)
	l.Close()
	os.Exit(1)
}

// Write lets the logger stand in as an io.Writer, e.g. for gin's request log.
func (l *Logger) Write(p []byte) (int, error) {
	msg := string(p)
	for len(msg) > 0 && msg[len(msg)-1] == '\n' {
		msg = msg[:len(msg)-1]
	}
	l.log(Info, msg)
	return len(p), nil
}

// Close drains pending lines into the log file and closes it.
func (l *Logger) Close() {
	m := l.m
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	if m.logChan != nil {
		close(m.logChan)
	}
	m.mu.Unlock()

	<-m.done
	if m.logFile != nil {
		m.logFile.Close()
	}
}

func (t Types) toString() string {
	switch t {
	case Info:
		return "INFO"
	case Error:
		return "ERROR"
	case Warn:
		return "WARN"
	case Fatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}
