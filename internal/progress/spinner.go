package progress

import (
	"fmt"
	"os"
	"time"

	"github.com/k0kubun/go-ansi"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

var theme = progressbar.Theme{
	Saucer:        "[green]=[reset]",
	SaucerHead:    "[green]>[reset]",
	SaucerPadding: " ",
	BarStart:      "[",
	BarEnd:        "]",
}

// Quiet disables all spinners for the process, regardless of terminal state.
var Quiet bool

// Spinner renders an elapsed-time indicator while a blocking ARM operation
// polls to completion. On non-terminal output it degrades to a no-op so
// piped logs stay clean.
type Spinner struct {
	bar  *progressbar.ProgressBar
	done chan struct{}
}

// NewSpinner starts a spinner described by task. Callers must Stop it.
func NewSpinner(task string) *Spinner {
	s := &Spinner{done: make(chan struct{})}
	if Quiet || !isatty.IsTerminal(os.Stdout.Fd()) {
		return s
	}

	s.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription(task),
		progressbar.OptionSetTheme(theme),
	)

	go s.loop()
	return s
}

func (s *Spinner) loop() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.bar.Add(1)
		}
	}
}

// Stop tears the spinner down and moves the cursor to a fresh line.
func (s *Spinner) Stop() {
	close(s.done)
	if s.bar != nil {
		s.bar.Finish()
		fmt.Fprint(os.Stderr, "\n")
	}
}
