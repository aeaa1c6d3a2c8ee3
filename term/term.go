package term

import (
	"github.com/pterm/pterm"

	"github.com/gusrub/geary/db"
)

type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

var lvl = LevelInfo

func SetLevel(level Level) {
	lvl = level
}

func Debug(a ...interface{}) {
	if lvl > LevelDebug {
		return
	}
	pterm.FgLightCyan.Println(a...)
}

func Debugf(format string, a ...interface{}) {
	if lvl > LevelDebug {
		return
	}
	pterm.FgLightCyan.Printfln(format, a...)
}

func Info(a ...interface{}) {
	if lvl > LevelInfo {
		return
	}
	pterm.FgLightGreen.Println(a...)
}

func Infof(format string, a ...interface{}) {
	if lvl > LevelInfo {
		return
	}
	pterm.FgLightGreen.Printfln(format, a...)
}

func Warn(a ...interface{}) {
	if lvl > LevelWarn {
		return
	}
	pterm.FgYellow.Println(a...)
}

func Warnf(format string, a ...interface{}) {
	if lvl > LevelWarn {
		return
	}
	pterm.FgYellow.Printfln(format, a...)
}

func Error(a ...interface{}) {
	pterm.FgLightRed.Println(a...)
}

func Errorf(format string, a ...interface{}) {
	pterm.FgLightRed.Printfln(format, a...)
}

// Progress is a db.ProgressMonitor rendering a pterm progress bar.
type Progress struct {
	title string
	pbar  *pterm.ProgressbarPrinter
}

var _ db.ProgressMonitor = &Progress{}

func NewProgress(title string) *Progress {
	return &Progress{title: title}
}

func (p *Progress) Start(total int64) {
	if total <= 0 {
		return
	}
	p.pbar, _ = pterm.DefaultProgressbar.WithTitle(p.title).WithTotal(int(total)).Start()
}

func (p *Progress) Advance(n int64) {
	if p.pbar == nil {
		return
	}
	p.pbar.Add(int(n))
}

func (p *Progress) Finish() {
	if p.pbar == nil {
		return
	}
	_, _ = p.pbar.Stop()
	p.pbar = nil
}
