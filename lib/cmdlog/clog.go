// Package cmdlog renders stimulator commands and stage messages to the log.
package cmdlog

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/txbdc/stimjim/lib/stage"
)

func isAscii(s string) bool {
	return !strings.ContainsFunc(s, func(r rune) bool {
		switch {
		case r < 7:
			return true
		case r > 6 && r < 14:
			return false
		case r > 13 && r < 32:
			return true
		case r > 127:
			return true
		}
		return false
	})
}

var (
	CmdStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	ErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	StageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	MsgStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
)

// FormatCommand renders a command as written to the device. Commands holding
// control characters are shown quoted with a hex dump.
func FormatCommand(cmd string) string {
	if isAscii(cmd) {
		return CmdStyle.Render(cmd)
	}
	return fmt.Sprintf("%s (% 2x)", CmdStyle.Render(strconv.Quote(cmd)), []byte(cmd))
}

// Hook returns a function suitable for stimjim.WithCommandHook.
func Hook() func(cmd string, err error) {
	return func(cmd string, err error) {
		if err != nil {
			log.Printf("%s: %s", FormatCommand(cmd), ErrStyle.Render(err.Error()))
			return
		}
		log.Printf("%s", FormatCommand(cmd))
	}
}

// Messages logs every message received on ch until it is closed.
func Messages(ch <-chan stage.Message) {
	for m := range ch {
		log.Printf("%s %s", StageStyle.Render("["+m.Stage+"]"), MsgStyle.Render(m.Text()))
	}
}
