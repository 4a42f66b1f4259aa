package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/bz888/seally/internal/api/server/client"
	"github.com/bz888/seally/internal/chat"
	"github.com/bz888/seally/internal/logger"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const (
	inputTitle   = "Type your message... (Enter to send, Alt+Enter for a new line)"
	sendingTitle = "Sending..."
	helpPage     = "helpModal"
)

const helpText = `Here are some commands you can use:
/help: Display this help message
/debug: Toggle the debug console
/bye: Exit the application`

type command int

const (
	cmdNone command = iota
	cmdHelp
	cmdDebug
	cmdQuit
)

// UI is the terminal chat front-end. All widget access happens on the tview
// event loop; session callbacks are queued onto it.
type UI struct {
	app          *tview.Application
	pages        *tview.Pages
	mainFlex     *tview.Flex
	textView     *tview.TextView
	textArea     *tview.TextArea
	debugConsole *tview.TextView
	session      *chat.Session
	debugShown   bool
	logger       *logger.Logger
}

// New builds the UI around a fresh chat session that talks through transport.
func New(transport chat.Transport, dev bool) *UI {
	u := &UI{
		app:    tview.NewApplication(),
		logger: logger.NewLogger("views"),
	}
	u.app.EnablePaste(true)
	u.app.EnableMouse(true)

	u.debugConsole = u.initDebugConsole()
	u.textView = u.initChatViewer()
	u.textArea = initChatInput()

	subFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(u.textView, 0, 1, false).
		AddItem(u.textArea, 6, 0, true)
	u.mainFlex = tview.NewFlex().
		AddItem(subFlex, 0, 2, true)
	u.pages = tview.NewPages().
		AddPage("main", u.mainFlex, true, true)

	u.session = chat.NewSession(transport, chat.WithOnChange(u.onSessionChange))
	u.textView.SetText(renderConversation(u.session.Messages()))

	if dev {
		u.showDebugConsole(true)
	}
	u.setInputCapture()
	return u
}

// DebugConsole is the view dev logging is rendered into.
func (u *UI) DebugConsole() *tview.TextView {
	return u.debugConsole
}

func (u *UI) initChatViewer() *tview.TextView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetRegions(true).
		SetWordWrap(true)

	textView.SetTitle("Welcome to Seally's Chat!").SetBorder(true)
	textView.SetScrollable(true)
	return textView
}

func initChatInput() *tview.TextArea {
	textArea := tview.NewTextArea()
	textArea.SetTitle(inputTitle).SetBorder(true)
	return textArea
}

func (u *UI) initDebugConsole() *tview.TextView {
	console := tview.NewTextView().
		SetChangedFunc(func() {
			u.app.Draw()
		}).
		SetDynamicColors(true).
		SetRegions(true).
		SetWordWrap(true)

	console.SetTitle("Debugger").SetBorder(true)
	console.ScrollToEnd()
	return console
}

// Run blocks until the user quits. Log output goes back to stderr afterwards,
// a stopped application no longer drains its draw queue.
func (u *UI) Run() error {
	err := u.app.SetRoot(u.pages, true).SetFocus(u.textArea).Run()
	logger.SetView(nil)
	return err
}

func (u *UI) Stop() {
	u.app.Stop()
}

func (u *UI) setInputCapture() {
	u.textView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEnter {
			u.app.SetFocus(u.textArea)
		}
		return event
	})

	u.textArea.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyESC:
			u.app.SetFocus(u.textView)
			return nil
		case isNewlineKey(event):
			// the text area inserts a line break for a bare Enter
			return tcell.NewEventKey(tcell.KeyEnter, '\n', tcell.ModNone)
		case isSubmitKey(event):
			u.submit()
			return nil
		}
		return event
	})
}

func (u *UI) submit() {
	content := u.textArea.GetText()
	if strings.TrimSpace(content) == "" {
		return
	}

	switch parseCommand(content) {
	case cmdHelp:
		u.textArea.SetText("", true)
		u.showHelp()
		return
	case cmdDebug:
		u.textArea.SetText("", true)
		u.showDebugConsole(!u.debugShown)
		return
	case cmdQuit:
		u.logger.Info("Bye bye")
		u.app.Stop()
		return
	}

	if u.session.Sending() {
		return
	}
	u.textArea.SetText("", true)

	go func() {
		err := u.session.Send(context.Background(), content)
		if err != nil && !errors.Is(err, chat.ErrBusy) {
			u.logger.Error("Error sending message:", err)
		}
	}()
}

// onSessionChange runs on the sending goroutine.
func (u *UI) onSessionChange(messages []chat.Message, state chat.State) {
	text := renderConversation(messages)
	u.app.QueueUpdateDraw(func() {
		u.textView.SetText(text)
		u.textView.ScrollToEnd()
		u.setSending(state != chat.Idle)
	})
}

func (u *UI) setSending(sending bool) {
	u.textArea.SetDisabled(sending)
	if sending {
		u.textArea.SetTitle(sendingTitle)
		return
	}
	u.textArea.SetTitle(inputTitle)
	if !u.pages.HasPage(helpPage) {
		u.app.SetFocus(u.textArea)
	}
}

func (u *UI) showHelp() {
	modal := tview.NewModal().
		SetText(helpText).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(int, string) {
			u.pages.RemovePage(helpPage)
			u.app.SetFocus(u.textArea)
		})
	u.pages.AddPage(helpPage, modal, true, true)
	u.app.SetFocus(modal)
}

func (u *UI) showDebugConsole(show bool) {
	if show == u.debugShown {
		return
	}
	u.debugShown = show
	if show {
		u.mainFlex.AddItem(u.debugConsole, 0, 1, false)
		logger.SetView(u.debugConsole)
		logger.SetDev(true)
		u.logger.Info("Debug console enabled")
		return
	}
	logger.SetDev(false)
	logger.SetView(nil)
	u.mainFlex.RemoveItem(u.debugConsole)
}

func parseCommand(content string) command {
	switch strings.TrimSpace(content) {
	case "/help":
		return cmdHelp
	case "/debug":
		return cmdDebug
	case "/bye", "/quit", "/exit":
		return cmdQuit
	default:
		return cmdNone
	}
}

func isSubmitKey(event *tcell.EventKey) bool {
	return event.Key() == tcell.KeyEnter && event.Modifiers()&(tcell.ModShift|tcell.ModAlt) == 0
}

func isNewlineKey(event *tcell.EventKey) bool {
	return event.Key() == tcell.KeyEnter && event.Modifiers()&(tcell.ModShift|tcell.ModAlt) != 0
}

// renderConversation formats messages for a dynamic-color TextView.
func renderConversation(messages []chat.Message) string {
	var sb strings.Builder
	for i, msg := range messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		if msg.Role == client.RoleUser {
			sb.WriteString("[red::]You:[-]\n")
		} else {
			sb.WriteString("[green::]Seally:[-]\n")
		}
		sb.WriteString(tview.Escape(msg.Content))
		sb.WriteString("\n")
	}
	return sb.String()
}
