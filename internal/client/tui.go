package client

import (
	"fmt"
	"strings"
	"time"

	"lanchat/pkg/chat"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	maxHistory  = 500
	dialTimeout = 5 * time.Second
)

type Options struct {
	Addr            string
	Username        string
	MaxPayloadBytes int
}

// connectedMsg is delivered once the dial issued after the username prompt
// completes.
type connectedMsg struct {
	client *TCPClient
	err    error
}

type Model struct {
	opts               Options
	isEnteringUsername bool
	messages           []string
	input              textinput.Model
	username           string
	client             *TCPClient
	connected          bool
	status             string
	msgChan            chan tea.Msg
}

func NewModel(opts Options) Model {
	if opts.MaxPayloadBytes <= 0 {
		opts.MaxPayloadBytes = 64 * 1024
	}

	ti := textinput.New()
	ti.Placeholder = "Your name (blank for " + chat.DefaultUsername + ")"
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50

	m := Model{
		opts:               opts,
		input:              ti,
		isEnteringUsername: true,
		msgChan:            make(chan tea.Msg, 16),
	}
	if opts.Username != "" {
		m.username = opts.Username
		m.isEnteringUsername = false
		m.input.Placeholder = "Type your message here"
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.isEnteringUsername {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, m.connect())
}

func (m Model) connect() tea.Cmd {
	addr, ch := m.opts.Addr, m.msgChan
	return func() tea.Msg {
		c, err := Dial(addr, dialTimeout, ch)
		return connectedMsg{client: c, err: err}
	}
}

func (m Model) waitForMessage() tea.Cmd {
	return func() tea.Msg {
		return <-m.msgChan
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.client != nil {
				_ = m.client.Close()
			}
			return m, tea.Quit
		case tea.KeyEnter:
			text := m.input.Value()
			m.input.Reset()

			if m.isEnteringUsername {
				m.username = chat.NormalizeUsername(strings.TrimSpace(text))
				m.isEnteringUsername = false
				m.input.Placeholder = "Type your message here"
				m.status = "Connecting to " + m.opts.Addr + "..."
				return m, m.connect()
			}

			if strings.TrimSpace(text) == "" {
				return m, nil
			}
			if !m.connected {
				m.status = "Not connected"
				return m, nil
			}

			// The relay never echoes a frame to its sender.
			sent, err := m.client.Send(m.username, text)
			if err != nil {
				m.status = err.Error()
				return m, nil
			}
			m.appendLine(formatMessage(sent))
			return m, nil
		default:
			m.input, cmd = m.input.Update(msg)
		}

	case connectedMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.client = msg.client
		m.connected = true
		m.status = "Connected to " + m.opts.Addr
		m.client.Start(m.opts.MaxPayloadBytes)
		return m, m.waitForMessage()

	case messageReceivedMsg:
		m.appendLine(formatMessage(chat.Message(msg)))
		return m, m.waitForMessage()

	case disconnectedMsg:
		m.connected = false
		m.status = "Disconnected: " + msg.err.Error()
		return m, nil

	default:
		m.input, cmd = m.input.Update(msg)
	}

	return m, cmd
}

func (m *Model) appendLine(line string) {
	m.messages = append(m.messages, line)
	if len(m.messages) > maxHistory {
		m.messages = m.messages[len(m.messages)-maxHistory:]
	}
}

func formatMessage(msg chat.Message) string {
	return fmt.Sprintf("[%s] %s: %s", msg.Timestamp, msg.Username, msg.Message)
}

func (m Model) View() string {
	if m.isEnteringUsername {
		return fmt.Sprintf("Enter your username: %s\n", m.input.View())
	}
	var b strings.Builder

	for _, msg := range m.messages {
		b.WriteString(msg + "\n")
	}

	b.WriteString("\n" + m.input.View())
	if m.status != "" {
		b.WriteString("\n" + m.status)
	}
	b.WriteString("\n[Enter] to send, [Esc] to quit")
	return b.String()
}
