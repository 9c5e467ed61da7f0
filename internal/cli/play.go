package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/fourinarow/internal/api/response"
	"github.com/mcoot/fourinarow/internal/model"
	"github.com/mcoot/fourinarow/internal/protocol"
)

// PlayMode selects how play finds an opponent
type PlayMode int

const (
	PlayQueue PlayMode = iota
	PlayBot
	PlayCreateRoom
	PlayJoinRoom
)

// PlayOptions configures a terminal game
type PlayOptions struct {
	Name     model.PlayerID
	Mode     PlayMode
	RoomCode string
	// Reconnects is how many times a dropped connection is resumed
	Reconnects int
}

const reconnectDelay = time.Second

func newPlayCmd() *cobra.Command {
	var (
		name       string
		bot        bool
		createRoom bool
		joinRoom   string
		reconnects int
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a live game in the terminal",
		Long: `Connect to the server and play a game.

By default you join public matchmaking. If nobody else turns up you are
paired with a bot after the server's matchmaking timeout.

While playing:
  0-6          drop a disc in that column
  /say <text>  chat with your opponent
  /resign      concede the game
  /quit        leave`,
		RunE: func(cmd *cobra.Command, args []string) error {
			player, err := cfg.playerName(name)
			if err != nil {
				return err
			}

			opts := PlayOptions{Name: model.PlayerID(player), Reconnects: reconnects}
			switch {
			case bot:
				opts.Mode = PlayBot
			case createRoom:
				opts.Mode = PlayCreateRoom
			case joinRoom != "":
				opts.Mode = PlayJoinRoom
				opts.RoomCode = joinRoom
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return Play(ctx, cfg, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Player name (env: "+EnvPlayer+")")
	cmd.Flags().BoolVar(&bot, "bot", false, "Play against a bot straight away")
	cmd.Flags().BoolVar(&createRoom, "create-room", false, "Create a private room and wait for a friend")
	cmd.Flags().StringVar(&joinRoom, "join-room", "", "Join a friend's private room by code")
	cmd.Flags().IntVar(&reconnects, "reconnects", 3, "Times to resume a dropped connection")
	cmd.MarkFlagsMutuallyExclusive("bot", "create-room", "join-room")

	return cmd
}

// playSession is the client side of one game
type playSession struct {
	cfg  *Config
	opts PlayOptions
	out  *Output
	w    io.Writer
	conn *websocket.Conn

	sessionID model.SessionID
	side      model.Side
	opponent  model.PlayerID
	token     string
	board     *model.Board
	turn      model.Side
}

// Play runs a game until it ends, the player quits or ctx is cancelled.
// Lines read from in are moves or commands.
func Play(ctx context.Context, c *Config, opts PlayOptions, in io.Reader, w io.Writer) error {
	if err := protocol.ValidateName(opts.Name); err != nil {
		return err
	}

	p := &playSession{cfg: c, opts: opts, out: NewOutput("text", w), w: w}
	if err := p.dial(ctx); err != nil {
		return err
	}
	defer p.close()

	if err := p.start(); err != nil {
		return err
	}

	lines := make(chan string)
	go scanLines(in, lines)

	reconnects := opts.Reconnects
	for {
		msgs, errc, stop := p.readLoop()
		err := p.run(ctx, lines, msgs, errc)
		close(stop)

		var dropped *droppedError
		if !errors.As(err, &dropped) {
			return err
		}
		if p.sessionID == "" || reconnects <= 0 {
			return dropped.err
		}
		reconnects--

		fmt.Fprintln(w, "Connection lost, reconnecting...")
		if err := p.resume(ctx); err != nil {
			return err
		}
	}
}

type droppedError struct{ err error }

func (e *droppedError) Error() string { return "connection lost: " + e.err.Error() }

func (p *playSession) dial(ctx context.Context) error {
	url, err := p.cfg.WebSocketURL()
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", url, err)
	}
	p.conn = conn
	return nil
}

func (p *playSession) close() {
	_ = p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = p.conn.Close()
}

func (p *playSession) start() error {
	if err := p.send(protocol.TypeJoinIdentity, protocol.JoinIdentity{Name: p.opts.Name}); err != nil {
		return err
	}
	switch p.opts.Mode {
	case PlayBot:
		return p.send(protocol.TypeQueueJoinAutomated, protocol.QueueJoinAutomated{Name: p.opts.Name})
	case PlayCreateRoom:
		return p.send(protocol.TypeRoomCreate, protocol.RoomCreate{Name: p.opts.Name})
	case PlayJoinRoom:
		return p.send(protocol.TypeRoomJoin, protocol.RoomJoin{Name: p.opts.Name, Code: p.opts.RoomCode})
	default:
		return p.send(protocol.TypeQueueJoin, protocol.QueueJoin{Name: p.opts.Name})
	}
}

// resume redials with backoff and presents the reconnect ticket
func (p *playSession) resume(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(reconnectDelay):
	}
	_ = p.conn.Close()
	if err := p.dial(ctx); err != nil {
		return err
	}
	return p.send(protocol.TypeReconnect, protocol.Reconnect{
		SessionID: p.sessionID,
		Name:      p.opts.Name,
		Token:     p.token,
	})
}

func (p *playSession) send(msgType string, payload any) error {
	msg, err := protocol.Encode(msgType, payload)
	if err != nil {
		return err
	}
	return p.conn.WriteJSON(msg)
}

// readLoop pumps inbound frames until the connection fails or stop is closed
func (p *playSession) readLoop() (<-chan protocol.Message, <-chan error, chan struct{}) {
	msgs := make(chan protocol.Message)
	errc := make(chan error, 1)
	stop := make(chan struct{})
	conn := p.conn

	go func() {
		for {
			var msg protocol.Message
			if err := conn.ReadJSON(&msg); err != nil {
				errc <- err
				return
			}
			select {
			case msgs <- msg:
			case <-stop:
				return
			}
		}
	}()
	return msgs, errc, stop
}

func (p *playSession) run(ctx context.Context, lines <-chan string, msgs <-chan protocol.Message, errc <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			quit, err := p.handleLine(line)
			if err != nil || quit {
				return err
			}
		case msg := <-msgs:
			done, err := p.handleMessage(msg)
			if err != nil || done {
				return err
			}
		case err := <-errc:
			return &droppedError{err: err}
		}
	}
}

func (p *playSession) handleLine(line string) (bool, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false, nil
	case line == "/quit" || line == "q":
		fmt.Fprintln(p.w, "Bye.")
		return true, nil
	case line == "/resign":
		if p.sessionID == "" {
			fmt.Fprintln(p.w, "Not in a game yet.")
			return false, nil
		}
		return false, p.send(protocol.TypeResign, protocol.Resign{SessionID: p.sessionID})
	case strings.HasPrefix(line, "/say "):
		if p.sessionID == "" {
			fmt.Fprintln(p.w, "Not in a game yet.")
			return false, nil
		}
		return false, p.send(protocol.TypeSendChat, protocol.SendChat{
			SessionID: p.sessionID,
			Name:      p.opts.Name,
			Text:      strings.TrimPrefix(line, "/say "),
		})
	}

	col, err := strconv.Atoi(line)
	if err != nil {
		fmt.Fprintf(p.w, "Enter a column 0-%d, /say <text>, /resign or /quit\n", model.BoardCols-1)
		return false, nil
	}
	if p.sessionID == "" {
		fmt.Fprintln(p.w, "Not in a game yet.")
		return false, nil
	}
	return false, p.send(protocol.TypeSubmitMove, protocol.SubmitMove{SessionID: p.sessionID, Column: col})
}

// handleMessage reacts to a server push. It reports true once the game is over.
func (p *playSession) handleMessage(msg protocol.Message) (bool, error) {
	switch msg.Type {
	case protocol.TypeIdentityJoined:
		if p.cfg.Verbose {
			fmt.Fprintf(p.w, "Joined as %s\n", p.opts.Name)
		}

	case protocol.TypeQueueJoined:
		var e protocol.QueueJoined
		if err := msg.Unmarshal(&e); err != nil {
			return false, err
		}
		fmt.Fprintf(p.w, "Waiting for an opponent (position %d)...\n", e.Position)

	case protocol.TypeRoomCreated:
		var e protocol.RoomCreated
		if err := msg.Unmarshal(&e); err != nil {
			return false, err
		}
		fmt.Fprintf(p.w, "Room code: %s\n", e.Code)
		fmt.Fprintf(p.w, "Share it, or show the QR code at %s/api/v1/rooms/%s/qr.png\n",
			strings.TrimSuffix(p.cfg.ServerURL, "/"), e.Code)

	case protocol.TypeSessionStarted:
		var e protocol.SessionStarted
		if err := msg.Unmarshal(&e); err != nil {
			return false, err
		}
		p.sessionID = e.SessionID
		p.side = e.YourSide
		p.opponent = e.Opponent
		p.token = e.ReconnectToken
		p.board = model.NewBoard()
		p.turn = model.SideA

		kind := ""
		if e.OpponentAutomated {
			kind = " (bot)"
		}
		fmt.Fprintf(p.w, "Game on! You are %s against %s%s.\n", p.side, p.opponent, kind)
		p.render()

	case protocol.TypeSessionState:
		var e protocol.SessionState
		if err := msg.Unmarshal(&e); err != nil {
			return false, err
		}
		p.sessionID = e.SessionID
		p.side = e.YourSide
		p.opponent = e.Opponent
		p.board = e.Board
		p.turn = e.Turn
		fmt.Fprintln(p.w, "Resumed.")
		p.render()

	case protocol.TypeBoardUpdated:
		var e protocol.BoardUpdated
		if err := msg.Unmarshal(&e); err != nil {
			return false, err
		}
		p.board = e.Board
		p.turn = e.Turn
		if !e.IsOver {
			p.render()
		}

	case protocol.TypeSessionEnded:
		var e protocol.SessionEnded
		if err := msg.Unmarshal(&e); err != nil {
			return false, err
		}
		p.board = e.Board
		if p.board != nil {
			p.out.printBoardHighlight(response.BoardFromModel(p.board).Cells, e.WinningCells)
		}
		fmt.Fprintln(p.w, p.result(e))
		return true, nil

	case protocol.TypeChatMessage:
		var e protocol.ChatMessage
		if err := msg.Unmarshal(&e); err != nil {
			return false, err
		}
		if e.From != p.opts.Name {
			fmt.Fprintf(p.w, "<%s> %s\n", e.From, e.Text)
		}

	case protocol.TypeMoveRejected, protocol.TypeRoomError, protocol.TypeError:
		var e protocol.Rejection
		if err := msg.Unmarshal(&e); err != nil {
			return false, err
		}
		// Before a game starts there is nothing to retry
		if p.sessionID == "" && msg.Type != protocol.TypeMoveRejected {
			return false, fmt.Errorf("%s (%s)", e.Message, e.Reason)
		}
		fmt.Fprintf(p.w, "Rejected: %s\n", e.Message)

	default:
		if p.cfg.Verbose {
			fmt.Fprintf(p.w, "Ignoring %s message\n", msg.Type)
		}
	}
	return false, nil
}

func (p *playSession) render() {
	if p.board == nil {
		return
	}
	p.out.printBoard(response.BoardFromModel(p.board).Cells)
	if p.turn == p.side {
		fmt.Fprintf(p.w, "Your move (0-%d):\n", model.BoardCols-1)
	} else {
		fmt.Fprintf(p.w, "Waiting for %s...\n", p.opponent)
	}
}

func (p *playSession) result(e protocol.SessionEnded) string {
	switch {
	case e.Winner == nil:
		return "Draw!"
	case *e.Winner == p.opts.Name:
		return fmt.Sprintf("You win! (%s)", describeReason(e.Reason))
	case e.Reason == model.EndReasonForfeit:
		return fmt.Sprintf("You resigned. %s wins.", *e.Winner)
	default:
		return fmt.Sprintf("%s wins. (%s)", *e.Winner, describeReason(e.Reason))
	}
}

func describeReason(r model.EndReason) string {
	switch r {
	case model.EndReasonForfeit:
		return "forfeit"
	case model.EndReasonOpponentDisconnected:
		return "opponent disconnected"
	default:
		return "four in a row, " + string(r)
	}
}

func scanLines(in io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}
