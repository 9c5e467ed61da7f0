package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mcoot/fourinarow/internal/api/response"
	"github.com/mcoot/fourinarow/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Health:
		o.printHealth(v)
	case response.GameRecord:
		o.printGameRecord(v)
	case response.PlayerStats:
		o.printPlayerStats(v)
	case response.GameList:
		o.printGameList(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printHealth(h response.Health) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	fmt.Fprintf(o.w, "Active sessions: %d\n", h.ActiveSessions)
	fmt.Fprintf(o.w, "Queued players: %d\n", h.QueueSize)
	fmt.Fprintf(o.w, "Open rooms: %d\n", h.OpenRooms)
	fmt.Fprintf(o.w, "Connected players: %d\n", h.ConnectedPlayers)
}

func (o *Output) printGameRecord(g response.GameRecord) {
	fmt.Fprintf(o.w, "Game: %s\n", g.ID)
	for _, p := range g.Players {
		bot := ""
		if p.IsAutomated {
			bot = " [bot]"
		}
		fmt.Fprintf(o.w, "  %s: %s%s\n", p.Side, p.Name, bot)
	}
	if g.Winner != nil {
		fmt.Fprintf(o.w, "Winner: %s (%s)\n", *g.Winner, g.EndReason)
	} else {
		fmt.Fprintf(o.w, "Result: %s\n", g.EndReason)
	}
	fmt.Fprintf(o.w, "Moves: %d in %s\n", len(g.Moves), fmtDurationMS(g.DurationMS))
	fmt.Fprintln(o.w)
	o.printBoard(g.Board.Cells)
}

func (o *Output) printPlayerStats(s response.PlayerStats) {
	fmt.Fprintf(o.w, "Player: %s\n", s.Player)
	fmt.Fprintf(o.w, "Played: %d (won %d, lost %d, drawn %d)\n", s.GamesPlayed, s.GamesWon, s.GamesLost, s.GamesDrawn)
	fmt.Fprintf(o.w, "Win rate: %.0f%%\n", s.WinRate*100)
	fmt.Fprintf(o.w, "Total moves: %d\n", s.TotalMoves)
	if s.GamesPlayed > 0 {
		fmt.Fprintf(o.w, "Average game: %s\n", fmtDurationMS(s.AverageGameDurationMS))
	}
	if !s.LastPlayedAt.IsZero() {
		fmt.Fprintf(o.w, "Last played: %s\n", s.LastPlayedAt.Format("2006-01-02 15:04"))
	}
}

func (o *Output) printGameList(l response.GameList) {
	if len(l.Games) == 0 {
		fmt.Fprintf(o.w, "No games found for %s\n", l.Player)
		return
	}
	fmt.Fprintf(o.w, "Recent games for %s:\n", l.Player)
	for _, g := range l.Games {
		fmt.Fprintf(o.w, "  %s  %-4s vs %-20s %-22s %2d moves  %s\n",
			g.EndedAt.Format("2006-01-02 15:04"), g.Result, g.Opponent, g.EndReason, g.Moves, g.ID)
	}
}

// printBoard renders cells top row first with column numbers underneath
func (o *Output) printBoard(cells [][]string) {
	o.printBoardHighlight(cells, nil)
}

func (o *Output) printBoardHighlight(cells [][]string, highlight []model.Position) {
	if len(cells) == 0 {
		return
	}
	marked := make(map[model.Position]bool, len(highlight))
	for _, p := range highlight {
		marked[p] = true
	}

	for row, line := range cells {
		var b strings.Builder
		b.WriteString("|")
		for col, cell := range line {
			switch {
			case cell == "":
				b.WriteString(" . ")
			case marked[model.Position{Row: row, Col: col}]:
				fmt.Fprintf(&b, "[%s]", cell)
			default:
				fmt.Fprintf(&b, " %s ", cell)
			}
		}
		b.WriteString("|")
		fmt.Fprintln(o.w, b.String())
	}

	var footer strings.Builder
	footer.WriteString(" ")
	for col := range cells[0] {
		fmt.Fprintf(&footer, " %d ", col)
	}
	fmt.Fprintln(o.w, footer.String())
}

func fmtDurationMS(ms int64) string {
	secs := ms / 1000
	return fmt.Sprintf("%dm%02ds", secs/60, secs%60)
}
