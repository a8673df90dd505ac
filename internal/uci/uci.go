// Package uci speaks the Universal Chess Interface on top of the engine.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/UoLeevi/uochess/internal/board"
	"github.com/UoLeevi/uochess/internal/book"
	"github.com/UoLeevi/uochess/internal/engine"
	"github.com/UoLeevi/uochess/internal/logx"
	"github.com/UoLeevi/uochess/internal/tablebase"
)

const (
	engineName   = "uochess"
	engineAuthor = "the uochess authors"
)

// ErrOption is returned for an unknown option or a value it cannot take.
var ErrOption = errors.New("uci: bad option")

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	log      zerolog.Logger
	baseLog  zerolog.Logger // the logger given to New
	in       io.Reader
	out      io.Writer
	outMu    sync.Mutex
	position *board.Position
	book     *book.Book
	logFile  *os.File

	// Search state
	searchDone chan struct{}
}

// New creates a protocol handler reading commands from in and writing
// replies to out.
func New(eng *engine.Engine, log zerolog.Logger, in io.Reader, out io.Writer) *UCI {
	u := &UCI{
		engine:   eng,
		log:      log,
		baseLog:  log,
		in:       in,
		out:      out,
		position: board.NewPosition(),
	}
	eng.OnInfo = u.sendInfo
	eng.SetPosition(u.position)
	return u
}

// Run reads commands until "quit" or the end of input.
func (u *UCI) Run() error {
	defer u.shutdown()

	scanner := bufio.NewScanner(u.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !u.Execute(line) {
			return nil
		}
	}
	return scanner.Err()
}

// Execute handles one command line. It returns false after "quit".
func (u *UCI) Execute(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd, args := parts[0], parts[1:]
	u.log.Debug().Str("cmd", line).Msg("<")

	var err error
	switch cmd {
	case "uci":
		u.handleUCI()
	case "isready":
		u.println("readyok")
	case "ucinewgame":
		u.handleNewGame()
	case "position":
		err = u.handlePosition(args)
	case "go":
		err = u.handleGo(args)
	case "stop":
		u.handleStop()
	case "ponderhit":
		u.engine.PonderHit()
	case "quit":
		u.handleStop()
		return false
	case "setoption":
		err = u.handleSetOption(args)
	case "debug":
	// Debug commands
	case "d":
		u.print(u.position.String())
	case "eval":
		u.handleEval()
	case "perft":
		err = u.handlePerft(args)
	case "bench":
		err = u.handleBench(args)
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		u.log.Warn().Err(err).Str("cmd", cmd).Msg("command failed")
		u.println("info string " + err.Error())
	}
	return true
}

func (u *UCI) print(s string) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	io.WriteString(u.out, s)
}

func (u *UCI) println(s string) {
	u.print(s + "\n")
}

func (u *UCI) printf(format string, args ...any) {
	u.print(fmt.Sprintf(format, args...))
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	u.println("id name " + engineName)
	u.println("id author " + engineAuthor)
	u.println("")
	for _, o := range options {
		u.println(o.String())
	}
	u.println("uciok")
}

// handleNewGame resets the engine for a new game.
func (u *UCI) handleNewGame() {
	u.handleStop()
	u.engine.NewGame()
	u.position = board.NewPosition()
	u.engine.SetPosition(u.position)
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves <move1> <move2> ...
func (u *UCI) handlePosition(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("position: missing startpos or fen")
	}
	u.handleStop()

	movesIdx := lo.IndexOf(args, "moves")
	setup := args
	var moves []string
	if movesIdx >= 0 {
		setup, moves = args[:movesIdx], args[movesIdx+1:]
	}

	var pos *board.Position
	switch setup[0] {
	case "startpos":
		pos = board.NewPosition()
	case "fen":
		var err error
		pos, err = board.ParseFEN(strings.Join(setup[1:], " "))
		if err != nil {
			return fmt.Errorf("position: %w", err)
		}
	default:
		return fmt.Errorf("position: unknown setup %q", setup[0])
	}

	for _, s := range moves {
		m, err := pos.ParseMove(s)
		if err != nil {
			return fmt.Errorf("position: %w", err)
		}
		pos.MakeMove(m)
	}

	u.position = pos
	u.engine.SetPosition(pos)
	return nil
}

// goKeywords ends a searchmoves list.
var goKeywords = []string{
	"searchmoves", "ponder", "wtime", "btime", "winc", "binc",
	"movestogo", "depth", "nodes", "mate", "movetime", "infinite",
}

// parseGo converts "go" arguments to search limits.
func parseGo(pos *board.Position, args []string) (engine.Limits, error) {
	var limits engine.Limits

	next := func(i int) (int, error) {
		if i+1 >= len(args) {
			return 0, fmt.Errorf("go: %s needs a value", args[i])
		}
		n, err := strconv.Atoi(args[i+1])
		if err != nil {
			return 0, fmt.Errorf("go: %s: %w", args[i], err)
		}
		return n, nil
	}
	ms := func(n int) time.Duration {
		return time.Duration(max(n, 0)) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "infinite":
			limits.Infinite = true
		case "ponder":
			limits.Ponder = true
		case "searchmoves":
			for i+1 < len(args) && !lo.Contains(goKeywords, args[i+1]) {
				m, err := pos.ParseMove(args[i+1])
				if err != nil {
					return limits, fmt.Errorf("go: searchmoves: %w", err)
				}
				limits.SearchMoves = append(limits.SearchMoves, m)
				i++
			}
		case "wtime", "btime", "winc", "binc", "movestogo", "depth", "nodes", "mate", "movetime":
			n, err := next(i)
			if err != nil {
				return limits, err
			}
			switch args[i] {
			case "wtime":
				limits.Time[board.White] = ms(n)
			case "btime":
				limits.Time[board.Black] = ms(n)
			case "winc":
				limits.Inc[board.White] = ms(n)
			case "binc":
				limits.Inc[board.Black] = ms(n)
			case "movestogo":
				limits.MovesToGo = n
			case "depth":
				limits.Depth = n
			case "nodes":
				limits.Nodes = uint64(max(n, 0))
			case "mate":
				// A mate in n moves is found within 2n-1 plies.
				limits.Depth = max(2*n-1, 1)
			case "movetime":
				limits.MoveTime = ms(n)
			}
			i++
		default:
			return limits, fmt.Errorf("go: unknown parameter %q", args[i])
		}
	}
	return limits, nil
}

// handleGo starts a search with the given parameters. The bestmove line
// is printed when the search ends.
func (u *UCI) handleGo(args []string) error {
	u.handleStop()

	limits, err := parseGo(u.position, args)
	if err != nil {
		return err
	}
	if err := u.engine.Go(limits); err != nil {
		return err
	}

	done := make(chan struct{})
	u.searchDone = done
	go func() {
		defer close(done)
		res := u.engine.Wait()
		line := "bestmove " + res.BestMoveUCI()
		if p := res.PonderUCI(); p != "" {
			line += " ponder " + p
		}
		if res.Source != engine.SourceSearch {
			u.printf("info string %s move\n", res.Source)
		}
		u.println(line)
	}()
	return nil
}

// handleStop stops the current search and waits for its bestmove.
func (u *UCI) handleStop() {
	if u.searchDone == nil {
		return
	}
	u.engine.Stop()
	<-u.searchDone
	u.searchDone = nil
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(info engine.SearchInfo) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "info depth %d seldepth %d score %s nodes %d nps %d hashfull %d time %d",
		info.Depth, info.SelDepth, engine.UCIScore(info.Score),
		info.Nodes, info.Nps, info.HashFull, info.Time.Milliseconds())
	if len(info.PV) > 0 {
		sb.WriteString(" pv ")
		sb.WriteString(board.FormatLine(info.Color, info.PV))
	}
	sb.WriteByte('\n')
	u.print(sb.String())
}

// handleEval prints the static evaluation of the current position, and
// the tablebase verdict when one is available.
func (u *UCI) handleEval() {
	score := u.engine.Evaluate()
	u.printf("Evaluation: %s (%s to move)\n", engine.ScoreToString(score), u.position.SideToMove())
	if res, ok := u.engine.TablebaseWDL(context.Background()); ok {
		u.printf("Tablebase: %s dtz %d\n", res.WDL, res.DTZ)
	}
}

// handlePerft runs a perft test and prints the per-move split.
func (u *UCI) handlePerft(args []string) error {
	depth := 5
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("perft: bad depth %q", args[0])
		}
		depth = n
	}

	start := time.Now()
	divide := board.PerftDivide(u.position.Clone(), depth)
	elapsed := time.Since(start)

	for _, d := range divide {
		u.printf("%s: %d\n", d.Move, d.Nodes)
	}
	nodes := lo.SumBy(divide, func(d board.DivideEntry) uint64 { return d.Nodes })
	u.printf("\nNodes: %d\nTime: %v\n", nodes, elapsed.Round(time.Millisecond))
	if elapsed > 0 {
		u.printf("NPS: %.0f\n", float64(nodes)/elapsed.Seconds())
	}
	return nil
}

// shutdown stops any search and releases the resources options opened.
func (u *UCI) shutdown() {
	u.handleStop()
	if u.book != nil {
		u.engine.SetBook(nil)
		if err := u.book.Close(); err != nil {
			u.log.Warn().Err(err).Msg("closing book")
		}
		u.book = nil
	}
	if u.logFile != nil {
		u.setLogger(u.baseLog)
		u.logFile.Close()
		u.logFile = nil
	}
}

// openLog redirects the protocol and engine logs to a file at debug
// level, or back to the original logger when path is empty.
func (u *UCI) openLog(path string) error {
	if u.logFile != nil {
		u.setLogger(u.baseLog)
		u.logFile.Close()
		u.logFile = nil
	}
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("%w: Debug Log File: %v", ErrOption, err)
	}
	u.logFile = f
	u.setLogger(logx.New(f, min(u.baseLog.GetLevel(), zerolog.DebugLevel)))
	return nil
}

func (u *UCI) setLogger(log zerolog.Logger) {
	u.log = log
	u.engine.SetLogger(log)
}

// openBook opens the book database at dir, replacing any open one.
func (u *UCI) openBook(dir string) error {
	if u.book != nil {
		u.engine.SetBook(nil)
		if err := u.book.Close(); err != nil {
			u.log.Warn().Err(err).Msg("closing book")
		}
		u.book = nil
	}
	if dir == "" {
		return nil
	}
	b, err := book.Open(dir, u.log)
	if err != nil {
		return fmt.Errorf("%w: BookFile: %v", ErrOption, err)
	}
	u.book = b
	u.engine.SetBook(b)
	n, _ := b.Len()
	u.log.Info().Str("dir", dir).Int("entries", n).Msg("book opened")
	return nil
}

// tablebaseFor maps a SyzygyPath value to a prober. Only the online
// tablebase is supported; "lichess" selects its default endpoint.
func tablebaseFor(value string) (tablebase.Prober, error) {
	switch {
	case value == "":
		return tablebase.NoopProber{}, nil
	case strings.EqualFold(value, "lichess"):
		return tablebase.NewCachedLichessProber(tablebase.DefaultLichessURL), nil
	case strings.HasPrefix(value, "http://"), strings.HasPrefix(value, "https://"):
		return tablebase.NewCachedLichessProber(strings.TrimRight(value, "/")), nil
	}
	return tablebase.NoopProber{}, fmt.Errorf("%w: SyzygyPath: local tablebases are not supported, use \"lichess\" or a URL", ErrOption)
}
