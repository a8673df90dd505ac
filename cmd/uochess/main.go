// Command uochess is a UCI chess engine. Run without arguments it speaks
// UCI on stdin and stdout. The book, perft and bench subcommands are for
// maintenance and testing.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/profile"
	"github.com/rs/zerolog"

	"github.com/UoLeevi/uochess/internal/board"
	"github.com/UoLeevi/uochess/internal/book"
	"github.com/UoLeevi/uochess/internal/engine"
	"github.com/UoLeevi/uochess/internal/logx"
	"github.com/UoLeevi/uochess/internal/storage"
	"github.com/UoLeevi/uochess/internal/uci"
)

var (
	logPath     = flag.String("log", "", "write logs to this file instead of stderr")
	logLevel    = flag.String("level", "info", "log level (debug, info, warn, error)")
	profileMode = flag.String("profile", "", "profile the run: cpu, mem, block, mutex or trace")
	profileDir  = flag.String("profile-dir", ".", "directory for profile output")
	bookDir     = flag.String("book", "", "book database directory (default: the user data directory)")
	threads     = flag.Int("threads", 1, "search threads for book and perft commands")
	hashMB      = flag.Int("hash", engine.DefaultOptions().HashMB, "transposition table size in MB")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: uochess [flags] [command]

commands:
  (none)                      speak UCI on stdin/stdout
  bench [depth]               search a fixed position set
  perft <depth> [fen]         count move paths
  book add <depth> <fen>      search fen and store the result
  book remove <fen>           delete the entry for fen
  book info                   show entry count and metadata
  book export <file.zst>      write the book as a compressed dump
  book import <file.zst>      merge a dump into the book

flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	os.Exit(start())
}

// start runs the command and returns the exit code, so deferred cleanup
// happens before the process exits.
func start() int {
	log, closeLog, err := openLog(*logPath, logx.ParseLevel(*logLevel))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeLog()

	if p := profileOption(*profileMode); p != nil {
		defer profile.Start(p, profile.ProfilePath(*profileDir), profile.Quiet, profile.NoShutdownHook).Stop()
	}

	if err := run(log, flag.Args()); err != nil {
		log.Error().Err(err).Msg("uochess failed")
		return 1
	}
	return 0
}

func openLog(path string, level zerolog.Level) (zerolog.Logger, func(), error) {
	if path == "" {
		return logx.New(os.Stderr, level), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("open log: %w", err)
	}
	return logx.New(f, level), func() { f.Close() }, nil
}

func profileOption(mode string) func(*profile.Profile) {
	switch strings.ToLower(mode) {
	case "cpu":
		return profile.CPUProfile
	case "mem":
		return profile.MemProfile
	case "block":
		return profile.BlockProfile
	case "mutex":
		return profile.MutexProfile
	case "trace":
		return profile.TraceProfile
	}
	return nil
}

func newEngine(log zerolog.Logger) *engine.Engine {
	opts := engine.DefaultOptions()
	opts.Threads = *threads
	opts.HashMB = *hashMB
	return engine.NewEngine(opts, log)
}

func run(log zerolog.Logger, args []string) error {
	if len(args) == 0 {
		eng := newEngine(log)
		defer eng.Close()
		log.Info().Int("threads", eng.Options().Threads).Int("hash", eng.Options().HashMB).Msg("uci loop started")
		return uci.New(eng, log, os.Stdin, os.Stdout).Run()
	}

	switch args[0] {
	case "bench":
		eng := newEngine(log)
		defer eng.Close()
		u := uci.New(eng, log, strings.NewReader(""), os.Stdout)
		u.Execute(strings.Join(args, " "))
		return nil
	case "perft":
		return runPerft(args[1:])
	case "book":
		return runBook(log, args[1:])
	}
	usage()
	return fmt.Errorf("unknown command %q", args[0])
}

func runPerft(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("perft: missing depth")
	}
	depth, err := strconv.Atoi(args[0])
	if err != nil || depth < 0 {
		return fmt.Errorf("perft: bad depth %q", args[0])
	}
	pos := board.NewPosition()
	if len(args) > 1 {
		pos, err = board.ParseFEN(strings.Join(args[1:], " "))
		if err != nil {
			return fmt.Errorf("perft: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	began := time.Now()
	nodes, err := board.PerftParallel(ctx, pos, depth, *threads)
	if err != nil {
		return fmt.Errorf("perft: %w", err)
	}
	elapsed := time.Since(began)
	fmt.Printf("Nodes: %d\nTime: %v\n", nodes, elapsed.Round(time.Millisecond))
	if elapsed > 0 {
		fmt.Printf("NPS: %.0f\n", float64(nodes)/elapsed.Seconds())
	}
	return nil
}

func openBook(log zerolog.Logger) (*book.Book, error) {
	dir := *bookDir
	if dir == "" {
		var err error
		if dir, err = storage.GetBookDir(); err != nil {
			return nil, fmt.Errorf("book dir: %w", err)
		}
	}
	return book.Open(dir, log)
}

func runBook(log zerolog.Logger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("book: missing subcommand")
	}
	b, err := openBook(log)
	if err != nil {
		return err
	}
	defer b.Close()

	switch args[0] {
	case "add":
		if len(args) < 3 {
			return fmt.Errorf("book add: want <depth> <fen>")
		}
		depth, err := strconv.Atoi(args[1])
		if err != nil || depth < 1 {
			return fmt.Errorf("book add: bad depth %q", args[1])
		}
		return bookAdd(log, b, depth, strings.Join(args[2:], " "))

	case "remove":
		pos, err := board.ParseFEN(strings.Join(args[1:], " "))
		if err != nil {
			return fmt.Errorf("book remove: %w", err)
		}
		return b.Remove(pos)

	case "info":
		n, err := b.Len()
		if err != nil {
			return err
		}
		meta, err := b.Meta()
		if err != nil {
			return err
		}
		fmt.Printf("Entries: %d\n", n)
		if !meta.Updated.IsZero() {
			fmt.Printf("Updated: %s (%s)\nImports: %d\n", meta.Updated.Format(time.RFC3339), meta.Source, meta.Imports)
		}
		return nil

	case "export", "import":
		if len(args) != 2 {
			return fmt.Errorf("book %s: want <file.zst>", args[0])
		}
		if args[0] == "export" {
			return withFile(args[1], true, func(f io.ReadWriter) error {
				n, err := b.Export(f)
				fmt.Printf("Exported %d entries\n", n)
				return err
			})
		}
		return withFile(args[1], false, func(f io.ReadWriter) error {
			n, err := b.Import(f)
			fmt.Printf("Imported %d entries\n", n)
			return err
		})
	}
	return fmt.Errorf("book: unknown subcommand %q", args[0])
}

// bookAdd searches fen to depth and stores the best move.
func bookAdd(log zerolog.Logger, b *book.Book, depth int, fen string) error {
	pos, err := board.ParseFEN(fen)
	if err != nil {
		return fmt.Errorf("book add: %w", err)
	}
	eng := newEngine(log)
	defer eng.Close()
	eng.SetPosition(pos)

	res, err := eng.Search(engine.Limits{Depth: depth})
	if err != nil {
		return err
	}
	if res.Move == board.NoMove {
		return fmt.Errorf("book add: no legal move in %s", fen)
	}
	written, err := b.AddPosition(pos, res.Move, res.Score, res.Depth)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s depth %d written %v\n", res.BestMoveUCI(), engine.UCIScore(res.Score), res.Depth, written)
	return nil
}

func withFile(path string, create bool, fn func(io.ReadWriter) error) error {
	var f *os.File
	var err error
	if create {
		f, err = os.Create(path)
	} else {
		f, err = os.Open(path)
	}
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
