package uci

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/UoLeevi/uochess/internal/engine"
)

type optionType string

const (
	optCheck  optionType = "check"
	optSpin   optionType = "spin"
	optButton optionType = "button"
	optString optionType = "string"
)

// option is one entry of the "uci" reply.
type option struct {
	name     string
	typ      optionType
	def      string
	min, max int
}

func (o option) String() string {
	s := "option name " + o.name + " type " + string(o.typ)
	switch o.typ {
	case optSpin:
		s += fmt.Sprintf(" default %s min %d max %d", o.def, o.min, o.max)
	case optCheck, optString:
		def := o.def
		if def == "" {
			def = "<empty>"
		}
		s += " default " + def
	}
	return s
}

var defaults = engine.DefaultOptions()

var options = []option{
	{name: "Threads", typ: optSpin, def: strconv.Itoa(defaults.Threads), min: engine.MinThreads, max: engine.MaxThreads},
	{name: "Hash", typ: optSpin, def: strconv.Itoa(defaults.HashMB), min: engine.MinHashMB, max: engine.MaxHashMB},
	{name: "Clear Hash", typ: optButton},
	{name: "Move Overhead", typ: optSpin, def: strconv.Itoa(int(defaults.MoveOverhead.Milliseconds())), min: 0, max: 5000},
	{name: "Ponder", typ: optCheck, def: "false"},
	{name: "OwnBook", typ: optCheck, def: "false"},
	{name: "BookFile", typ: optString},
	{name: "MultiPV", typ: optSpin, def: "1", min: 1, max: 1},
	{name: "SyzygyPath", typ: optString},
	{name: "Debug Log File", typ: optString},
}

// parseSetOption splits "name <name...> value <value...>".
func parseSetOption(args []string) (name, value string) {
	var nameParts, valueParts []string
	var target *[]string
	for _, arg := range args {
		switch {
		case arg == "name" && target == nil:
			target = &nameParts
		case arg == "value" && target == &nameParts:
			target = &valueParts
		case target != nil:
			*target = append(*target, arg)
		}
	}
	value = strings.Join(valueParts, " ")
	if value == "<empty>" {
		value = ""
	}
	return strings.Join(nameParts, " "), value
}

// handleSetOption processes "setoption" commands.
func (u *UCI) handleSetOption(args []string) error {
	name, value := parseSetOption(args)
	opt, ok := lo.Find(options, func(o option) bool { return strings.EqualFold(o.name, name) })
	if !ok {
		return fmt.Errorf("%w: unknown option %q", ErrOption, name)
	}
	u.handleStop()

	var n int
	var on bool
	switch opt.typ {
	case optSpin:
		var err error
		n, err = strconv.Atoi(value)
		if err != nil || n < opt.min || n > opt.max {
			return fmt.Errorf("%w: %s must be in [%d, %d], got %q", ErrOption, opt.name, opt.min, opt.max, value)
		}
	case optCheck:
		switch strings.ToLower(value) {
		case "true":
			on = true
		case "false":
		default:
			return fmt.Errorf("%w: %s must be true or false, got %q", ErrOption, opt.name, value)
		}
	}

	u.log.Debug().Str("name", opt.name).Str("value", value).Msg("setoption")

	switch opt.name {
	case "Threads":
		return u.engine.SetThreads(n)
	case "Hash":
		u.engine.SetHash(n)
	case "Clear Hash":
		u.engine.ClearHash()
	case "Move Overhead":
		u.engine.SetMoveOverhead(time.Duration(n) * time.Millisecond)
	case "Ponder":
		// Pondering is driven by "go ponder"; nothing to configure.
	case "OwnBook":
		u.engine.SetOwnBook(on)
	case "BookFile":
		return u.openBook(value)
	case "MultiPV":
	case "SyzygyPath":
		p, err := tablebaseFor(value)
		u.engine.SetTablebase(p)
		if err != nil {
			return err
		}
		if value != "" {
			u.log.Info().Str("path", value).Int("pieces", p.MaxPieces()).Msg("tablebase enabled")
		}
	case "Debug Log File":
		return u.openLog(value)
	}
	return nil
}
