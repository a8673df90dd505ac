package tablebase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/UoLeevi/uochess/internal/board"
)

// DefaultLichessURL is the public Lichess tablebase endpoint.
const DefaultLichessURL = "https://tablebase.lichess.ovh"

// LichessProber uses the Lichess tablebase API for online lookups.
type LichessProber struct {
	client    *http.Client
	baseURL   string
	maxPieces int
}

// NewLichessProber creates a prober for the API at baseURL, or the public
// endpoint when baseURL is empty.
func NewLichessProber(baseURL string) *LichessProber {
	if baseURL == "" {
		baseURL = DefaultLichessURL
	}
	return &LichessProber{
		client:    &http.Client{Timeout: 5 * time.Second},
		baseURL:   strings.TrimRight(baseURL, "/"),
		maxPieces: 7,
	}
}

type lichessResponse struct {
	Category string `json:"category"` // "win", "draw", "maybe-win", "maybe-draw", "loss", ...
	DTZ      int    `json:"dtz"`
	Moves    []struct {
		UCI      string `json:"uci"`
		Category string `json:"category"`
		DTZ      int    `json:"dtz"`
	} `json:"moves"`
}

func (lp *LichessProber) query(ctx context.Context, pos *board.Position) (*lichessResponse, error) {
	u := lp.baseURL + "/standard?fen=" + url.QueryEscape(pos.FEN())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := lp.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tablebase: %s", resp.Status)
	}
	var result lichessResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("tablebase: decode: %w", err)
	}
	return &result, nil
}

func (lp *LichessProber) Probe(ctx context.Context, pos *board.Position) ProbeResult {
	if CountPieces(pos) > lp.maxPieces {
		return ProbeResult{}
	}
	result, err := lp.query(ctx, pos)
	if err != nil {
		return ProbeResult{}
	}
	return ProbeResult{
		Found: true,
		WDL:   categoryToWDL(result.Category),
		DTZ:   result.DTZ,
	}
}

// ProbeRoot takes the first move of the response, which the API lists
// best first from the mover's point of view.
func (lp *LichessProber) ProbeRoot(ctx context.Context, pos *board.Position) RootResult {
	if CountPieces(pos) > lp.maxPieces {
		return RootResult{}
	}
	result, err := lp.query(ctx, pos)
	if err != nil || len(result.Moves) == 0 {
		return RootResult{}
	}
	best := result.Moves[0]
	move, err := pos.ParseMove(best.UCI)
	if err != nil {
		return RootResult{}
	}
	return RootResult{
		Found: true,
		Move:  move,
		WDL:   categoryToWDL(result.Category),
		DTZ:   best.DTZ,
	}
}

func (lp *LichessProber) MaxPieces() int {
	return lp.maxPieces
}

func (lp *LichessProber) Available() bool {
	return true
}

func categoryToWDL(category string) WDL {
	switch category {
	case "win":
		return WDLWin
	case "cursed-win", "maybe-win":
		return WDLCursedWin
	case "blessed-loss", "maybe-loss":
		return WDLBlessedLoss
	case "loss":
		return WDLLoss
	default:
		return WDLDraw
	}
}
