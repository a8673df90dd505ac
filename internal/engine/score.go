package engine

import (
	"strconv"

	"github.com/UoLeevi/uochess/internal/board"
)

// Search score range. Mate scores sit within MaxPly of MateScore and
// encode the distance to mate in plies from the root.
const (
	Infinity  = 32000
	MateScore = 31000
	MateBound = MateScore - MaxPly
	DrawScore = 0
	MaxPly    = board.MaxPly
)

// MateIn is the score of delivering mate ply half-moves from the root.
func MateIn(ply int) int { return MateScore - ply }

// MatedIn is the score of being mated ply half-moves from the root.
func MatedIn(ply int) int { return -MateScore + ply }

// IsMateScore reports whether score encodes a forced mate for either side.
func IsMateScore(score int) bool {
	return score >= MateBound || score <= -MateBound
}

// MateMoves converts a mate score to full moves, negative when the side
// to move is being mated. It returns 0 for ordinary scores.
func MateMoves(score int) int {
	switch {
	case score >= MateBound:
		return (MateScore - score + 1) / 2
	case score <= -MateBound:
		return -(MateScore + score) / 2
	}
	return 0
}

// scoreToTT rebases a mate score from "distance from the root" to
// "distance from this node" before it is stored.
func scoreToTT(score, ply int) int {
	switch {
	case score >= MateBound:
		return score + ply
	case score <= -MateBound:
		return score - ply
	}
	return score
}

// scoreFromTT undoes scoreToTT for a node at the given ply.
func scoreFromTT(score, ply int) int {
	switch {
	case score >= MateBound:
		return score - ply
	case score <= -MateBound:
		return score + ply
	}
	return score
}

// UCIScore formats a score as the UCI "cp N" or "mate N" token pair.
func UCIScore(score int) string {
	if IsMateScore(score) {
		return "mate " + strconv.Itoa(MateMoves(score))
	}
	return "cp " + strconv.Itoa(score)
}

// ScoreToString converts a score to a short human-readable string.
func ScoreToString(score int) string {
	if m := MateMoves(score); m > 0 {
		return "Mate in " + strconv.Itoa(m)
	} else if m < 0 {
		return "Mated in " + strconv.Itoa(-m)
	}
	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	return sign + strconv.Itoa(score/100) + "." + strconv.Itoa(score%100/10) + strconv.Itoa(score%10)
}
