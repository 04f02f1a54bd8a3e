// internal/httpserver/routes_board.go
//
// Board endpoints:
//   - GET  /api/state    → full snapshot (axes, labels, 100 squares)
//   - POST /api/claim    → claim one square with initials
//   - POST /api/generate → admin trigger for one-time axis generation
//
// Input normalization lives here; the board service assumes clean input.

package httpserver

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/squares/internal/axis"
	"github.com/robalobadob/squares/internal/board"
	"github.com/robalobadob/squares/internal/store"
)

// maxInitials caps normalized initials.
const maxInitials = 10

// -----------------------------------------------------------------------------
// /api/state

type squareRes struct {
	ID        int     `json:"id"`
	Initials  *string `json:"initials"`
	ClaimedAt *string `json:"claimedAt"`
}

type stateRes struct {
	Generated    bool        `json:"generated"`
	AxisX        []int       `json:"axisX"`
	AxisY        []int       `json:"axisY"`
	TeamX        *string     `json:"teamX"`
	TeamY        *string     `json:"teamY"`
	ClaimedCount int         `json:"claimedCount"`
	Squares      []squareRes `json:"squares"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.GetState(r.Context())
	if err != nil {
		s.serviceError(w, err, "get state")
		return
	}

	res := stateRes{
		Generated:    st.Generated,
		ClaimedCount: st.ClaimedCount(),
		Squares:      make([]squareRes, 0, len(st.Squares)),
	}
	if st.Generated {
		res.AxisX, res.AxisY = st.AxisX.Slice(), st.AxisY.Slice()
		res.TeamX, res.TeamY = &st.TeamX, &st.TeamY
	}
	for _, sq := range st.Squares {
		res.Squares = append(res.Squares, toSquareRes(sq))
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, res)
}

func toSquareRes(sq store.Square) squareRes {
	out := squareRes{ID: sq.ID}
	if sq.Claimed() {
		initials := sq.Initials
		out.Initials = &initials
		if !sq.ClaimedAt.IsZero() {
			ts := sq.ClaimedAt.UTC().Format(time.RFC3339)
			out.ClaimedAt = &ts
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// /api/claim

type claimReq struct {
	ID       any `json:"id"`
	Initials any `json:"initials"`
}

type claimRes struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// handleClaim validates the payload and attempts a first-writer-wins claim.
// - 400 on bad JSON, id, or initials.
// - 409 {"ok":false,"reason":"taken"} if someone got there first.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var p claimReq
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	id, ok := parseSquareID(p.ID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid square id")
		return
	}
	initials := normalizeInitials(p.Initials)
	if initials == "" {
		writeError(w, http.StatusBadRequest, "Initials must be 1-10 letters or numbers")
		return
	}

	claimed, err := s.svc.ClaimSquare(r.Context(), id, initials)
	if err != nil {
		s.serviceError(w, err, "claim square")
		return
	}
	if !claimed {
		s.metrics.claims.WithLabelValues("taken").Inc()
		log.Debug().Int("square", id).Str("initials", initials).Msg("claim lost: square taken")
		writeJSON(w, http.StatusConflict, claimRes{OK: false, Reason: "taken"})
		return
	}

	s.metrics.claims.WithLabelValues("claimed").Inc()
	log.Info().Int("square", id).Str("initials", initials).Msg("square claimed")
	writeJSON(w, http.StatusOK, claimRes{OK: true})
}

// parseSquareID accepts a JSON number or numeric string holding an integer 0..99.
func parseSquareID(v any) (int, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if f != math.Trunc(f) || f < 0 || f >= store.NumSquares {
		return 0, false
	}
	return int(f), true
}

// normalizeInitials trims, uppercases and strips anything outside [A-Z0-9].
// It returns "" when the result is empty or longer than maxInitials.
func normalizeInitials(v any) string {
	s := stringish(v)
	if s == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) < 1 || len(out) > maxInitials {
		return ""
	}
	return out
}

// stringish renders JSON strings and numbers as text; anything else is "".
func stringish(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

// -----------------------------------------------------------------------------
// /api/generate

type generateReq struct {
	AdminKey any `json:"adminKey"`
}

type generateRes struct {
	OK    bool   `json:"ok"`
	AxisX []int  `json:"axisX"`
	AxisY []int  `json:"axisY"`
	TeamX string `json:"teamX"`
	TeamY string `json:"teamY"`
}

type notFullRes struct {
	Error        string `json:"error"`
	ClaimedCount int    `json:"claimedCount"`
}

// handleGenerate checks admin access, then asks the service to generate axes.
// - 500 when no admin secret is configured.
// - 401 for a wrong key (a valid admin session skips the key check).
// - 409 when the board is not full or the axes already exist.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !s.admin.configured() {
		writeError(w, http.StatusInternalServerError, "ADMIN_KEY is not configured")
		return
	}
	if !s.admin.validSession(r) {
		var p generateReq
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if !s.admin.checkKey(stringish(p.AdminKey)) {
			writeError(w, http.StatusUnauthorized, "Invalid admin key")
			return
		}
	}

	res, err := s.svc.GenerateAxes(r.Context())
	if err != nil {
		s.serviceError(w, err, "generate axes")
		return
	}
	if !res.OK {
		switch res.Reason {
		case board.ReasonBoardNotFull:
			s.metrics.generate.WithLabelValues("board_not_full").Inc()
			log.Debug().Int("claimed", res.ClaimedCount).Msg("generate refused: board not full")
			writeJSON(w, http.StatusConflict, notFullRes{Error: "Board not full", ClaimedCount: res.ClaimedCount})
		case board.ReasonAlreadyGenerated:
			s.metrics.generate.WithLabelValues("already_generated").Inc()
			log.Debug().Msg("generate refused: already generated")
			writeError(w, http.StatusConflict, "Numbers already generated")
		default:
			writeError(w, http.StatusBadRequest, "Unable to generate numbers")
		}
		return
	}

	s.metrics.generate.WithLabelValues("generated").Inc()
	log.Info().Ints("axisX", res.AxisX[:]).Ints("axisY", res.AxisY[:]).Msg("axes generated")
	writeJSON(w, http.StatusOK, generateRes{
		OK:    true,
		AxisX: res.AxisX.Slice(),
		AxisY: res.AxisY.Slice(),
		TeamX: res.TeamX,
		TeamY: res.TeamY,
	})
}

// serviceError maps service errors onto status codes and logs storage faults.
func (s *Server) serviceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, board.ErrInvalidSquare):
		writeError(w, http.StatusBadRequest, "Invalid square id")
	case errors.Is(err, axis.ErrRandomUnavailable):
		log.Error().Err(err).Str("op", op).Msg("random source unavailable")
		writeError(w, http.StatusServiceUnavailable, "random_unavailable")
	default:
		log.Error().Err(err).Str("op", op).Msg("storage error")
		writeError(w, http.StatusInternalServerError, "storage_error")
	}
}
