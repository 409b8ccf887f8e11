// Package httpapi exposes the trainer over a JSON websocket plus a few plain
// HTTP endpoints for progress, board snapshots, and PGN export.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/shrinivas105/chess-theory-trainer/internal/campaign"
	"github.com/shrinivas105/chess-theory-trainer/internal/explorer"
	"github.com/shrinivas105/chess-theory-trainer/internal/obslog"
	"github.com/shrinivas105/chess-theory-trainer/internal/progress"
	"github.com/shrinivas105/chess-theory-trainer/internal/render"
	"github.com/shrinivas105/chess-theory-trainer/internal/scoring"
	"github.com/shrinivas105/chess-theory-trainer/internal/session"
)

type Server struct {
	mgr       *session.Manager
	store     *progress.Store
	fmt       *Formatter
	boards    render.BoardRenderer
	snapshots bool
}

func NewServer(mgr *session.Manager, store *progress.Store, f *Formatter, boards render.BoardRenderer, snapshots bool) *Server {
	return &Server{mgr: mgr, store: store, fmt: f, boards: boards, snapshots: snapshots}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/progress", s.handleProgress)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/api/board", s.handleBoard)
	mux.HandleFunc("/api/pgn", s.handlePGN)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// clientMsg is one websocket command from the player.
type clientMsg struct {
	Type     string `json:"type"` // start | move | hint | state | end | abandon
	Campaign string `json:"campaign,omitempty"`
	Move     string `json:"move,omitempty"`
}

// serverMsg is one websocket event to the player.
type serverMsg struct {
	Type    string           `json:"type"` // session | warning | hint | result | error
	Session *session.Session `json:"session,omitempty"`
	Text    string           `json:"text,omitempty"`
	Moves   []explorer.Move  `json:"moves,omitempty"`
	Result  *resultPayload   `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// resultPayload is the scored battle plus its rendered commander messages.
type resultPayload struct {
	*session.Result
	Message        string `json:"message"`
	SubMessage     string `json:"sub_message"`
	RankChangeText string `json:"rank_change_text,omitempty"`
	TheoryEndText  string `json:"theory_end_text"`
}

func playerID(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("player"))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	player := playerID(r)
	if player == "" {
		http.Error(w, "player query parameter required", http.StatusBadRequest)
		return
	}

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		obslog.L().Warn("ws_accept_failed", zap.Error(err))
		return
	}
	defer c.Close(websocket.StatusInternalError, "closing")

	ctx := r.Context()
	obslog.L().Info("ws_connect", zap.String("player_id", player))

	for {
		var msg clientMsg
		if err := wsjson.Read(ctx, c, &msg); err != nil {
			obslog.L().Debug("ws_disconnect", zap.String("player_id", player), zap.Error(err))
			return
		}
		if err := s.dispatch(ctx, c, player, msg); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, c *websocket.Conn, player string, msg clientMsg) error {
	switch msg.Type {
	case "start":
		camp, err := campaign.Parse(msg.Campaign)
		if err != nil {
			return s.sendError(ctx, c, err.Error())
		}
		sess, warning, err := s.mgr.Start(ctx, player, camp)
		if err != nil {
			return s.sendError(ctx, c, "could not start battle")
		}
		if text := s.fmt.Warning(warning); text != "" {
			if err := s.send(ctx, c, serverMsg{Type: "warning", Text: text}); err != nil {
				return err
			}
		}
		return s.sendSession(ctx, c, sess)

	case "move":
		sess, err := s.mgr.PlayMove(ctx, player, msg.Move)
		if err != nil {
			return s.sendError(ctx, c, moveErrorText(err))
		}
		if err := s.sendSession(ctx, c, sess); err != nil {
			return err
		}
		// The opponent replies immediately; this may end the battle.
		sess, err = s.mgr.OpponentMove(ctx, player)
		if err != nil {
			return s.sendError(ctx, c, moveErrorText(err))
		}
		return s.sendSession(ctx, c, sess)

	case "hint":
		moves, err := s.mgr.Hints(ctx, player)
		if err != nil {
			return s.sendError(ctx, c, moveErrorText(err))
		}
		return s.send(ctx, c, serverMsg{Type: "hint", Moves: moves, Text: s.fmt.Hint(moves)})

	case "state":
		sess, err := s.mgr.Get(ctx, player)
		if err != nil {
			return s.sendError(ctx, c, moveErrorText(err))
		}
		return s.sendSession(ctx, c, sess)

	case "end":
		sess, err := s.mgr.End(ctx, player)
		if err != nil {
			return s.sendError(ctx, c, moveErrorText(err))
		}
		return s.sendSession(ctx, c, sess)

	case "abandon":
		if err := s.mgr.Abandon(ctx, player); err != nil {
			return s.sendError(ctx, c, moveErrorText(err))
		}
		return s.send(ctx, c, serverMsg{Type: "session"})

	default:
		return s.sendError(ctx, c, "unknown command")
	}
}

func moveErrorText(err error) string {
	switch {
	case errors.Is(err, session.ErrNoSession):
		return "no active battle"
	case errors.Is(err, session.ErrIllegalMove):
		return "that move is not legal here"
	case errors.Is(err, session.ErrNotPlayerTurn):
		return "it is not your turn"
	case errors.Is(err, session.ErrNotOpponentTurn):
		return "the opponent is not to move"
	case errors.Is(err, session.ErrConflict):
		return "another command is in flight, try again"
	default:
		return "command failed"
	}
}

func (s *Server) sendSession(ctx context.Context, c *websocket.Conn, sess *session.Session) error {
	msg := serverMsg{Type: "session", Session: sess}
	if sess != nil && sess.Status == session.StatusEnded && sess.Result != nil {
		headline, sub := s.fmt.BattleMessage(sess.Result.BattleRank, sess.Result.Band)
		msg.Type = "result"
		msg.Result = &resultPayload{
			Result:         sess.Result,
			Message:        headline,
			SubMessage:     sub,
			RankChangeText: s.fmt.RankChange(sess.Result),
			TheoryEndText:  s.fmt.TheoryEnd(),
		}
	}
	return s.send(ctx, c, msg)
}

func (s *Server) send(ctx context.Context, c *websocket.Conn, msg serverMsg) error {
	return wsjson.Write(ctx, c, msg)
}

func (s *Server) sendError(ctx context.Context, c *websocket.Conn, text string) error {
	return s.send(ctx, c, serverMsg{Type: "error", Error: text})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	player := playerID(r)
	if player == "" {
		http.Error(w, "player query parameter required", http.StatusBadRequest)
		return
	}
	rec, err := s.store.Load(r.Context(), player)
	if err != nil {
		http.Error(w, "progress unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, struct {
		Record *progress.Record   `json:"record"`
		Master scoring.LegionRank `json:"master_rank"`
		Club   scoring.LegionRank `json:"club_rank"`
	}{rec, rec.Rank(campaign.Master), rec.Rank(campaign.Club)})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	player := playerID(r)
	if player == "" {
		http.Error(w, "player query parameter required", http.StatusBadRequest)
		return
	}
	if err := s.store.Reset(r.Context(), player); err != nil {
		http.Error(w, "reset failed", http.StatusInternalServerError)
		return
	}
	obslog.L().Info("progress_reset", zap.String("player_id", player))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	if !s.snapshots || s.boards == nil {
		http.Error(w, "board snapshots disabled", http.StatusNotFound)
		return
	}
	player := playerID(r)
	if player == "" {
		http.Error(w, "player query parameter required", http.StatusBadRequest)
		return
	}
	sess, err := s.mgr.Get(r.Context(), player)
	if err != nil {
		http.Error(w, "no active battle", http.StatusNotFound)
		return
	}
	game := sess.Game()
	if game == nil {
		http.Error(w, "battle state corrupt", http.StatusInternalServerError)
		return
	}

	var highlight *render.Highlight
	if moves := game.Moves(); len(moves) > 0 {
		last := moves[len(moves)-1]
		highlight = &render.Highlight{From: last.S1(), To: last.S2()}
	}

	png, err := s.boards.RenderPNG(r.Context(), game.Position().Board(), highlight)
	if err != nil {
		obslog.L().Warn("board_render_failed", zap.String("player_id", player), zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (s *Server) handlePGN(w http.ResponseWriter, r *http.Request) {
	player := playerID(r)
	if player == "" {
		http.Error(w, "player query parameter required", http.StatusBadRequest)
		return
	}
	sess, err := s.mgr.Get(r.Context(), player)
	if err != nil || sess.Result == nil || sess.Result.PGN == "" {
		http.Error(w, "no finished battle to export", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/x-chess-pgn")
	w.Header().Set("Content-Disposition", `attachment; filename="legion_battle.pgn"`)
	w.Write([]byte(sess.Result.PGN))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obslog.L().Warn("write_json_failed", zap.Error(err))
	}
}
