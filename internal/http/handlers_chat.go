package http

import (
	"net/http"
	"strings"

	"jizhang/internal/log"
)

type chatRequest struct {
	Text string `json:"text"`
}

// handleChat records one utterance and returns the reply messages. A failed
// classification still answers 200 with outcome "error".
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.submissions.Add(1)

	reply, err := s.chat.Submit(r.Context(), sanitizeInput(req.Text))
	if err != nil {
		s.fail(w, r, log.OpClassify, err)
		return
	}
	if reply.Expense != nil {
		s.recorded.Add(1)
	}
	writeJSON(w, http.StatusOK, toChat(reply))
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	msgs, err := s.chat.History(r.Context(), limit)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessages(msgs))
}

func (s *Server) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.ClearHistory(r.Context()); err != nil {
		s.fail(w, r, log.OpClear, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := s.chat.RecentExpenses(r.Context(), limit)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenses(records))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing expense id")
		return
	}
	record, err := s.chat.GetExpense(r.Context(), id)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpense(record))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing expense id")
		return
	}
	if err := s.chat.DeleteExpense(r.Context(), id); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClearAll deletes every expense and the whole conversation.
func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.ClearAll(r.Context()); err != nil {
		s.fail(w, r, log.OpClear, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sanitizeInput removes control characters except tab and newlines, and trims
// whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
