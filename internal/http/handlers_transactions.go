package http

import (
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

var transactionFields = []string{"name", "amount", "currency", "categoryId", "note", "date", "type"}

const transactionNotFound = "Transaction not found"

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in services.TransactionInput
	if err := decodeBody(r, &in, transactionFields...); err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	owner := currentUser(r)
	tx, err := s.transactions.Create(r.Context(), owner, in)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	s.transactionWritten(r, applog.OpCreate, tx)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Transaction created successfully",
		"transaction": tx,
	})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var in services.TransactionInput
	if err := decodeBody(r, &in, transactionFields...); err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	tx, err := s.transactions.Update(r.Context(), currentUser(r), r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, r, err, transactionNotFound)
		return
	}

	s.transactionWritten(r, applog.OpUpdate, tx)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Transaction updated successfully",
		"transaction": tx,
	})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	owner := currentUser(r)
	id := r.PathValue("id")
	if err := s.transactions.Delete(r.Context(), owner, id); err != nil {
		writeServiceError(w, r, err, transactionNotFound)
		return
	}

	s.transactionWritten(r, applog.OpDelete, core.Transaction{ID: id, OwnerID: owner})
	writeMessage(w, http.StatusOK, "Transaction deleted successfully")
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.transactions.Get(r.Context(), currentUser(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, transactionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transaction": tx})
}

// handleListTransactions lists every transaction, or those of one UTC day
// when ?date=YYYY-MM-DD is given.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.transactions.List(r.Context(), currentUser(r), r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	writeTransactions(w, txs)
}

// handleMonthSummary returns per-day totals for ?year=&month=. Without both
// parameters it falls back to the full transaction list.
func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, month := q.Get("year"), q.Get("month")
	owner := currentUser(r)

	if year == "" || month == "" {
		txs, err := s.transactions.List(r.Context(), owner, "")
		if err != nil {
			writeServiceError(w, r, err, "")
			return
		}
		writeTransactions(w, txs)
		return
	}

	summary, err := s.transactions.MonthSummary(r.Context(), owner, year, month)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeTransactions(w http.ResponseWriter, txs []core.Transaction) {
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

// transactionWritten records a committed write and drops the owner's cached
// dashboards.
func (s *Server) transactionWritten(r *http.Request, op string, tx core.Transaction) {
	s.appMetrics.wrote()
	s.invalidateDashboards(r, tx.OwnerID)
	s.events.TransactionWritten(r.Context(), op, tx.ID, tx.OwnerID, tx.Amount, tx.CategoryID)
}
