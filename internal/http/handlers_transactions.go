package http

import (
	"net/http"
	"sync/atomic"

	"spender/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := parseUserID(r)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	month, err := parseMonth(r)
	if err != nil {
		errorFor(err).Write(w)
		return
	}

	txs, err := s.transactions.List(ctx, userID, month)
	if err != nil {
		s.logFailure(r, "Failed to list transactions", err, log.OpList, log.NewFields().WithUser(userID))
		errorFor(err).Write(w)
		return
	}

	resp := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		resp = append(resp, toTransactionResponse(t))
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := parseUserID(r)
	if err != nil {
		errorFor(err).Write(w)
		return
	}

	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorFor(err).Write(w)
		return
	}
	nt, err := req.toNewTransaction()
	if err != nil {
		errorFor(err).Write(w)
		return
	}

	t, err := s.transactions.Create(ctx, userID, nt)
	if err != nil {
		s.logFailure(r, "Failed to create transaction", err, log.OpCreate, log.NewFields().WithUser(userID))
		errorFor(err).Write(w)
		return
	}

	atomic.AddInt64(&s.appMetrics.transactionsCreated, 1)
	log.NewStructuredLogger(log.FromContext(ctx)).
		LogTransactionCreated(ctx, userID, t.ID, t.Amount.Cents, t.Category, t.Date.String())

	NewJSONResponse().
		Status(http.StatusCreated).
		Body(toTransactionResponse(t)).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseTransactionID(r)
	if err != nil {
		errorFor(err).Write(w)
		return
	}
	userID, err := parseUserID(r)
	if err != nil {
		errorFor(err).Write(w)
		return
	}

	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorFor(err).Write(w)
		return
	}

	t, err := s.transactions.Update(ctx, id, userID, req.toPatch())
	if err != nil {
		fields := log.NewFields().WithUser(userID)
		fields[log.FieldTransactionID] = id
		s.logFailure(r, "Failed to update transaction", err, log.OpUpdate, fields)
		errorFor(err).Write(w)
		return
	}

	atomic.AddInt64(&s.appMetrics.transactionsUpdated, 1)
	log.NewStructuredLogger(log.FromContext(ctx)).
		LogTransactionUpdated(ctx, userID, t.ID, t.Amount.Cents, t.Category, t.Date.String())

	NewJSONResponse().Body(toTransactionResponse(t)).Write(w)
}
