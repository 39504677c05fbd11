package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"outgo/internal/auth"
	"outgo/internal/core"
)

// maxBodyBytes bounds request bodies; expense payloads are small.
const maxBodyBytes = 64 << 10

// decodeBody decodes a JSON request body into dst. Unknown fields are
// tolerated, malformed JSON and type mismatches are not.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		writeBadRequest(w, "Malformed request body")
		return false
	}
	// a body must be a single JSON document
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeBadRequest(w, "Malformed request body")
		return false
	}
	return true
}

// owner resolves the authenticated account id. The auth middleware
// guarantees it is set on API routes.
func owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return "", false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := core.ParseID(r.PathValue("id"))
	if err != nil {
		writeBadRequest(w, "Invalid expense id")
		return "", false
	}
	return id, true
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	var in core.CreateExpenseInput
	if !decodeBody(w, r, &in) {
		return
	}

	created, err := s.expenses.Create(r.Context(), ownerID, in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	Respond().Status(http.StatusCreated).JSON(w, created)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	e, err := s.expenses.Get(r.Context(), ownerID, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	Respond().JSON(w, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var in core.UpdateExpenseInput
	if !decodeBody(w, r, &in) {
		return
	}

	updated, err := s.expenses.Update(r.Context(), ownerID, id, in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	Respond().JSON(w, updated)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.expenses.Delete(r.Context(), ownerID, id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	Respond().Status(http.StatusNoContent).JSON(w, nil)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	q, err := core.ParseListQuery(r.URL.Query())
	if err != nil {
		var fieldErrs core.FieldErrors
		if errors.As(err, &fieldErrs) {
			writeJSONError(w, http.StatusUnprocessableEntity, "Validation failed", fieldErrs)
		} else {
			writeBadRequest(w, "Invalid query parameters")
		}
		return
	}

	res, err := s.expenses.List(r.Context(), ownerID, q)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	Respond().JSON(w, res)
}
