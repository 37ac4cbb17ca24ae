package handler

import (
	"encoding/json"
	"net/http"

	"github.com/suhailma1ik/KinCashBackend/internal/domain"
	"github.com/suhailma1ik/KinCashBackend/pkg/response"
)

// RecordPayment handles POST /api/v1/loans/{loanId}/payments.
// The Idempotency-Key header is required: retried submissions with the same
// key return the first allocation's result instead of double-allocating.
func (h *LoanHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.loanID(w, r)
	if !ok {
		return
	}

	var request domain.RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	request.IdempotencyKey = r.Header.Get("Idempotency-Key")
	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.service.RecordPayment(r.Context(), loanID, &request)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, result)
}

// ListPayments handles GET /api/v1/loans/{loanId}/payments
func (h *LoanHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	loanID, ok := h.loanID(w, r)
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(r.Context(), loanID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, payments)
}
