package httpx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
)

const signatureHeader = "X-Signature"

// paymentsHandler receives settlement callbacks from the payment provider.
// The body is signed with a shared secret: hex(HMAC-SHA256(secret, body)).
type paymentsHandler struct {
	svc    OrderService
	secret []byte
	log    *logrus.Entry
}

func (h *paymentsHandler) register(r chi.Router) {
	r.Post("/payments/callback", h.callback)
}

type paymentCallbackReq struct {
	OrderID string `json:"orderId" validate:"required"`
	Status  string `json:"status" validate:"required"`
}

func (h *paymentsHandler) callback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		fail(w, r, h.log, apperr.Validation("invalid body", nil))
		return
	}
	if !h.verify(body, r.Header.Get(signatureHeader)) {
		fail(w, r, h.log, apperr.Unauthorized("invalid signature"))
		return
	}
	var req paymentCallbackReq
	if err := decodeBytes(body, &req); err != nil {
		fail(w, r, h.log, err)
		return
	}
	if !strings.EqualFold(req.Status, "paid") {
		h.log.WithFields(logrus.Fields{"order_id": req.OrderID, "status": req.Status}).Info("payment callback ignored")
		ok(w, http.StatusOK, map[string]any{"orderId": req.OrderID, "paid": false})
		return
	}

	ctx, cancel := writeCtx(r)
	defer cancel()

	o, err := h.svc.MarkPaid(ctx, req.OrderID)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	ok(w, http.StatusOK, o.StatusView())
}

func (h *paymentsHandler) verify(body []byte, sig string) bool {
	if len(h.secret) == 0 || sig == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(sig))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
