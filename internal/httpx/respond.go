package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-restaurant-orders/internal/apperr"
)

type errorBody struct {
	Code    apperr.Kind       `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, map[string]any{"ok": true, "data": data})
}

// fail maps err onto the taxonomy. Internal details never reach the client.
func fail(w http.ResponseWriter, r *http.Request, log *logrus.Entry, err error) {
	body := errorBody{Code: apperr.KindInternal, Message: "internal error"}
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Kind != apperr.KindInternal {
		body = errorBody{Code: ae.Kind, Message: ae.Msg, Fields: ae.Fields}
	} else {
		log.WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).Error("request failed")
	}
	writeJSON(w, apperr.HTTPStatus(body.Code), map[string]any{"ok": false, "error": body})
}
