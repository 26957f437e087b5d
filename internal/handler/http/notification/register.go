// Package notification is the HTTP intake for case notifications.
package notification

import (
	"net/http"

	"casetrack/internal/usecase/notify"
)

// Register mounts the intake routes on mux.
func Register(mux *http.ServeMux, svc notify.Service, registry *notify.Registry) {
	mux.Handle("POST /cases/{id}/notifications", AddHandler{Svc: svc})
	mux.Handle("GET /notification-types", TypesHandler{Registry: registry})
}
