package notification

import (
	"net/http"

	"casetrack/internal/handler/http/respond"
	"casetrack/internal/usecase/notify"
)

// TypesHandler lists the registered notification types sorted by name.
type TypesHandler struct{ Registry *notify.Registry }

func (h TypesHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	types := h.Registry.Types()
	out := make([]TypeDTO, 0, len(types))
	for _, t := range types {
		out = append(out, toTypeDTO(t))
	}
	respond.JSON(w, http.StatusOK, out)
}
