package notification

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"casetrack/internal/domain/entity"
	"casetrack/internal/handler/http/pathutil"
	"casetrack/internal/handler/http/respond"
	"casetrack/internal/infra/notifier"
	"casetrack/internal/usecase/notify"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// AddHandler accepts a notification for a case.
//
//	202 queued for delivery
//	200 delivered (synchronous mode)
//	400 malformed body or unknown type
//	404 case not found
//	409 duplicate within the dedup window
//	422 template placeholder without a value
//	502 provider rejected or failed the delivery
//	503 push not configured, queue full or circuit open
type AddHandler struct{ Svc notify.Service }

func (h AddHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	caseID, err := pathutil.ParseID(r.PathValue("id"))
	if err != nil {
		respond.SafeError(w, respond.NewAppError(http.StatusBadRequest, "bad_request", "case id must be a positive integer", nil))
		return
	}

	req, err := decodeAddRequest(r)
	if err != nil {
		respond.SafeError(w, respond.NewAppError(http.StatusBadRequest, "bad_request", err.Error(), nil))
		return
	}
	args, err := toArgs(req.Args)
	if err != nil {
		respond.SafeError(w, respond.NewAppError(http.StatusBadRequest, "bad_request", err.Error(), nil))
		return
	}

	n, err := h.Svc.AddMessage(r.Context(), req.Type, caseID, args)
	if err != nil {
		writeAddError(w, err)
		return
	}

	code := http.StatusAccepted
	if n.Status == entity.StatusSent {
		code = http.StatusOK
	}
	respond.JSON(w, code, toNotificationDTO(n))
}

func decodeAddRequest(r *http.Request) (AddRequest, error) {
	var req AddRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return req, fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return req, errors.New("request body must be a JSON object with type and args")
	}
	if err := validate.Struct(req); err != nil {
		return req, validationMessage(err)
	}
	return req, nil
}

func validationMessage(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.New("invalid request")
	}
	fe := verrs[0]
	switch fe.StructField() {
	case "Type":
		if fe.Tag() == "required" {
			return errors.New("type is required")
		}
		return errors.New("type must be at most 64 printable characters")
	default:
		return errors.New("args must be at most 32 entries with non-empty keys of at most 64 characters")
	}
}

// toArgs flattens JSON scalars into template arguments.
func toArgs(raw map[string]any) (notify.Args, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	args := make(notify.Args, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			args[k] = val
		case json.Number:
			args[k] = val.String()
		case bool:
			args[k] = strconv.FormatBool(val)
		case nil:
			return nil, fmt.Errorf("args.%s must not be null", k)
		default:
			return nil, fmt.Errorf("args.%s must be a string, number or boolean", k)
		}
	}
	return args, nil
}

func writeAddError(w http.ResponseWriter, err error) {
	var (
		cfgErr    *notify.ConfigurationError
		lookupErr *notify.LookupError
		renderErr *notify.RenderError
		clientErr *notifier.ClientError
	)

	switch {
	case errors.Is(err, notify.ErrUnknownType):
		respond.SafeError(w, respond.NewAppError(http.StatusBadRequest, "unknown_type", "unknown notification type", err))
	case errors.Is(err, notify.ErrMissingCredentials):
		respond.SafeError(w, respond.NewAppError(http.StatusServiceUnavailable, "push_not_configured", "push delivery is not configured", err))
	case errors.As(err, &cfgErr):
		respond.SafeError(w, respond.NewAppError(http.StatusInternalServerError, "configuration_error", "notification type is misconfigured", err))
	case errors.As(err, &lookupErr) && errors.Is(err, entity.ErrNotFound):
		respond.SafeError(w, respond.NewAppError(http.StatusNotFound, "case_not_found", "case not found", err))
	case errors.As(err, &lookupErr):
		respond.SafeError(w, respond.NewAppError(http.StatusServiceUnavailable, "case_store_unavailable", "case store unavailable", err))
	case errors.As(err, &renderErr):
		msg := "message could not be rendered"
		if renderErr.Placeholder != "" {
			msg = fmt.Sprintf("missing value for placeholder {%s}", renderErr.Placeholder)
		}
		respond.SafeError(w, respond.NewAppError(http.StatusUnprocessableEntity, "render_error", msg, err))
	case errors.Is(err, notify.ErrDuplicateNotification):
		respond.SafeError(w, respond.NewAppError(http.StatusConflict, "duplicate", "identical notification already sent", nil))
	case errors.Is(err, notify.ErrQueueFull), errors.Is(err, notify.ErrQueueClosed):
		w.Header().Set("Retry-After", "5")
		respond.SafeError(w, respond.NewAppError(http.StatusServiceUnavailable, "queue_full", "delivery queue unavailable", err))
	case errors.Is(err, notify.ErrCircuitBreakerOpen), errors.Is(err, notify.ErrChannelDisabled):
		respond.SafeError(w, respond.NewAppError(http.StatusServiceUnavailable, "push_unavailable", "push delivery unavailable", err))
	case errors.As(err, &clientErr):
		respond.SafeError(w, respond.NewAppError(http.StatusBadGateway, "delivery_rejected", "push provider rejected the notification", err))
	case notify.IsDeliveryFailure(err):
		respond.SafeError(w, respond.NewAppError(http.StatusBadGateway, "delivery_failed", "push delivery failed", err))
	default:
		respond.SafeError(w, err)
	}
}
