package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/flipperdevices/flipper-debug-go/internal/models"
)

type optionValue struct {
	Option models.Option `json:"option"`
	Value  bool          `json:"value"`
}

func (h *Handlers) getSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.ctrl.Settings()
	if err != nil {
		writeError(w, models.ErrUnavailable("settings store: "+err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) getOption(w http.ResponseWriter, r *http.Request) {
	opt, appErr := optionParam(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	st, err := h.ctrl.Settings()
	if err != nil {
		writeError(w, models.ErrUnavailable("settings store: "+err.Error()))
		return
	}
	v, _ := st.Get(opt)
	writeJSON(w, http.StatusOK, optionValue{Option: opt, Value: v})
}

// putOption accepts {"value": bool}. The update runs in the background;
// watch /api/subscribe for the resulting settings event.
func (h *Handlers) putOption(w http.ResponseWriter, r *http.Request) {
	opt, appErr := optionParam(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	var body struct {
		Value *bool `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	if body.Value == nil {
		writeError(w, &models.AppError{Code: "BAD_REQUEST", Message: "value is required", Field: "value", Status: http.StatusBadRequest})
		return
	}
	if err := h.ctrl.SetOption(opt, *body.Value); err != nil {
		writeError(w, models.ErrInvalidOption(string(opt)))
		return
	}
	writeJSON(w, http.StatusAccepted, optionValue{Option: opt, Value: *body.Value})
}

// patchSettings accepts a partial document such as {"always_update": true}.
// Every key is validated before any setter runs.
func (h *Handlers) patchSettings(w http.ResponseWriter, r *http.Request) {
	var body map[string]bool
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	if len(body) == 0 {
		writeError(w, models.ErrBadRequest("no options given"))
		return
	}

	keys := make([]string, 0, len(body))
	for k := range body {
		if _, err := models.ParseOption(k); err != nil {
			writeError(w, models.ErrInvalidOption(k))
			return
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	accepted := make([]optionValue, 0, len(keys))
	for _, k := range keys {
		opt := models.Option(k)
		if err := h.ctrl.SetOption(opt, body[k]); err != nil {
			writeError(w, models.ErrInvalidOption(k))
			return
		}
		accepted = append(accepted, optionValue{Option: opt, Value: body[k]})
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"accepted": accepted})
}

func optionParam(r *http.Request) (models.Option, *models.AppError) {
	key := chi.URLParam(r, "option")
	opt, err := models.ParseOption(key)
	if err != nil {
		return "", models.ErrInvalidOption(key)
	}
	return opt, nil
}
