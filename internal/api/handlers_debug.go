package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flipperdevices/flipper-debug-go/internal/models"
)

func (h *Handlers) triggerSync(w http.ResponseWriter, r *http.Request) {
	h.ctrl.TriggerSynchronization()
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"force": true})
}

func (h *Handlers) restartRPC(w http.ResponseWriter, r *http.Request) {
	h.ctrl.RestartRemoteService()
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"ok": true})
}

func (h *Handlers) openStressTest(w http.ResponseWriter, r *http.Request) {
	h.ctrl.NavigateToStressTest(h.nav)
	writeJSON(w, http.StatusOK, map[string]interface{}{"route": h.nav.Current()})
}

func (h *Handlers) openMfKey32(w http.ResponseWriter, r *http.Request) {
	h.ctrl.NavigateToMfKey32(h.nav)
	writeJSON(w, http.StatusOK, map[string]interface{}{"route": h.nav.Current()})
}

func (h *Handlers) getNavigation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"route": h.nav.Current(),
		"stack": h.nav.Stack(),
	})
}

func (h *Handlers) navigateBack(w http.ResponseWriter, r *http.Request) {
	popped := h.nav.Back()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"popped": popped,
		"route":  h.nav.Current(),
	})
}

func (h *Handlers) getSync(w http.ResponseWriter, r *http.Request) {
	if h.sync == nil {
		writeError(w, models.ErrUnavailable("synchronizer not running"))
		return
	}
	writeJSON(w, http.StatusOK, h.sync.Status())
}

func (h *Handlers) getInfo(w http.ResponseWriter, r *http.Request) {
	var info models.Info
	if h.info != nil {
		info = h.info()
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handlers) listBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		writeError(w, models.ErrUnavailable("backups disabled"))
		return
	}
	snaps, err := h.backups.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"backups": snaps})
}

func (h *Handlers) createBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		writeError(w, models.ErrUnavailable("backups disabled"))
		return
	}
	snap, err := h.backups.Backup()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *Handlers) restoreBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		writeError(w, models.ErrUnavailable("backups disabled"))
		return
	}
	st, err := h.backups.Restore(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
