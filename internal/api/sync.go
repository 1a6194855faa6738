package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/elter-ri/vocabs-sync/internal/api/common"
	pkgsync "github.com/elter-ri/vocabs-sync/internal/sync"
	"github.com/elter-ri/vocabs-sync/internal/sync/coordinator"
)

// syncHandler runs a manual synchronization and answers with its outcome.
// The request blocks while another run holds the lock.
//
// @Summary		Trigger a synchronization
// @Description	Fetch every source document and replace its named graph
// @Tags			sync
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	SyncResponse
// @Failure		401	{object}	common.ErrorResponse
// @Failure		500	{object}	common.ErrorResponse
// @Failure		503	{object}	common.ErrorResponse
// @Router			/sync [post]
func syncHandler(coord coordinator.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome, err := coord.RequestRun(r.Context(), pkgsync.TriggerManual)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.InfoContext(r.Context(), "Manual sync abandoned while waiting for the run lock",
					"remote_addr", r.RemoteAddr)
				common.WriteErrorResponse(w, "sync request cancelled", http.StatusServiceUnavailable)
				return
			}

			slog.ErrorContext(r.Context(), "Manual sync failed", "error", err)
			common.WriteErrorResponse(w, pkgsync.ErrRunFailed.Error(), http.StatusInternalServerError)
			return
		}

		common.WriteJSONResponse(w, newSyncResponse(outcome), http.StatusOK)
	}
}
