package rest

import (
	"encoding/json"
	"net/http"

	"github.com/richarddahl/ruleflow/logger"
	"github.com/richarddahl/ruleflow/model"
	"go.uber.org/zap"
)

// HandleProcessEvent triggers the pipeline synchronously for one event and
// returns the execution summary. Used by ops tooling and tests alongside the
// always-on listener path.
func (s *Server) HandleProcessEvent(w http.ResponseWriter, r *http.Request) {
	var event model.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed event")
		return
	}
	defer r.Body.Close()
	if event.EntityType == "" || event.Operation == "" {
		respondWithError(w, http.StatusBadRequest, "event requires entity_type and operation")
		return
	}
	operation, err := model.ToOperation(string(event.Operation))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	event.Operation = operation
	summary, err := s.engine.ProcessEvent(r.Context(), event)
	if err != nil {
		logger.Error("error processing event", zap.String("entity", event.EntityType), zap.Error(err))
		respondWithError(w, http.StatusServiceUnavailable, "error processing event")
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}
