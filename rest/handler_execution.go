package rest

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/richarddahl/ruleflow/logger"
	"github.com/richarddahl/ruleflow/recorder"
	"go.uber.org/zap"
)

func (s *Server) HandleGetExecution(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	executionId, ok := vars["id"]
	if !ok {
		respondWithError(w, http.StatusBadRequest, "execution id required")
		return
	}
	record, err := s.recorder.Get(r.Context(), executionId)
	if err != nil {
		if errors.Is(err, recorder.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "execution not found")
			return
		}
		logger.Error("error getting execution", zap.String("id", executionId), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error getting execution")
		return
	}
	respondWithJSON(w, http.StatusOK, record)
}
