package api

import (
	"net/http"

	"github.com/ayusman/handtune/internal/gesture"
)

// ManualHandler serves the gesture manual for a profile.
type ManualHandler struct {
	profile gesture.Profile
}

// NewManualHandler creates a ManualHandler. ?mode= overrides profile.
func NewManualHandler(profile gesture.Profile) *ManualHandler {
	return &ManualHandler{profile: profile}
}

type manualResponse struct {
	Profile gesture.Profile      `json:"profile"`
	Entries []gesture.GuideEntry `json:"entries"`
}

func (h *ManualHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	profile := h.profile
	if mode := r.URL.Query().Get("mode"); mode != "" {
		p, err := gesture.ParseProfile(mode)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		profile = p
	}
	WriteJSON(w, http.StatusOK, manualResponse{Profile: profile, Entries: gesture.Guide(profile)})
}
