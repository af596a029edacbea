package roomid

import (
	"encoding/json"
	"net/http"
)

// Response is the body of a successful id request.
type Response struct {
	RoomID string `json:"room_id"`
}

// Handler serves freshly generated room ids.
func Handler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Response{RoomID: New()})
}
