package pkg

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

type apiMessage struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// WriteAPIError writes a `{"success": false, "message": ...}` JSON body
// with the given status code.
func WriteAPIError(w http.ResponseWriter, message string, statusCode int) {
	body, err := json.Marshal(apiMessage{Success: false, Message: message})
	if err != nil {
		log.Errorf("marshal api error message: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	WriteResponseBytes(w, ContentType.JSON, body, statusCode)
}

// WriteAPIJSON marshals the payload and writes it with the given status code.
func WriteAPIJSON(w http.ResponseWriter, payload interface{}, statusCode int) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("marshal api response: %s", err)
		WriteAPIError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	WriteResponseBytes(w, ContentType.JSON, body, statusCode)
}
