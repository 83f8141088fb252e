package messaging

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// JobMessage сообщение в очереди генерации. Несет только id задачи,
// остальное исполнитель читает из хранилища.
type JobMessage struct {
	JobID uuid.UUID `json:"job_id"`
}

var errMissingJobID = errors.New("missing job_id")

func encodeJobMessage(jobID uuid.UUID) ([]byte, error) {
	return json.Marshal(JobMessage{JobID: jobID})
}

func decodeJobMessage(body []byte) (uuid.UUID, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	var msg JobMessage
	if err := dec.Decode(&msg); err != nil {
		return uuid.Nil, fmt.Errorf("invalid job message: %w", err)
	}
	if msg.JobID == uuid.Nil {
		return uuid.Nil, errMissingJobID
	}
	return msg.JobID, nil
}
