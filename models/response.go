package models

import (
	"errors"

	"bitbucket.org/shweretail/shop_backend/utils"
)

// Envelope is the uniform result shape every engine operation returns to
// its caller. Failures never cross the boundary as errors; they are
// mapped to {success:false, message} here.
type Envelope struct {
	Success bool `json:"success"`
	Message any  `json:"message"`
}

func OkEnvelope(data any) Envelope {
	return Envelope{Success: true, Message: data}
}

func FailEnvelope(err error) Envelope {
	if err == nil {
		return Envelope{Success: false, Message: "unknown error"}
	}
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return Envelope{Success: false, Message: "record not found"}
	}
	return Envelope{Success: false, Message: err.Error()}
}
