package web

import (
	"errors"
	"fmt"
	"net/http"

	"qcviz/internal/ingest"
	"qcviz/internal/pipeline"
	"qcviz/internal/qc"
	"qcviz/internal/session"
)

// StatusKind is the alert style of a status message.
type StatusKind string

const (
	StatusSuccess StatusKind = "success"
	StatusInfo    StatusKind = "info"
	StatusWarning StatusKind = "warning"
	StatusDanger  StatusKind = "danger"
)

// Status is the message shown after an action.
type Status struct {
	Kind    StatusKind
	Message string
	Code    int
}

func success(msg string) *Status {
	return &Status{Kind: StatusSuccess, Message: msg, Code: http.StatusOK}
}

// statusFor turns an action error into the message shown to the user. Errors the user can
// fix from the page are warnings; anything raised inside a pipeline stage names that stage.
func statusFor(err error) *Status {
	st := classify(err)
	var stage *pipeline.StageError
	if errors.As(err, &stage) {
		st.Message = fmt.Sprintf("Error during %s: %s", stage.Stage, st.Message)
	}
	return st
}

func classify(err error) *Status {
	var (
		noData      *session.NoDatasetError
		unsupported *ingest.UnsupportedFormatError
		tooMany     *session.TooManyRowsError
		missing     *qc.MissingParameterError
		unknown     *qc.UnknownTestError
		invalid     *qc.InvalidConfigError
		tooLarge    *fileTooLargeError
		stage       *pipeline.StageError
	)
	switch {
	case errors.As(err, &noData):
		return &Status{Kind: StatusInfo, Message: noData.Error(), Code: http.StatusConflict}
	case errors.As(err, &unsupported):
		return &Status{Kind: StatusWarning, Message: unsupported.Error(), Code: http.StatusUnsupportedMediaType}
	case errors.As(err, &tooLarge):
		return &Status{Kind: StatusWarning, Message: tooLarge.Error(), Code: http.StatusRequestEntityTooLarge}
	case errors.As(err, &tooMany):
		return &Status{Kind: StatusWarning, Message: tooMany.Error(), Code: http.StatusBadRequest}
	case errors.As(err, &missing):
		return &Status{Kind: StatusWarning, Message: missing.Error(), Code: http.StatusBadRequest}
	case errors.As(err, &unknown):
		return &Status{Kind: StatusWarning, Message: unknown.Error(), Code: http.StatusBadRequest}
	case errors.As(err, &invalid):
		return &Status{Kind: StatusWarning, Message: invalid.Error(), Code: http.StatusBadRequest}
	case errors.As(err, &stage):
		return &Status{Kind: StatusDanger, Message: stage.Err.Error(), Code: http.StatusUnprocessableEntity}
	default:
		return &Status{Kind: StatusDanger, Message: err.Error(), Code: http.StatusInternalServerError}
	}
}
