package common

import (
	"errors"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// ValidationDetails maps failing fields to the rule they violated.
func ValidationDetails(err error) any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		if err == nil {
			return nil
		}
		return map[string]string{"error": err.Error()}
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if idx := strings.Index(field, "."); idx >= 0 {
			field = field[idx+1:]
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		details[field] = rule
	}
	return details
}

// WriteError renders err, honouring the code and status of an AppError.
func WriteError(w http.ResponseWriter, err error, fallback string) {
	if appErr, ok := AsAppError(err); ok {
		JSONError(w, appErr.Status(http.StatusBadRequest), appErr.Code, appErr.Message, appErr.Details)
		return
	}
	JSONError(w, http.StatusInternalServerError, "INTERNAL", fallback, nil)
}
