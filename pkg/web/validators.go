package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// ParamValidator is a function type that validates a parameter.
type ParamValidator func(valueToTest int64) bool

// gte returns a ParamValidator that checks if the argument is greater than or equal to lower.
func gte(lower int64) ParamValidator {
	return func(v int64) bool { return v >= lower }
}

// between returns a ParamValidator that checks if the argument lies within [lower, upper].
func between(lower, upper int64) ParamValidator {
	return func(v int64) bool { return v >= lower && v <= upper }
}

// ParseOptionalGte parses the query parameter key; an absent parameter yields def.
func ParseOptionalGte(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, lower int64, def int32) (int32, bool) {
	return parseValidate(r, w, logger, key, gte(lower), def)
}

// ParseOptionalBetween parses the query parameter key within [lower, upper]; an absent parameter yields def.
func ParseOptionalBetween(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, lower, upper int64, def int32) (int32, bool) {
	return parseValidate(r, w, logger, key, between(lower, upper), def)
}

func parseValidate(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, pValidator ParamValidator, def int32) (int32, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return def, true
	}
	intValue, err := strconv.ParseInt(value, 10, 32)
	if err != nil || !pValidator(intValue) {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s number: %s", key, value))
		return 0, false
	}
	return int32(intValue), true
}
