package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"slackr-server/middleware"
	"slackr-server/store"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var validate = validator.New()

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    int               `json:"code"`
	Name    string            `json:"name"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, ErrorResponse{Code: code, Name: "System Error", Message: message})
}

// writeStoreError maps store errors onto HTTP responses.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrMessageNotFound),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrChannelNotFound),
		errors.Is(err, store.ErrInvalidReact),
		errors.Is(err, store.ErrAlreadyReacted),
		errors.Is(err, store.ErrNotReacted),
		errors.Is(err, store.ErrStartTooHigh),
		errors.Is(err, store.ErrAlreadyPinned),
		errors.Is(err, store.ErrNotPinned),
		errors.Is(err, store.ErrUsernameTaken):
		writeError(w, http.StatusBadRequest, sentence(err.Error()))
	case errors.Is(err, store.ErrNotMember),
		errors.Is(err, store.ErrNotOwner):
		writeError(w, http.StatusForbidden, sentence(err.Error()))
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("store error")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func sentence(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// decodeBody decodes a JSON body into v and validates its struct tags.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}

	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return false
		}

		structType := reflect.TypeOf(v)
		if structType.Kind() == reflect.Ptr {
			structType = structType.Elem()
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			name := fe.StructField()
			if field, ok := structType.FieldByName(fe.StructField()); ok {
				name = strings.Split(field.Tag.Get("json"), ",")[0]
			}
			fields[name] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Code:    http.StatusBadRequest,
			Name:    "System Error",
			Message: "Invalid request body",
			Fields:  fields,
		})
		return false
	}

	return true
}

var errInvalidToken = errors.New("invalid token")

// resolveToken validates a token and rejects ones revoked by logout. Errors
// other than errInvalidToken come from the store.
func resolveToken(s *store.Store, token string) (*middleware.Claims, error) {
	claims, err := middleware.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	if claims.ID == "" {
		return claims, nil
	}
	revoked, err := s.IsTokenRevoked(claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("%w: logged out", errInvalidToken)
	}
	return claims, nil
}

// authenticate resolves the caller from the token sent with the request.
func authenticate(s *store.Store, w http.ResponseWriter, r *http.Request, bodyToken string) (int, bool) {
	claims, err := resolveToken(s, middleware.RequestToken(r, bodyToken))
	if errors.Is(err, errInvalidToken) {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return 0, false
	}
	if err != nil {
		writeStoreError(w, r, err)
		return 0, false
	}
	return claims.UserID, true
}
