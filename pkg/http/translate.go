package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	apperrors "tourhub/pkg/errors"
	"tourhub/pkg/validation"
)

// mongo server code for a document rejected by a $jsonSchema validator
const mongoDocumentValidationFailure = 121

var (
	exposeInternal atomic.Bool
	dupKeyRegex    = regexp.MustCompile(`dup key: \{ ?([A-Za-z0-9_.]+):`)
)

// ExposeInternalErrors controls whether unexpected error text reaches the
// client. It is enabled outside production.
func ExposeInternalErrors(expose bool) {
	exposeInternal.Store(expose)
}

// Translate maps any error returned by a handler or service to an AppError.
func Translate(err error) *apperrors.AppError {
	if err == nil {
		return apperrors.Internal("An unexpected error occurred", nil)
	}

	if apperrors.IsAppError(err) {
		return apperrors.AsAppError(err)
	}

	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs.AppError()
	}

	var rawVerrs validator.ValidationErrors
	if errors.As(err, &rawVerrs) {
		return validation.Translate(rawVerrs).AppError()
	}

	if mongo.IsDuplicateKeyError(err) {
		conflict := apperrors.Conflict("A record with this value already exists")
		if m := dupKeyRegex.FindStringSubmatch(err.Error()); len(m) == 2 {
			return conflict.WithDetails(map[string]any{"field": m[1]})
		}
		return conflict
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == mongoDocumentValidationFailure {
		return apperrors.InvalidInput("Document failed validation")
	}
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, we := range writeErr.WriteErrors {
			if we.Code == mongoDocumentValidationFailure {
				return apperrors.InvalidInput("Document failed validation")
			}
		}
	}

	if errors.Is(err, primitive.ErrInvalidHex) {
		return apperrors.InvalidInput("Invalid ID format")
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return apperrors.Unauthorized("Token expired")
	}
	if errors.Is(err, jwt.ErrTokenMalformed) ||
		errors.Is(err, jwt.ErrTokenSignatureInvalid) ||
		errors.Is(err, jwt.ErrTokenNotValidYet) ||
		errors.Is(err, jwt.ErrTokenUnverifiable) ||
		errors.Is(err, jwt.ErrTokenInvalidClaims) {
		return apperrors.Unauthorized("Invalid token")
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return apperrors.InvalidInput("Malformed JSON body")
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return apperrors.Wrap(err, apperrors.CodeBadRequest, "Request body too large", http.StatusRequestEntityTooLarge)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout("Request timed out")
	}

	message := "Internal server error"
	if exposeInternal.Load() {
		message = err.Error()
	}
	return apperrors.Internal(message, err)
}
