package pipeline

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Accepted run-parameter key aliases, legacy spellings included. The primary
// key is first; fallbacks are tried in order.
var (
	paperIDKeys = []string{"paperId", "paper", "paperGuid", "paper_id", "documentId"}
	userIDKeys  = []string{"userId", "user", "userGuid", "user_id"}
)

// Context keys for identifiers already resolved by a prior step.
const (
	ctxKeyPaperID = "resolvedPaperId"
	ctxKeyUserID  = "resolvedUserId"
)

// Identifier resolution failures are configuration errors: fatal, never
// retried. Missing and unparseable are distinguishable.
var (
	ErrParamMissing     = eris.New("pipeline: parameter missing")
	ErrParamUnparseable = eris.New("pipeline: parameter unparseable")
)

// RunParams is the raw parameter map a run is launched with.
type RunParams map[string]any

// ResolveDocumentID resolves the paper identifier: typed context value
// first, then the parameter key aliases.
func ResolveDocumentID(ec *ExecutionContext, params RunParams) (uuid.UUID, error) {
	return resolveIdentifier(ec, params, ctxKeyPaperID, paperIDKeys)
}

// ResolveUserID resolves the requesting user identifier.
func ResolveUserID(ec *ExecutionContext, params RunParams) (uuid.UUID, error) {
	return resolveIdentifier(ec, params, ctxKeyUserID, userIDKeys)
}

func resolveIdentifier(ec *ExecutionContext, params RunParams, ctxKey string, keys []string) (uuid.UUID, error) {
	if ec != nil {
		if v, ok := ec.Get(ctxKey); ok {
			if id, ok := v.(uuid.UUID); ok && id != uuid.Nil {
				return id, nil
			}
		}
	}

	for _, key := range keys {
		raw, ok := params[key]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case uuid.UUID:
			return v, nil
		case string:
			trimmed := strings.TrimSpace(v)
			if trimmed == "" {
				continue
			}
			id, err := uuid.Parse(trimmed)
			if err != nil {
				return uuid.Nil, eris.Wrap(ErrParamUnparseable,
					fmt.Sprintf("pipeline: parameter %s value %q is not a valid UUID", keys[0], trimmed))
			}
			return id, nil
		default:
			return uuid.Nil, eris.Wrap(ErrParamUnparseable,
				fmt.Sprintf("pipeline: parameter %s has unsupported type %T", keys[0], raw))
		}
	}

	return uuid.Nil, eris.Wrap(ErrParamMissing,
		fmt.Sprintf("pipeline: parameter %s not found under any accepted key %v", keys[0], keys))
}
