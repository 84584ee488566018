package contract

import "errors"

// Sentinel failure modes of the agent layer. Agents wrap these with
// fmt.Errorf("%w: ...") so callers can classify without string matching.
var (
	ErrModelInvoke     = errors.New("copilot model invoke failed")
	ErrSchemaViolation = errors.New("agent reply violates the expected schema")
	ErrPromptMissing   = errors.New("agent prompt is missing")
	ErrValidation      = errors.New("request validation failed")
)
