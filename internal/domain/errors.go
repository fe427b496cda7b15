package domain

import "errors"

// ErrSchema is returned when input data violates the pipeline's schema
// contract (malformed bar series or order intents). Schema violations are
// unrecoverable and surfaced immediately; callers wrap it with detail via
// fmt.Errorf("...: %w", ErrSchema).
var ErrSchema = errors.New("schema violation")
