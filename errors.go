package wikigen

import "errors"

var (
	// ErrInvalidConfig is returned when a LoopConfig fails validation.
	ErrInvalidConfig = errors.New("invalid loop config")

	// ErrEmptyResponse is returned by a Role when the model produced no
	// content choices.
	ErrEmptyResponse = errors.New("model returned no choices")

	// ErrEmptyOutput is returned by output parsers when the generator
	// produced no usable content. It routes the attempt through the
	// parse-failure skip path.
	ErrEmptyOutput = errors.New("generator produced empty output")

	// ErrNoStructure is returned by the pipeline when no structure
	// version exists for a (repository, branch, scope) that an
	// incremental run depends on.
	ErrNoStructure = errors.New("no structure version found")

	// ErrAllAttemptsFailed is returned when every loop attempt's output
	// failed to parse, leaving no artifact to store.
	ErrAllAttemptsFailed = errors.New("all attempts failed to produce parsable output")
)
