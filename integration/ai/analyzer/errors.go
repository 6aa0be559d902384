package analyzer

import "errors"

var (
	ErrInvalidAPIKey       = errors.New("analyzer: api key is empty")
	ErrUnsupportedProvider = errors.New("analyzer: unsupported provider")
	ErrEmptyPrompt         = errors.New("analyzer: prompt is empty")
	ErrNoResponse          = errors.New("analyzer: model returned no content")
	ErrRequestFailed       = errors.New("analyzer: request failed")
)
