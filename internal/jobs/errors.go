package jobs

import "errors"

var (
	ErrStoreNil           = errors.New("jobs: records store is nil")
	ErrStorageNil         = errors.New("jobs: artifact storage is nil")
	ErrInvalidReport      = errors.New("jobs: invalid report request")
	ErrInvalidDocument    = errors.New("jobs: invalid document request")
	ErrUnsupportedFormat  = errors.New("jobs: unsupported report format")
	ErrNoRecipientAddress = errors.New("jobs: user has no email address")
	ErrNoPushTokens       = errors.New("jobs: user has no push tokens")
)
