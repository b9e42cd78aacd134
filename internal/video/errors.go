package video

import "errors"

var (
	// ErrUnauthenticated means no actor identity was present for an
	// operation that requires one.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrUnauthorized means the actor is not the record's owner.
	ErrUnauthorized = errors.New("not the video owner")

	// ErrNotFound means the record does not exist.
	ErrNotFound = errors.New("video not found")

	// ErrPrivateVideo means the record is private and the viewer is
	// not its owner.
	ErrPrivateVideo = errors.New("video is private")

	// ErrValidation covers bad titles and descriptions.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidAsset means an asset's declared media class does not
	// match what the operation expects.
	ErrInvalidAsset = errors.New("invalid asset type")

	// ErrRecordWrite wraps record-store write failures.
	ErrRecordWrite = errors.New("record write failed")
)
