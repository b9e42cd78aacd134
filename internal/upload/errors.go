package upload

import "fmt"

// Transfer stages, used to tag which asset failed.
const (
	StageVideo     = "video"
	StageThumbnail = "thumbnail"
)

// TransferError reports a failed asset transfer, tagged with the stage
// that failed.
type TransferError struct {
	Stage string
	Err   error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s transfer failed: %v", e.Stage, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
