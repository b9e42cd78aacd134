package video

import (
	"context"
	"time"
)

// Video is one uploaded video record. VideoURL never changes after the
// record is created; IsPublic is the only field mutated afterwards.
type Video struct {
	ID           string
	OwnerID      string
	Title        string
	Description  *string
	VideoURL     string
	ThumbnailURL *string
	IsPublic     bool
	ViewsCount   int64
	CreatedAt    time.Time
}

// ViewEvent records a single playback view. ViewerID is nil for
// anonymous viewers. Events are write-only: nothing in this codebase
// reads them back.
type ViewEvent struct {
	VideoID  string
	ViewerID *string
}

// Store is the record-store capability for video metadata. Get returns
// (nil, nil) when no record exists.
type Store interface {
	Insert(ctx context.Context, v *Video) (*Video, error)
	Get(ctx context.Context, id string) (*Video, error)
	ListPublic(ctx context.Context) ([]Video, error)
	ListByOwner(ctx context.Context, ownerID string, includePrivate bool) ([]Video, error)
	SetVisibility(ctx context.Context, id string, public bool) error
	Delete(ctx context.Context, id string) error
	InsertViewEvent(ctx context.Context, ev ViewEvent) error
}
