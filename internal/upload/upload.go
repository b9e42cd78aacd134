// Package upload orchestrates the multi-stage video upload: ordered
// asset transfers followed by a single record commit.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"clipstream/internal/blob"
	"clipstream/internal/identity"
	"clipstream/internal/video"
)

const (
	maxTitleLen       = 100
	maxDescriptionLen = 1000
)

// Asset is one binary selected for upload, with its declared media type.
type Asset struct {
	Name        string
	ContentType string
	Data        []byte
}

// Request carries everything needed for one submission. Thumbnail is
// optional.
type Request struct {
	Video       *Asset
	Thumbnail   *Asset
	Title       string
	Description string
	IsPublic    bool
}

// ProgressFunc receives the synthetic progress percentage. Values are
// monotonically non-decreasing and reach 100 only on full success.
type ProgressFunc func(percent int)

// Coordinator runs submissions against the blob stores and the record
// store. Stages are sequential: each depends on the previous stage's
// output. No stage is retried and no partial cleanup is attempted, so a
// late failure can leave an orphaned stored asset behind.
type Coordinator struct {
	ids        identity.Provider
	store      video.Store
	videoBlobs blob.Store
	thumbBlobs blob.Store
	log        *slog.Logger
}

func NewCoordinator(ids identity.Provider, store video.Store, videoBlobs, thumbBlobs blob.Store, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		ids:        ids,
		store:      store,
		videoBlobs: videoBlobs,
		thumbBlobs: thumbBlobs,
		log:        log,
	}
}

// CheckThumbnail validates a candidate thumbnail's media class. Called
// at selection time so the user learns about a bad pick before the
// upload is committed.
func CheckThumbnail(a *Asset) error {
	if a != nil && !strings.HasPrefix(a.ContentType, "image/") {
		return video.ErrInvalidAsset
	}
	return nil
}

// Submit transfers the assets and commits the record. On success the
// returned record carries its store-assigned id so the caller can
// navigate straight to playback.
func (c *Coordinator) Submit(ctx context.Context, req Request, progress ProgressFunc) (*video.Video, error) {
	notify := newProgressNotifier(progress)

	ownerID, ok := c.ids.Current(ctx)
	if !ok {
		return nil, video.ErrUnauthenticated
	}

	if req.Video == nil || !strings.HasPrefix(req.Video.ContentType, "video/") {
		return nil, video.ErrInvalidAsset
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", video.ErrValidation)
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return nil, fmt.Errorf("%w: title exceeds %d characters", video.ErrValidation, maxTitleLen)
	}

	var description *string
	if d := strings.TrimSpace(req.Description); d != "" {
		if utf8.RuneCountInString(d) > maxDescriptionLen {
			return nil, fmt.Errorf("%w: description exceeds %d characters", video.ErrValidation, maxDescriptionLen)
		}
		description = &d
	}

	notify(0)

	videoKey := blob.NewKey(ownerID, req.Video.Name)
	notify(20)
	if err := c.videoBlobs.Put(ctx, videoKey, req.Video.ContentType, req.Video.Data); err != nil {
		c.log.Error("video transfer failed", "owner_id", ownerID, "key", videoKey, "error", err)
		return nil, &TransferError{Stage: StageVideo, Err: err}
	}
	notify(60)

	videoURL := c.videoBlobs.PublicURL(videoKey)

	var thumbnailURL *string
	if req.Thumbnail != nil {
		thumbKey := blob.NewKey(ownerID, req.Thumbnail.Name)
		if err := c.thumbBlobs.Put(ctx, thumbKey, req.Thumbnail.ContentType, req.Thumbnail.Data); err != nil {
			// The stored video asset is orphaned here on purpose:
			// no compensating delete, no record.
			c.log.Error("thumbnail transfer failed", "owner_id", ownerID, "key", thumbKey, "error", err)
			return nil, &TransferError{Stage: StageThumbnail, Err: err}
		}
		u := c.thumbBlobs.PublicURL(thumbKey)
		thumbnailURL = &u
	}
	notify(80)

	created, err := c.store.Insert(ctx, &video.Video{
		OwnerID:      ownerID,
		Title:        title,
		Description:  description,
		VideoURL:     videoURL,
		ThumbnailURL: thumbnailURL,
		IsPublic:     req.IsPublic,
	})
	if err != nil {
		c.log.Error("record insert failed", "owner_id", ownerID, "error", err)
		return nil, fmt.Errorf("%w: %w", video.ErrRecordWrite, err)
	}
	notify(100)

	c.log.Info("video uploaded", "video_id", created.ID, "owner_id", ownerID, "is_public", created.IsPublic)
	return created, nil
}

// newProgressNotifier wraps a ProgressFunc so reported values never
// decrease.
func newProgressNotifier(fn ProgressFunc) func(int) {
	if fn == nil {
		return func(int) {}
	}
	last := -1
	return func(pct int) {
		if pct < last {
			return
		}
		last = pct
		fn(pct)
	}
}
