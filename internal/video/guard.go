package video

import (
	"context"
	"fmt"
	"log/slog"
)

// Guard gates owner-only mutations. The UI hides these affordances from
// non-owners, but that is not a security boundary: every call is checked
// here against the record's owning identity.
type Guard struct {
	store Store
	log   *slog.Logger
}

func NewGuard(store Store, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{store: store, log: log}
}

// SetVisibility flips a record between public and private. On success the
// in-memory record reflects the new value; on store failure the prior
// value is retained.
func (g *Guard) SetVisibility(ctx context.Context, rec *Video, viewerID string, public bool) error {
	if viewerID == "" || viewerID != rec.OwnerID {
		return ErrUnauthorized
	}

	if err := g.store.SetVisibility(ctx, rec.ID, public); err != nil {
		return fmt.Errorf("%w: %w", ErrRecordWrite, err)
	}

	rec.IsPublic = public
	g.log.Info("visibility updated", "video_id", rec.ID, "is_public", public)
	return nil
}

// Delete removes the record. Irreversible. Stored assets are not cascaded;
// cleanup is an explicit admin operation.
func (g *Guard) Delete(ctx context.Context, rec *Video, viewerID string) error {
	if viewerID == "" || viewerID != rec.OwnerID {
		return ErrUnauthorized
	}

	if err := g.store.Delete(ctx, rec.ID); err != nil {
		return fmt.Errorf("%w: %w", ErrRecordWrite, err)
	}

	g.log.Info("video deleted", "video_id", rec.ID)
	return nil
}
