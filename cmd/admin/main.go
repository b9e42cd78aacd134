// Maintenance CLI for the video catalog. Talks to the record and blob
// stores directly, so it must run with the same credentials as the web
// service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"clipstream/internal/blob"
	"clipstream/internal/video"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsageAndExit()
	}

	store, err := storeFromEnv()
	if err != nil {
		slog.Error("failed to create record store", "error", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list":
		listVideos(store)
	case "delete":
		if len(os.Args) < 3 {
			fmt.Println("Usage: delete <video_id> [--purge]")
			os.Exit(1)
		}
		purge := len(os.Args) > 3 && os.Args[3] == "--purge"
		deleteVideo(store, os.Args[2], purge)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsageAndExit()
	}
}

func printUsageAndExit() {
	fmt.Println("Usage:")
	fmt.Println("  list                        - List public videos in the catalog")
	fmt.Println("  delete <video_id> [--purge] - Delete a video record, optionally purging its stored assets")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  RECORD_STORE_TYPE     sqlite, postgres, or dynamodb (default dynamodb)")
	fmt.Println("  RECORD_STORE_OPTIONS  db path, connection string, or table name")
	fmt.Println("  BLOB_STORE_TYPE       fs, s3, or minio (required for --purge)")
	os.Exit(1)
}

func listVideos(store video.Store) {
	ctx := context.Background()

	vids, err := store.ListPublic(ctx)
	if err != nil {
		slog.Error("failed to list videos", "error", err)
		os.Exit(1)
	}

	for _, v := range vids {
		fmt.Printf("%s  owner=%s  public=%t  views=%d  %q\n", v.ID, v.OwnerID, v.IsPublic, v.ViewsCount, v.Title)
	}
	fmt.Printf("%d video(s)\n", len(vids))
}

func deleteVideo(store video.Store, id string, purge bool) {
	ctx := context.Background()

	rec, err := store.Get(ctx, id)
	if err != nil {
		slog.Error("failed to fetch video", "id", id, "error", err)
		os.Exit(1)
	}
	if rec == nil {
		fmt.Printf("No video with id %s\n", id)
		os.Exit(1)
	}

	if err := store.Delete(ctx, id); err != nil {
		slog.Error("failed to delete record", "id", id, "error", err)
		os.Exit(1)
	}
	fmt.Printf("Deleted record %s\n", id)

	if !purge {
		return
	}

	videoBlobs, thumbBlobs, err := blobStoresFromEnv()
	if err != nil {
		slog.Error("failed to create blob stores", "error", err)
		os.Exit(1)
	}

	if key := keyFromURL(rec.VideoURL); key != "" {
		if err := videoBlobs.DeletePrefix(ctx, key); err != nil {
			slog.Error("failed to purge video asset", "key", key, "error", err)
		} else {
			fmt.Printf("Purged video asset %s\n", key)
		}
	}
	if rec.ThumbnailURL != nil {
		if key := keyFromURL(*rec.ThumbnailURL); key != "" {
			if err := thumbBlobs.DeletePrefix(ctx, key); err != nil {
				slog.Error("failed to purge thumbnail asset", "key", key, "error", err)
			} else {
				fmt.Printf("Purged thumbnail asset %s\n", key)
			}
		}
	}
}

// keyFromURL recovers the storage key from a stored asset URL. Keys have
// the form {ownerID}/{name}, so the key is the last two path segments.
func keyFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 {
		return ""
	}
	owner, err := url.PathUnescape(segments[len(segments)-2])
	if err != nil {
		return ""
	}
	name, err := url.PathUnescape(segments[len(segments)-1])
	if err != nil {
		return ""
	}
	return owner + "/" + name
}

func storeFromEnv() (video.Store, error) {
	storeType := os.Getenv("RECORD_STORE_TYPE")
	options := os.Getenv("RECORD_STORE_OPTIONS")

	switch storeType {
	case "sqlite":
		return video.NewSQLiteStore(options)
	case "postgres":
		return video.NewPostgresStore(options)
	case "dynamodb", "":
		if options == "" {
			options = "clipstream-videos-metadata"
		}
		return video.NewDynamoDBStore(options)
	default:
		return nil, fmt.Errorf("unsupported record store type: %s", storeType)
	}
}

func blobStoresFromEnv() (blob.Store, blob.Store, error) {
	blobType := os.Getenv("BLOB_STORE_TYPE")
	options := os.Getenv("BLOB_STORE_OPTIONS")

	switch blobType {
	case "fs":
		if options == "" {
			options = "./content"
		}
		return blob.NewFSStore(filepath.Join(options, "videos"), ""),
			blob.NewFSStore(filepath.Join(options, "thumbnails"), ""), nil
	case "s3", "":
		videos, err := blob.NewS3Store(blob.BucketFromEnv("S3_VIDEOS_BUCKET", "clipstream-videos"))
		if err != nil {
			return nil, nil, err
		}
		thumbs, err := blob.NewS3Store(blob.BucketFromEnv("S3_THUMBNAILS_BUCKET", "clipstream-thumbnails"))
		if err != nil {
			return nil, nil, err
		}
		return videos, thumbs, nil
	case "minio":
		access := os.Getenv("MINIO_ACCESS_KEY")
		secret := os.Getenv("MINIO_SECRET_KEY")
		videos, err := blob.NewMinIOStore(options, access, secret, "videos", false)
		if err != nil {
			return nil, nil, err
		}
		thumbs, err := blob.NewMinIOStore(options, access, secret, "thumbnails", false)
		if err != nil {
			return nil, nil, err
		}
		return videos, thumbs, nil
	default:
		return nil, nil, fmt.Errorf("unsupported blob store type: %s", blobType)
	}
}
