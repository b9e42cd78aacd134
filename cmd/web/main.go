package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"clipstream/internal/blob"
	"clipstream/internal/identity"
	"clipstream/internal/upload"
	"clipstream/internal/video"
	"clipstream/internal/view"
	"clipstream/internal/web"
)

// printUsage prints the usage information for the application
func printUsage() {
	fmt.Println("Usage: ./program [OPTIONS] RECORD_TYPE RECORD_OPTIONS BLOB_TYPE BLOB_OPTIONS")
	fmt.Println()
	fmt.Println("Arguments:")
	fmt.Println("  RECORD_TYPE       Record store type (sqlite, postgres, dynamodb)")
	fmt.Println("  RECORD_OPTIONS    Options for the record store (db path, connection string, or table name)")
	fmt.Println("  BLOB_TYPE         Blob store type (fs, s3, minio)")
	fmt.Println("  BLOB_OPTIONS      Options for the blob store (base dir, unused for s3, endpoint for minio)")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  S3_VIDEOS_BUCKET, S3_THUMBNAILS_BUCKET   bucket names for s3")
	fmt.Println("  MINIO_ACCESS_KEY, MINIO_SECRET_KEY       credentials for minio")
	fmt.Println("  SQS_QUEUE_URL                            enables async view-event delivery")
	fmt.Println()
	fmt.Println("Example: ./program sqlite db.db fs /var/lib/clipstream")
}

func main() {
	port := flag.Int("port", 8080, "Port number for the web server")
	host := flag.String("host", "localhost", "Host address for the web server")

	flag.Usage = printUsage
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// Best effort; production deployments configure through the environment.
	_ = godotenv.Load()

	if len(flag.Args()) != 4 {
		fmt.Println("Error: Incorrect number of arguments")
		printUsage()
		return
	}

	recordType := flag.Arg(0)
	recordOptions := flag.Arg(1)
	blobType := flag.Arg(2)
	blobOptions := flag.Arg(3)

	if *port <= 0 {
		fmt.Println("Error: Invalid port number:", *port)
		printUsage()
		return
	}

	store, err := buildStore(recordType, recordOptions)
	if err != nil {
		slog.Error("failed to create record store", "type", recordType, "error", err)
		os.Exit(1)
	}

	videoBlobs, thumbBlobs, static, err := buildBlobStores(blobType, blobOptions, *host, *port)
	if err != nil {
		slog.Error("failed to create blob store", "type", blobType, "error", err)
		os.Exit(1)
	}

	var sink view.Sink
	if queueURL := os.Getenv("SQS_QUEUE_URL"); queueURL != "" {
		sink, err = view.NewSQSSink(queueURL)
		if err != nil {
			slog.Error("failed to create SQS view sink", "error", err)
			os.Exit(1)
		}
		slog.Info("view events delivered via SQS", "queue_url", queueURL)
	} else {
		sink = view.NewStoreSink(store)
	}

	uploader := upload.NewCoordinator(identity.ContextProvider{}, store, videoBlobs, thumbBlobs, slog.Default())
	guard := video.NewGuard(store, slog.Default())
	server := web.NewServer(store, uploader, guard, sink, slog.Default())

	root := http.NewServeMux()
	if static != "" {
		root.Handle("/content/", http.StripPrefix("/content/", http.FileServer(http.Dir(static))))
	}
	root.Handle("/", server.Handler())

	listenAddr := fmt.Sprintf("%s:%d", *host, *port)
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		slog.Error("failed to listen", "addr", listenAddr, "error", err)
		os.Exit(1)
	}
	defer lis.Close()

	slog.Info("starting web server", "addr", listenAddr, "record_store", recordType, "blob_store", blobType)
	if err := http.Serve(lis, root); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func buildStore(storeType, options string) (video.Store, error) {
	switch storeType {
	case "sqlite":
		return video.NewSQLiteStore(options)
	case "postgres":
		return video.NewPostgresStore(options)
	case "dynamodb":
		return video.NewDynamoDBStore(options)
	default:
		return nil, fmt.Errorf("unsupported record store type: %s", storeType)
	}
}

// buildBlobStores returns the video and thumbnail stores plus, for the
// fs store, the directory the web server should serve under /content/.
func buildBlobStores(blobType, options, host string, port int) (videoBlobs, thumbBlobs blob.Store, static string, err error) {
	switch blobType {
	case "fs":
		baseURL := fmt.Sprintf("http://%s:%d/content", host, port)
		videoBlobs = blob.NewFSStore(filepath.Join(options, "videos"), baseURL+"/videos")
		thumbBlobs = blob.NewFSStore(filepath.Join(options, "thumbnails"), baseURL+"/thumbnails")
		static = options
	case "s3":
		videoBlobs, err = blob.NewS3Store(blob.BucketFromEnv("S3_VIDEOS_BUCKET", "clipstream-videos"))
		if err != nil {
			return nil, nil, "", err
		}
		thumbBlobs, err = blob.NewS3Store(blob.BucketFromEnv("S3_THUMBNAILS_BUCKET", "clipstream-thumbnails"))
		if err != nil {
			return nil, nil, "", err
		}
	case "minio":
		accessKey := os.Getenv("MINIO_ACCESS_KEY")
		secretKey := os.Getenv("MINIO_SECRET_KEY")
		videoBlobs, err = blob.NewMinIOStore(options, accessKey, secretKey, "videos", false)
		if err != nil {
			return nil, nil, "", err
		}
		thumbBlobs, err = blob.NewMinIOStore(options, accessKey, secretKey, "thumbnails", false)
		if err != nil {
			return nil, nil, "", err
		}
	default:
		return nil, nil, "", fmt.Errorf("unsupported blob store type: %s", blobType)
	}
	return videoBlobs, thumbBlobs, static, nil
}
