// Package storage keeps listing images in a MongoDB GridFS bucket and serves them
// back by file id.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/safar/bookswap/internal/apperr"
)

const (
	defaultContentType = "application/octet-stream"

	// DefaultTimeout bounds a single upload or download.
	DefaultTimeout = 30 * time.Second
)

var ErrObjectNotFound = fmt.Errorf("image %w", apperr.ErrNotFound)

// Object is a stored file with its content type.
type Object struct {
	Data        []byte
	ContentType string
	Filename    string
}

type GridFS struct {
	DB            *mongo.Database
	BucketName    string
	PublicBaseURL string
	Timeout       time.Duration
}

func NewGridFS(client *mongo.Client, dbName, bucketName, publicBaseURL string, timeout time.Duration) *GridFS {
	return &GridFS{
		DB:            client.Database(dbName),
		BucketName:    bucketName,
		PublicBaseURL: publicBaseURL,
		Timeout:       timeout,
	}
}

func (g *GridFS) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// bucket opens a fresh handle per call; deadlines are set on the handle, not per operation.
func (g *GridFS) bucket(ctx context.Context) (*gridfs.Bucket, error) {
	bucket, err := gridfs.NewBucket(g.DB, options.GridFSBucket().SetName(g.BucketName))
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := bucket.SetWriteDeadline(deadline); err != nil {
			return nil, fmt.Errorf("set write deadline: %w", err)
		}
		if err := bucket.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("set read deadline: %w", err)
		}
	}

	return bucket, nil
}

// Put stores data under the file name key and returns the public URL it is served from.
func (g *GridFS) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = defaultContentType
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	bucket, err := g.bucket(ctx)
	if err != nil {
		return "", err
	}

	opts := options.GridFSUpload().SetMetadata(bson.D{
		{Key: "contentType", Value: contentType},
		{Key: "uploadedAt", Value: time.Now().UTC()},
	})

	id, err := bucket.UploadFromStream(key, bytes.NewReader(data), opts)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	return g.URL(id.Hex()), nil
}

// URL returns the public address of the file with the given hex id.
func (g *GridFS) URL(id string) string {
	return g.PublicBaseURL + "/images/" + id
}

// Open reads the file with the given hex id.
func (g *GridFS) Open(ctx context.Context, id string) (*Object, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrObjectNotFound
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	bucket, err := g.bucket(ctx)
	if err != nil {
		return nil, err
	}

	stream, err := bucket.OpenDownloadStream(objID)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrObjectNotFound
		}
		return nil, apperr.Dependency("open image "+id, err)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, apperr.Dependency("read image "+id, err)
	}

	obj := &Object{Data: data, ContentType: defaultContentType}
	if file := stream.GetFile(); file != nil {
		obj.Filename = file.Name
		if len(file.Metadata) > 0 {
			if ct, ok := file.Metadata.Lookup("contentType").StringValueOK(); ok && ct != "" {
				obj.ContentType = ct
			}
		}
	}

	return obj, nil
}

// Connect dials MongoDB and verifies the connection.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client, nil
}
