package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/oklog/ulid/v2"
)

const (
	defaultUploadExpiry = 15 * time.Minute
	defaultMaxSize      = 100 << 20
)

var (
	errNoSigner = errors.New("storage: signer is required")
	errNoBucket = errors.New("storage: bucket name is required")
	// ErrContentTypeDenied is returned for uploads outside the allowed media types.
	ErrContentTypeDenied = errors.New("storage: content type not allowed")
)

// DefaultAllowedContentTypes lists the media types accepted for delivery files.
var DefaultAllowedContentTypes = []string{"image/*", "video/*", "audio/*", "application/pdf", "application/zip", "text/plain"}

// Client signs upload and download URLs for order delivery files.
type Client struct {
	bucket       string
	signer       Signer
	expiry       time.Duration
	maxSize      int64
	contentTypes []string
	now          func() time.Time
	newID        func() string
}

// ClientOption customises client behaviour.
type ClientOption func(*Client)

// WithExpiry overrides the lifetime of signed URLs.
func WithExpiry(expiry time.Duration) ClientOption {
	return func(c *Client) {
		if expiry > 0 {
			c.expiry = expiry
		}
	}
}

// WithMaxSize bounds the upload size through x-goog-content-length-range.
func WithMaxSize(size int64) ClientOption {
	return func(c *Client) {
		if size > 0 {
			c.maxSize = size
		}
	}
}

// WithClock injects a custom clock.
func WithClock(clock func() time.Time) ClientOption {
	return func(c *Client) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithIDGenerator overrides upload id generation.
func WithIDGenerator(fn func() string) ClientOption {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// NewClient constructs a signed URL client for bucket.
func NewClient(bucket string, signer Signer, opts ...ClientOption) (*Client, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errNoBucket
	}
	if signer == nil || strings.TrimSpace(signer.Email()) == "" {
		return nil, errNoSigner
	}
	c := &Client{
		bucket:       bucket,
		signer:       signer,
		expiry:       defaultUploadExpiry,
		maxSize:      defaultMaxSize,
		contentTypes: DefaultAllowedContentTypes,
		now:          time.Now,
		newID:        func() string { return strings.ToLower(ulid.Make().String()) },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Bucket returns the attachments bucket.
func (c *Client) Bucket() string {
	return c.bucket
}

// UploadRequest describes a delivery file the seller intends to upload.
type UploadRequest struct {
	OrderID     string
	FileName    string
	ContentType string
}

// SignedURL describes a signed URL and the headers the client must send with it.
type SignedURL struct {
	URL       string
	Method    string
	ObjectRef string
	ExpiresAt time.Time
	Headers   map[string]string
}

// SignUpload returns a V4 PUT URL for a new object under the order's delivery prefix.
func (c *Client) SignUpload(ctx context.Context, req UploadRequest) (SignedURL, error) {
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if contentType == "" || !contentTypeAllowed(contentType, c.contentTypes) {
		return SignedURL{}, fmt.Errorf("%w: %q", ErrContentTypeDenied, req.ContentType)
	}
	object, err := DeliveryObjectPath(req.OrderID, c.newID(), req.FileName)
	if err != nil {
		return SignedURL{}, err
	}

	sizeRange := fmt.Sprintf("0,%d", c.maxSize)
	expires := c.now().Add(c.expiry)
	url, err := gcs.SignedURL(c.bucket, object, &gcs.SignedURLOptions{
		GoogleAccessID: c.signer.Email(),
		Scheme:         gcs.SigningSchemeV4,
		Method:         "PUT",
		ContentType:    contentType,
		Headers:        []string{"x-goog-content-length-range:" + sizeRange},
		Expires:        expires,
		SignBytes: func(payload []byte) ([]byte, error) {
			return c.signer.SignBytes(ctx, payload)
		},
	})
	if err != nil {
		return SignedURL{}, fmt.Errorf("storage: sign upload url: %w", err)
	}
	return SignedURL{
		URL:       url,
		Method:    "PUT",
		ObjectRef: ObjectRef(c.bucket, object),
		ExpiresAt: expires,
		Headers: map[string]string{
			"Content-Type":                contentType,
			"x-goog-content-length-range": sizeRange,
		},
	}, nil
}

// SignDownload returns a short-lived GET URL for an object reference in the attachments bucket.
func (c *Client) SignDownload(ctx context.Context, ref string) (SignedURL, error) {
	bucket, object, err := ParseObjectRef(ref)
	if err != nil {
		return SignedURL{}, err
	}
	if bucket != c.bucket {
		return SignedURL{}, fmt.Errorf("%w: bucket %q is not the attachments bucket", ErrInvalidObjectRef, bucket)
	}
	expires := c.now().Add(c.expiry)
	url, err := gcs.SignedURL(bucket, object, &gcs.SignedURLOptions{
		GoogleAccessID: c.signer.Email(),
		Scheme:         gcs.SigningSchemeV4,
		Method:         "GET",
		Expires:        expires,
		SignBytes: func(payload []byte) ([]byte, error) {
			return c.signer.SignBytes(ctx, payload)
		},
	})
	if err != nil {
		return SignedURL{}, fmt.Errorf("storage: sign download url: %w", err)
	}
	return SignedURL{URL: url, Method: "GET", ObjectRef: ref, ExpiresAt: expires}, nil
}

func contentTypeAllowed(contentType string, allowed []string) bool {
	for _, candidate := range allowed {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate == "*" || candidate == contentType {
			return true
		}
		if prefix, ok := strings.CutSuffix(candidate, "*"); ok && strings.HasSuffix(prefix, "/") && strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}
