package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrInvalidObjectRef is returned when a delivery file reference does not belong to the order.
var ErrInvalidObjectRef = errors.New("storage: invalid object reference")

const deliveriesSegment = "deliveries"

// DeliveryObjectPath composes orders/{orderID}/deliveries/{uploadID}/{fileName}.
func DeliveryObjectPath(orderID, uploadID, fileName string) (string, error) {
	orderID, err := validateSegment("orderID", orderID)
	if err != nil {
		return "", err
	}
	uploadID, err = validateSegment("uploadID", uploadID)
	if err != nil {
		return "", err
	}
	fileName, err = validateSegment("fileName", fileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("orders/%s/%s/%s/%s", orderID, deliveriesSegment, uploadID, fileName), nil
}

// ObjectRef formats a gs:// reference.
func ObjectRef(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}

// ParseObjectRef splits a gs://bucket/object reference.
func ParseObjectRef(ref string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(ref), "gs://")
	if !ok {
		return "", "", fmt.Errorf("%w: %q is not a gs:// reference", ErrInvalidObjectRef, ref)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("%w: %q lacks bucket or object", ErrInvalidObjectRef, ref)
	}
	return bucket, object, nil
}

// ValidateDeliveryRef checks that ref points into the order's delivery prefix of bucket.
func ValidateDeliveryRef(bucket, orderID, ref string) error {
	refBucket, object, err := ParseObjectRef(ref)
	if err != nil {
		return err
	}
	if refBucket != bucket {
		return fmt.Errorf("%w: bucket %q is not the attachments bucket", ErrInvalidObjectRef, refBucket)
	}
	if path.Clean(object) != object || strings.Contains(object, "..") {
		return fmt.Errorf("%w: object path is not canonical", ErrInvalidObjectRef)
	}
	prefix := fmt.Sprintf("orders/%s/%s/", orderID, deliveriesSegment)
	if !strings.HasPrefix(object, prefix) || len(object) == len(prefix) {
		return fmt.Errorf("%w: object does not belong to order %s", ErrInvalidObjectRef, orderID)
	}
	return nil
}

func validateSegment(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: %s is required", name)
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: %s contains invalid path characters", name)
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: %s contains invalid traversal sequence", name)
	}
	return value, nil
}
