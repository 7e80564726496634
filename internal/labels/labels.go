package labels

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"clinic-inventory-api-server/internal/s3"
)

// Local generates printable lot references without any external service.
// The reference is opaque to the inventory core; only its stability matters.
type Local struct{}

func (Local) LotReference(ctx context.Context, kind, itemName string) (string, error) {
	return fmt.Sprintf("QR-%s", uuid.New().String()[:8]), nil
}

// S3 generates a small SVG label per lot, uploads it, and uses the object
// URL as the printable reference.
type S3 struct {
	Uploader *s3.Uploader
}

func (g *S3) LotReference(ctx context.Context, kind, itemName string) (string, error) {
	code := uuid.New().String()[:8]
	objectKey := fmt.Sprintf("labels/%s/%s.svg", kind, code)
	body := labelSVG(itemName, code)
	url, err := g.Uploader.UploadFile(ctx, strings.NewReader(body), objectKey, "image/svg+xml")
	if err != nil {
		return "", fmt.Errorf("failed to upload lot label: %w", err)
	}
	return url, nil
}

func labelSVG(itemName, code string) string {
	return fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="200" height="80">`+
			`<text x="10" y="30" font-size="14">%s</text>`+
			`<text x="10" y="60" font-size="12" font-family="monospace">%s</text>`+
			`</svg>`, itemName, code)
}
