package storeapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"github.com/storefront/client/internal/domain/shared"
	"github.com/storefront/client/internal/infrastructure/httpclient"
)

// TryOnAPI uploads a person photo and a garment image to the virtual
// try-on service.
type TryOnAPI struct {
	r        Requester
	endpoint string
	timeout  time.Duration
}

// Image is one uploaded file.
type Image struct {
	Name        string
	ContentType string
	Data        io.Reader
}

// TryOnRequest holds the two images and an optional product reference.
type TryOnRequest struct {
	Person    Image
	Garment   Image
	ProductID shared.ID
}

// TryOnResult is the service response. ImageBase64 is empty when no
// image was produced.
type TryOnResult struct {
	Status      string `json:"status" yaml:"status"`
	ImageBase64 string `json:"image_base64,omitempty" yaml:"-"`
	ImageID     string `json:"image_id,omitempty" yaml:"image_id,omitempty"`
	Message     string `json:"message,omitempty" yaml:"message,omitempty"`
}

// OK reports whether an image was generated.
func (r *TryOnResult) OK() bool {
	return r.Status == "ok" && r.ImageBase64 != ""
}

// Submit uploads the images. It is never retried; generation is slow and
// not idempotent.
func (t *TryOnAPI) Submit(ctx context.Context, req TryOnRequest) (*TryOnResult, error) {
	if req.Person.Data == nil || req.Garment.Data == nil {
		return nil, fmt.Errorf("%w: person and garment images are required", shared.ErrInvalidInput)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := writeImage(w, "vton_image", req.Person, "person.jpg"); err != nil {
		return nil, err
	}
	if err := writeImage(w, "garment_image", req.Garment, "garment.jpg"); err != nil {
		return nil, err
	}
	if !req.ProductID.IsZero() {
		if err := w.WriteField("product_id", req.ProductID.String()); err != nil {
			return nil, fmt.Errorf("writing product_id: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	var out TryOnResult
	err := call(ctx, t.r, httpclient.Request{
		Method:      http.MethodPost,
		Path:        t.endpoint,
		RawBody:     buf.Bytes(),
		ContentType: w.FormDataContentType(),
		NoRetry:     true,
		Timeout:     t.timeout,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchGarment downloads a garment image, e.g. a product photo URL.
func (t *TryOnAPI) FetchGarment(ctx context.Context, imageURL string) (*Image, error) {
	resp, err := t.r.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: imageURL, NoRetry: true})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch garment image: %w", err)
	}
	ct := resp.Headers.Get("Content-Type")
	if ct == "" {
		ct = "image/jpeg"
	}
	return &Image{Name: "garment.jpg", ContentType: ct, Data: bytes.NewReader(resp.Body)}, nil
}

func writeImage(w *multipart.Writer, field string, img Image, fallback string) error {
	name := img.Name
	if name == "" {
		name = fallback
	}
	ct := img.ContentType
	if ct == "" {
		ct = contentTypeFor(name)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filepath.Base(name)))
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("creating %s part: %w", field, err)
	}
	if _, err := io.Copy(part, img.Data); err != nil {
		return fmt.Errorf("writing %s: %w", field, err)
	}
	return nil
}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
