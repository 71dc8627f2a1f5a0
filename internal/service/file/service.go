package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoding
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/apperr"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/storage"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const (
	DefaultMaxImageWidth  = 1920
	DefaultMaxImageHeight = 1080
	DefaultMaxImageBytes  = 400 * 1024
	DefaultMaxUploadBytes = 10 << 20
)

var (
	ErrUnsupportedImage = apperr.Validation("invalid file type: only jpg, jpeg, png allowed")
	ErrImageTooLarge    = apperr.Validation("image exceeds the upload size limit")
	ErrFileNotFound     = apperr.NotFound("file not found")
)

type FileService interface {
	// UploadScreenshot downscales a screenshot image, stores it as JPEG and
	// returns its storage key.
	UploadScreenshot(ctx context.Context, employeeID, sessionID string, file io.Reader, filename string) (string, error)

	DeleteFile(ctx context.Context, path string) error

	// OpenFile streams a stored file. The caller closes the reader.
	OpenFile(ctx context.Context, path string) (io.ReadCloser, error)
}

type Config struct {
	MaxWidth       int
	MaxHeight      int
	MaxImageBytes  int
	MaxUploadBytes int64
}

func (c Config) withDefaults() Config {
	if c.MaxWidth <= 0 {
		c.MaxWidth = DefaultMaxImageWidth
	}
	if c.MaxHeight <= 0 {
		c.MaxHeight = DefaultMaxImageHeight
	}
	if c.MaxImageBytes <= 0 {
		c.MaxImageBytes = DefaultMaxImageBytes
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return c
}

type fileServiceImpl struct {
	storage storage.FileStorage
	cfg     Config
}

func NewFileService(storage storage.FileStorage, cfg Config) FileService {
	return &fileServiceImpl{
		storage: storage,
		cfg:     cfg.withDefaults(),
	}
}

// UploadScreenshot implements FileService.
func (s *fileServiceImpl) UploadScreenshot(ctx context.Context, employeeID, sessionID string, file io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
		return "", ErrUnsupportedImage
	}

	buffer, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(buffer)) > s.cfg.MaxUploadBytes {
		return "", ErrImageTooLarge
	}

	compressed, err := s.compress(buffer)
	if err != nil {
		return "", err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate screenshot file name: %w", err)
	}
	key := path.Join("screenshots", employeeID, sessionID, id.String()+".jpg")

	uploaded, err := s.storage.Upload(ctx, bytes.NewReader(compressed), key, "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("failed to upload screenshot: %w", err)
	}
	return uploaded, nil
}

// DeleteFile implements FileService.
func (s *fileServiceImpl) DeleteFile(ctx context.Context, path string) error {
	return s.storage.Delete(ctx, path)
}

// OpenFile implements FileService.
func (s *fileServiceImpl) OpenFile(ctx context.Context, path string) (io.ReadCloser, error) {
	rc, err := s.storage.Download(ctx, path)
	if errors.Is(err, storage.ErrFileNotFound) || errors.Is(err, storage.ErrInvalidPath) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return rc, nil
}

// compress fits the image inside MaxWidth x MaxHeight and re-encodes it as
// JPEG, lowering the quality until it is at most MaxImageBytes.
func (s *fileServiceImpl) compress(buffer []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(buffer))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedImage
		}
		return nil, apperr.Validation("failed to decode image: " + err.Error())
	}

	b := img.Bounds()
	if w, h := fitWithin(b.Dx(), b.Dy(), s.cfg.MaxWidth, s.cfg.MaxHeight); w != b.Dx() || h != b.Dy() {
		img = resizeImage(img, w, h)
	}

	var out []byte
	for quality := 85; quality >= 40; quality -= 5 {
		buf := new(bytes.Buffer)
		if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode JPEG: %w", err)
		}
		out = buf.Bytes()
		if len(out) <= s.cfg.MaxImageBytes {
			break
		}
	}
	return out, nil
}

// fitWithin scales w x h down to fit maxW x maxH, keeping the aspect ratio.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	ratio := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := max(1, int(float64(w)*ratio))
	nh := max(1, int(float64(h)*ratio))
	return nw, nh
}

func resizeImage(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
