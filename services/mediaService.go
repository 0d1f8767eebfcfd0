package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/techagentng/wastewatch/config"
	"github.com/techagentng/wastewatch/db"
	errs "github.com/techagentng/wastewatch/errors"
)

const (
	MaxImageFileSize = 10 * 1024 * 1024 // 10 MB
	reportImageDir   = "reports"
)

// MediaService turns an uploaded photo into the imageUrl a report carries.
type MediaService interface {
	UploadReportImage(ctx context.Context, citizenID uuid.UUID, filename string, size int64, r io.Reader) (string, error)
}

type mediaService struct {
	Config    *config.Config
	mediaRepo db.MediaRepository
	logger    *slog.Logger
}

func NewMediaService(mediaRepo db.MediaRepository, conf *config.Config, logger *slog.Logger) MediaService {
	return &mediaService{
		Config:    conf,
		mediaRepo: mediaRepo,
		logger:    logger,
	}
}

func CheckSupportedImage(filename string) (bool, string) {
	supported := map[string]bool{
		".png":  true,
		".jpeg": true,
		".jpg":  true,
	}
	ext := strings.ToLower(filepath.Ext(filename))
	return supported[ext], ext
}

func generateUniqueFilename(owner uuid.UUID, extension string) string {
	return fmt.Sprintf("%s_%d_%s%s", owner, time.Now().UnixNano(), uuid.New(), extension)
}

func (m *mediaService) UploadReportImage(ctx context.Context, citizenID uuid.UUID, filename string, size int64, r io.Reader) (string, error) {
	if ok, _ := CheckSupportedImage(filename); !ok {
		return "", errs.Validation("Only png and jpeg images are supported.").With("field", "image")
	}
	if size > MaxImageFileSize {
		return "", errs.Validation("Image exceeds the 10 MB limit.").With("field", "image")
	}

	img, _, err := image.Decode(io.LimitReader(r, MaxImageFileSize+1))
	if err != nil {
		return "", errs.Validation("Image could not be decoded.").With("field", "image")
	}
	if w := m.Config.MaxImageWidth; w > 0 && img.Bounds().Dx() > w {
		img = imaging.Resize(img, w, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return "", errs.Dependency(err, "could not encode image")
	}

	url, err := m.mediaRepo.UploadMedia(ctx, reportImageDir, generateUniqueFilename(citizenID, ".jpg"), "image/jpeg", buf.Bytes())
	if err != nil {
		m.logger.Error("report image upload failed", "citizen_id", citizenID, "error", err)
		return "", errs.Dependency(err, "could not store image")
	}
	return url, nil
}
