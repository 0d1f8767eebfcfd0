package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techagentng/wastewatch/db/memory"
	errs "github.com/techagentng/wastewatch/errors"
	"github.com/techagentng/wastewatch/logger"
	"github.com/techagentng/wastewatch/models"
)

func TestRewardBalanceAndLedger(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	citizen := &models.Citizen{SubmissionLimit: 5, RewardPerResolution: 25}
	require.NoError(t, store.Directory().CreateCitizen(ctx, citizen))

	report := &models.Report{ReportedBy: citizen.ID, AssignedTo: uuid.New(), Status: models.StatusInProgress}
	require.NoError(t, store.Reports().Create(ctx, report))
	_, _, err := store.Reports().ResolveAndReward(ctx, report.ID, models.StatusInProgress)
	require.NoError(t, err)

	svc := NewRewardService(store.Rewards(), store.Directory(), testConfig())

	balance, err := svc.Balance(ctx, citizen.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, balance.Balance)
	assert.Equal(t, 25, balance.Rate)

	ledger, err := svc.Ledger(ctx, citizen.ID)
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, report.ID, ledger[0].ReportID)
	assert.Equal(t, 25, ledger[0].BalanceAfter)

	reward, err := svc.RewardForReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, reward.Points)

	_, err = svc.RewardForReport(ctx, uuid.New())
	assert.True(t, errs.HasKind(err, errs.KindNotFound))

	total, err := svc.GetAllRewardsBalanceCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, total)

	_, err = svc.Balance(ctx, uuid.New())
	assert.True(t, errs.HasKind(err, errs.KindNotFound))
}

type fakeMediaRepo struct {
	folder, filename, contentType string
	content                       []byte
	err                           error
}

func (f *fakeMediaRepo) UploadMedia(_ context.Context, folder, filename, contentType string, content []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.folder, f.filename, f.contentType, f.content = folder, filename, contentType, content
	return "https://bucket.s3.us-east-1.amazonaws.com/" + folder + "/" + filename, nil
}

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUploadReportImage(t *testing.T) {
	ctx := context.Background()
	citizen := uuid.New()

	t.Run("resizes wide images and stores jpeg", func(t *testing.T) {
		repo := &fakeMediaRepo{}
		svc := NewMediaService(repo, testConfig(), logger.Discard())

		raw := pngOf(t, 256, 128)
		url, err := svc.UploadReportImage(ctx, citizen, "bin.png", int64(len(raw)), bytes.NewReader(raw))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "https://bucket.s3."))
		assert.Equal(t, "reports", repo.folder)
		assert.Equal(t, "image/jpeg", repo.contentType)
		assert.True(t, strings.HasPrefix(repo.filename, citizen.String()))

		stored, err := jpeg.Decode(bytes.NewReader(repo.content))
		require.NoError(t, err)
		assert.Equal(t, 64, stored.Bounds().Dx())
		assert.Equal(t, 32, stored.Bounds().Dy())
	})

	t.Run("rejects unsupported files", func(t *testing.T) {
		svc := NewMediaService(&fakeMediaRepo{}, testConfig(), logger.Discard())
		_, err := svc.UploadReportImage(ctx, citizen, "clip.mp4", 10, strings.NewReader("x"))
		assert.True(t, errs.HasKind(err, errs.KindValidation))

		_, err = svc.UploadReportImage(ctx, citizen, "bin.jpg", 4, strings.NewReader("nope"))
		assert.True(t, errs.HasKind(err, errs.KindValidation))

		_, err = svc.UploadReportImage(ctx, citizen, "bin.jpg", MaxImageFileSize+1, strings.NewReader(""))
		assert.True(t, errs.HasKind(err, errs.KindValidation))
	})

	t.Run("storage failure is a dependency error", func(t *testing.T) {
		svc := NewMediaService(&fakeMediaRepo{err: errors.New("s3 down")}, testConfig(), logger.Discard())
		raw := pngOf(t, 8, 8)
		_, err := svc.UploadReportImage(ctx, citizen, "bin.png", int64(len(raw)), bytes.NewReader(raw))
		assert.True(t, errs.HasKind(err, errs.KindDependency))
	})
}
