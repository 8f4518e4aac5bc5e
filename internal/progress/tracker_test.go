package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zaitanabil/galerly-sub009/internal/upload"
)

func TestUpdateAggregatesTaskStates(t *testing.T) {
	tr := NewTracker()
	tr.SetTotal(4, 400)

	tr.Update([]upload.Task{
		{Size: 100, Status: upload.StatusCompleted, Progress: 100},
		{Size: 100, Status: upload.StatusError, Progress: 30},
		{Size: 100, Status: upload.StatusUploading, Progress: 50},
		{Size: 100, Status: upload.StatusPending, Progress: 0},
	})

	st := tr.GetStatus()
	assert.Equal(t, 1, st.UploadedFiles)
	assert.Equal(t, 1, st.FailedFiles)
	assert.Equal(t, 1, st.ActiveFiles)
	assert.Equal(t, 1, st.PendingFiles)
	assert.Equal(t, int64(180), st.TransferredBytes)
}

func TestUpdateCountsProcessingAsActive(t *testing.T) {
	tr := NewTracker()
	tr.Update([]upload.Task{{Size: 100, Status: upload.StatusProcessing, Progress: 90}})

	assert.Equal(t, 1, tr.GetStatus().ActiveFiles)
}

func TestGetFilesPercent(t *testing.T) {
	tr := NewTracker()
	assert.Zero(t, tr.GetFilesPercent(), "no division by zero before totals are set")

	tr.SetTotal(4, 0)
	tr.Update([]upload.Task{
		{Status: upload.StatusCompleted, Progress: 100},
		{Status: upload.StatusError},
	})
	assert.InDelta(t, 50.0, tr.GetFilesPercent(), 0.001, "failed files count as processed")
}

func TestGetBytesPercent(t *testing.T) {
	tr := NewTracker()
	assert.Zero(t, tr.GetBytesPercent())

	tr.SetTotal(1, 200)
	tr.Update([]upload.Task{{Size: 200, Status: upload.StatusUploading, Progress: 25}})
	assert.InDelta(t, 25.0, tr.GetBytesPercent(), 0.001)
}

func TestFormatSpeed(t *testing.T) {
	assert.Equal(t, "512.0 B/s", FormatSpeed(512))
	assert.Equal(t, "1.5 KB/s", FormatSpeed(1536))
	assert.Equal(t, "2.0 MB/s", FormatSpeed(2*1024*1024))
	assert.Equal(t, "1.0 GB/s", FormatSpeed(1024*1024*1024))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "100 B", FormatBytes(100))
	assert.Equal(t, "1.0 KB", FormatBytes(1024))
	assert.Equal(t, "10.0 MB", FormatBytes(10*1024*1024))
	assert.Equal(t, "2.5 GB", FormatBytes(int64(2.5*1024*1024*1024)))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "calculating...", FormatDuration(0))
	assert.Equal(t, "45s", FormatDuration(45*time.Second))
	assert.Equal(t, "2m5s", FormatDuration(125*time.Second))
	assert.Equal(t, "1h1m1s", FormatDuration(3661*time.Second))
}
