package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultipartInitAcceptsCanonicalUploadID(t *testing.T) {
	payload := `{
		"upload_id": "mpu-1",
		"resource_id": "photo-1",
		"storage_key": "galleries/g1/photo-1/IMG.jpg",
		"parts": [{"part_number": 1, "url": "https://store/p1"}]
	}`

	var init MultipartInit
	require.NoError(t, json.Unmarshal([]byte(payload), &init))
	assert.Equal(t, "mpu-1", init.UploadID)
	assert.Equal(t, "photo-1", init.ResourceID)
	require.Len(t, init.Parts, 1)
	assert.Equal(t, 1, init.Parts[0].PartNumber)
}

func TestMultipartInitFallsBackToDeprecatedAlias(t *testing.T) {
	payload := `{"multipart_upload_id": "mpu-legacy", "resource_id": "photo-2"}`

	var init MultipartInit
	require.NoError(t, json.Unmarshal([]byte(payload), &init))
	assert.Equal(t, "mpu-legacy", init.UploadID)
}

func TestMultipartInitCanonicalWinsOverAlias(t *testing.T) {
	payload := `{"upload_id": "mpu-new", "multipart_upload_id": "mpu-old"}`

	var init MultipartInit
	require.NoError(t, json.Unmarshal([]byte(payload), &init))
	assert.Equal(t, "mpu-new", init.UploadID)
}

func TestMultipartInitMarshalsCanonicalFieldOnly(t *testing.T) {
	init := MultipartInit{UploadID: "mpu-3", ResourceID: "photo-3"}

	data, err := json.Marshal(init)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"upload_id":"mpu-3"`)
	assert.NotContains(t, string(data), "multipart_upload_id")
}

func TestCompletedPartWireFormat(t *testing.T) {
	data, err := json.Marshal(CompletedPart{PartNumber: 2, ETag: "abc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"part_number": 2, "completion_token": "abc"}`, string(data))
}
