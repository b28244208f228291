package storage

import (
	"context"
	"errors"
	"testing"

	"feedserv/src/logger"
	minio_mock "feedserv/src/storage/mock"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMockS3(m *minio_mock.MockClient) *MinioS3Client {
	return newMinioS3Client(m, S3Config{
		BucketName: "feed-media",
		CDNBaseURL: "https://cdn.example.com/",
	}, logger.Discard())
}

func TestMinioS3Client(t *testing.T) {
	ctx := context.Background()

	t.Run("Upload", func(t *testing.T) {
		m := new(minio_mock.MockClient)
		m.On("PutObject", mock.Anything, "feed-media", "1_a.webp", []byte("RIFF"), int64(4),
			minio.PutObjectOptions{ContentType: "image/webp", DisableContentSha256: true}).
			Return(minio.UploadInfo{Key: "1_a.webp"}, nil)

		got, err := newMockS3(m).Upload(ctx, []byte("RIFF"), "1_a.webp", "image/webp")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/1_a.webp", got)
		m.AssertExpectations(t)
	})

	t.Run("UploadDefaultsContentType", func(t *testing.T) {
		m := new(minio_mock.MockClient)
		m.On("PutObject", mock.Anything, "feed-media", "blob", mock.Anything, int64(1),
			mock.MatchedBy(func(o minio.PutObjectOptions) bool { return o.ContentType == defaultContentType })).
			Return(minio.UploadInfo{}, nil)

		_, err := newMockS3(m).Upload(ctx, []byte{1}, "blob", "")
		require.NoError(t, err)
		m.AssertExpectations(t)
	})

	t.Run("UploadDenied", func(t *testing.T) {
		m := new(minio_mock.MockClient)
		m.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(minio.UploadInfo{}, minio.ErrorResponse{StatusCode: 403, Code: "AccessDenied", Message: "no"})

		_, err := newMockS3(m).Upload(ctx, []byte{1}, "x.png", "image/png")
		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, 403, authErr.Status)
	})

	t.Run("UploadRejected", func(t *testing.T) {
		m := new(minio_mock.MockClient)
		m.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(minio.UploadInfo{}, minio.ErrorResponse{StatusCode: 503, Code: "SlowDown", Message: "busy"})

		_, err := newMockS3(m).Upload(ctx, []byte{1}, "x.png", "image/png")
		var upErr *UploadError
		require.ErrorAs(t, err, &upErr)
		assert.Equal(t, 503, upErr.Status)
		assert.Equal(t, "busy", upErr.Payload)
	})

	t.Run("ListObjects", func(t *testing.T) {
		m := new(minio_mock.MockClient)
		m.On("ListObjects", mock.Anything, "feed-media", minio.ListObjectsOptions{Prefix: "17", Recursive: true}).
			Return([]minio.ObjectInfo{{Key: "17_a.webp"}, {Key: "17_b.PNG"}, {Key: "17_notes"}})

		urls, err := newMockS3(m).ListObjects(ctx, "17", []string{"png", ".webp"})
		require.NoError(t, err)
		assert.Equal(t, []string{
			"https://cdn.example.com/17_a.webp",
			"https://cdn.example.com/17_b.PNG",
		}, urls)
	})

	t.Run("ListObjectsError", func(t *testing.T) {
		m := new(minio_mock.MockClient)
		m.On("ListObjects", mock.Anything, mock.Anything, mock.Anything).
			Return([]minio.ObjectInfo{{Key: "a"}, {Err: errors.New("boom")}})

		_, err := newMockS3(m).ListObjects(ctx, "", nil)
		assert.ErrorContains(t, err, "boom")
	})

	t.Run("DeleteFile", func(t *testing.T) {
		m := new(minio_mock.MockClient)
		m.On("RemoveObject", mock.Anything, "feed-media", "test.txt", minio.RemoveObjectOptions{}).Return(nil)

		err := newMockS3(m).DeleteFile(ctx, "test.txt")
		assert.NoError(t, err)
		m.AssertExpectations(t)
	})
}

func TestCheckIn(t *testing.T) {
	assert.True(t, checkIn("a.b.webp", []string{"webp"}))
	assert.False(t, checkIn("a.webp.tmp", []string{"webp"}))
	assert.False(t, checkIn("noext", []string{"webp"}))
}

func TestObjectURL(t *testing.T) {
	s3 := newMockS3(new(minio_mock.MockClient))
	assert.Equal(t, "https://cdn.example.com/1_a.jp%26g", s3.ObjectURL("1_a.jp&g"))
	assert.Equal(t, "https://cdn.example.com/feed/1_a%2Bb%3A.webp", s3.ObjectURL("feed/1_a+b:.webp"))
}
