package s3_test

import (
	"bytes"
	"context"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightslm/insightslm/pkg/object-storage/s3"
	"github.com/insightslm/insightslm/pkg/testutils"
)

func TestPresignGetPathStyle(t *testing.T) {
	cli := s3.NewS3Client("http://localhost:9000", "us-east-1", "insights", "ak", "sk", s3.WithPathStyle(true))

	raw, err := cli.PresignGet(context.Background(), "/audio/nb-1/overview.mp3", 24*time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/insights/audio/nb-1/overview.mp3", u.Path)
	assert.Equal(t, "86400", u.Query().Get("X-Amz-Expires"))
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", s3.DetectContentType([]byte("%PDF-1.7\n...")))
	assert.Equal(t, "text/plain; charset=utf-8", s3.DetectContentType([]byte("hello")))
}

func newClient(t *testing.T) *s3.S3 {
	env := testutils.RequireEnv(t,
		"TEST_INSIGHTS_S3_ENDPOINT",
		"TEST_INSIGHTS_S3_REGION",
		"TEST_INSIGHTS_S3_BUCKET",
		"TEST_INSIGHTS_S3_ACCESS_KEY",
		"TEST_INSIGHTS_S3_SECRET_KEY",
	)
	return s3.NewS3Client(env[0], env[1], env[2], env[3], env[4],
		s3.WithPathStyle(os.Getenv("TEST_INSIGHTS_S3_PATH_STYLE") == "true"))
}

func TestUploadGetDelete(t *testing.T) {
	cli := newClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	key := "test/nb-test/src-test.txt"
	require.NoError(t, cli.Upload(ctx, key, bytes.NewReader([]byte("line one\nline two")), "text/plain"))

	res, err := cli.GetObject(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", string(res.File))

	require.NoError(t, cli.DeletePrefix(ctx, "test/nb-test/"))
	_, err = cli.GetObject(ctx, key)
	assert.Error(t, err)
}
