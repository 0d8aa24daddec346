package artifact

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackrec/config"
)

func TestDirStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	store := NewDirStore(dir)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "track_feature_names.json", []byte(`["Q1","Q2"]`)))
	payload, err := store.Get(ctx, "track_feature_names.json")
	require.NoError(t, err)
	assert.Equal(t, `["Q1","Q2"]`, string(payload))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestDirStoreMissingArtifact(t *testing.T) {
	_, err := NewDirStore(t.TempDir()).Get(context.Background(), "track_model.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	payload, ok := f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "no such key", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(payload))}, nil
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	payload, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)] = payload
	return &s3.PutObjectOutput{}, nil
}

func TestS3StoreRoundTrip(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{}}
	store := NewS3StoreWithClient(client, "models", "tracks/v1")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "track_model.json", []byte(`{}`)))
	assert.Contains(t, client.objects, "models/tracks/v1/track_model.json")

	payload, err := store.Get(ctx, "track_model.json")
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(payload))
	assert.Equal(t, "s3://models/tracks/v1/track_model.json", store.Location("track_model.json"))

	_, err = store.Get(ctx, "absent.json")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFromConfigDefaultsToDirectory(t *testing.T) {
	cfg := config.Default().Artifacts
	cfg.Dir = t.TempDir()
	store, err := FromConfig(cfg)
	require.NoError(t, err)
	_, ok := store.(*DirStore)
	assert.True(t, ok)
}
