package s3

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/ajitpratap0/objectdag/pkg/testutil"
	"github.com/ajitpratap0/objectdag/pkg/transport/blob"
	"github.com/ajitpratap0/objectdag/pkg/transport/core"
	"github.com/ajitpratap0/objectdag/pkg/transport/registry"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// fakeClient keeps objects in memory and serves single-part uploads.
type fakeClient struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: make(map[string][]byte)}
}

func (f *fakeClient) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeClient) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	panic("multipart upload not expected")
}

func (f *fakeClient) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	panic("multipart upload not expected")
}

func (f *fakeClient) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	panic("multipart upload not expected")
}

func (f *fakeClient) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	panic("multipart upload not expected")
}

func TestS3Transport(t *testing.T) {
	suite.Run(t, &testutil.TransportSuite{New: func(*testing.T) core.ReadTransport {
		return blob.New("s3", DefaultPrefix, NewStore(newFakeClient(), "bucket"), nil)
	}})
}

func TestStore_Layout(t *testing.T) {
	client := newFakeClient()
	tr := blob.New("s3", "streams/abc", NewStore(client, "speckle"), nil)

	rec := testutil.SampleRecord(t, "s3")
	require.NoError(t, tr.SaveObject(context.Background(), rec))

	data, ok := client.objects["speckle/streams/abc/"+rec.ID[:2]+"/"+rec.ID+".json"]
	require.True(t, ok)
	assert.Equal(t, string(rec.JSON), string(data))
	assert.Equal(t, 1, client.puts)
}

func TestStore_MissingKey(t *testing.T) {
	_, err := NewStore(newFakeClient(), "b").Get(context.Background(), "nope")
	assert.ErrorIs(t, err, blob.ErrNotExist)
}

func TestRegistered(t *testing.T) {
	assert.True(t, registry.Has(TypeName))
}
