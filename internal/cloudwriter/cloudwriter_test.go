package cloudwriter

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3WriterUploadsOnClose(t *testing.T) {
	putter := &fakePutter{}
	factory := &S3WriterFactory{client: putter}

	w, err := factory.NewWriter("reports", "sessions/data.parquet")
	require.NoError(t, err)
	_, err = w.Write([]byte("PAR1"))
	require.NoError(t, err)
	_, err = w.Write([]byte("rest"))
	require.NoError(t, err)
	assert.Empty(t, putter.inputs)

	require.NoError(t, w.Close())
	require.Len(t, putter.inputs, 1)
	assert.Equal(t, "reports", aws.ToString(putter.inputs[0].Bucket))
	assert.Equal(t, "sessions/data.parquet", aws.ToString(putter.inputs[0].Key))
	assert.Equal(t, "PAR1rest", string(putter.bodies[0]))

	require.NoError(t, w.Close())
	assert.Len(t, putter.inputs, 1)
	_, err = w.Write([]byte("late"))
	assert.Error(t, err)
}

func TestS3WriterWrapsUploadError(t *testing.T) {
	boom := errors.New("access denied")
	factory := &S3WriterFactory{client: &fakePutter{err: boom}}
	w, err := factory.NewWriter("reports", "x")
	require.NoError(t, err)
	assert.ErrorIs(t, w.Close(), boom)

	_, err = factory.NewWriter("", "x")
	assert.Error(t, err)
}

func TestMemoryCommitsOnClose(t *testing.T) {
	m := NewMemory()
	w, err := m.NewWriter("b", "a/b.parquet")
	require.NoError(t, err)
	_, err = w.Write([]byte("data"))
	require.NoError(t, err)

	_, ok := m.Object("b/a/b.parquet")
	assert.False(t, ok)
	require.NoError(t, w.Close())

	got, ok := m.Object("b/a/b.parquet")
	require.True(t, ok)
	assert.Equal(t, "data", string(got))
	assert.Equal(t, []string{"b/a/b.parquet"}, m.Keys())
}
