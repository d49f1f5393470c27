//go:build integration

package storage_test

import (
	"context"
	"testing"

	"github.com/cloo-solutions/docsrag/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Client_RoundTrip(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRustFSContainer(ctx, t)
	t.Cleanup(func() { _ = rc.Terminate(ctx) })

	client := testutil.NewTestS3Client(ctx, t, rc, "docsrag-test")
	require.NoError(t, client.EnsureBucket(ctx), "EnsureBucket is idempotent")

	require.NoError(t, client.PutObject(ctx, "docs/a.json", []byte(`[{"heading":"A","content":"alpha"}]`), "application/json"))
	require.NoError(t, client.PutObject(ctx, "docs/nested/b.txt", []byte("beta"), "text/plain"))
	require.NoError(t, client.PutObject(ctx, "other/c.txt", []byte("gamma"), "text/plain"))

	objects, err := client.ListObjects(ctx, "docs/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "docs/a.json", objects[0].Key)
	assert.NotEmpty(t, objects[0].ETag)
	assert.NotContains(t, objects[0].ETag, `"`)

	data, err := client.GetObject(ctx, "docs/nested/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "beta", string(data))

	meta, err := client.HeadObject(ctx, "docs/a.json")
	require.NoError(t, err)
	assert.Equal(t, objects[0].ETag, meta.ETag)

	_, err = client.GetObject(ctx, "docs/missing.json")
	assert.Error(t, err)
}
