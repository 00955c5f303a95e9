package bleve

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	bleveapi "github.com/blevesearch/bleve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/imageindex/core"
	"github.com/poiesic/imageindex/index"
)

func action(id string) index.Action {
	return index.Action{
		index.ActionField: index.ActionUpload,
		"id":              id,
		"caption":         "a red bicycle " + id,
		"content":         "street scene",
		"ocrContent":      "",
		"imageUrl":        "https://example.com/" + id + ".png",
		"captionVector":   make([]float32, core.TextVectorDimensions),
	}
}

func TestBackend_UploadRequiresIndex(t *testing.T) {
	b, err := Open("")
	require.NoError(t, err)
	defer b.Close()

	_, err = b.UploadBatch(context.Background(), []index.Action{action("1")})
	assert.ErrorIs(t, err, index.ErrIndexNotFound)

	_, err = b.Stats(context.Background())
	assert.ErrorIs(t, err, index.ErrIndexNotFound)
}

func TestBackend_UploadBatch(t *testing.T) {
	ctx := context.Background()
	b, err := Open("")
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.EnsureIndex(ctx, index.DefaultSchema("images")))

	bad := action("bad")
	bad["imageVector"] = []float32{1, 2, 3}
	noKey := action("")

	results, err := b.UploadBatch(ctx, []index.Action{action("1"), bad, action("2"), noKey})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.True(t, results[0].Succeeded)
	assert.Equal(t, "1", results[0].Key)
	assert.False(t, results[1].Succeeded)
	assert.Contains(t, results[1].ErrorMessage, "imageVector")
	assert.True(t, results[2].Succeeded)
	assert.False(t, results[3].Succeeded)

	stats, err := b.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.DocumentCount)
}

func TestBackend_TextIsSearchable(t *testing.T) {
	ctx := context.Background()
	b, err := Open("")
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, b.EnsureIndex(ctx, index.DefaultSchema("images")))

	_, err = b.UploadBatch(ctx, []index.Action{action("7")})
	require.NoError(t, err)

	req := bleveapi.NewSearchRequest(bleveapi.NewMatchQuery("bicycle"))
	res, err := b.index.Search(req)
	require.NoError(t, err)
	require.Equal(t, uint64(1), res.Total)
	assert.Equal(t, "7", res.Hits[0].ID)
}

func TestBackend_ImageURLIsExactMatch(t *testing.T) {
	ctx := context.Background()
	b, err := Open("")
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, b.EnsureIndex(ctx, index.DefaultSchema("images")))

	_, err = b.UploadBatch(ctx, []index.Action{action("7"), action("8")})
	require.NoError(t, err)

	exact := bleveapi.NewTermQuery("https://example.com/7.png")
	exact.SetField("imageUrl")
	res, err := b.index.Search(bleveapi.NewSearchRequest(exact))
	require.NoError(t, err)
	require.Equal(t, uint64(1), res.Total)
	assert.Equal(t, "7", res.Hits[0].ID)

	// The URL is not tokenized, so a fragment matches nothing.
	partial := bleveapi.NewTermQuery("example")
	partial.SetField("imageUrl")
	res, err = b.index.Search(bleveapi.NewSearchRequest(partial))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), res.Total)
}

func TestBackend_EnsureIndexIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "images.bleve")

	b, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, b.EnsureIndex(ctx, index.DefaultSchema("images")))

	actions := make([]index.Action, 5)
	for i := range actions {
		actions[i] = action(fmt.Sprint(i))
	}
	_, err = b.UploadBatch(ctx, actions)
	require.NoError(t, err)
	require.NoError(t, b.EnsureIndex(ctx, index.DefaultSchema("images")))
	require.NoError(t, b.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.EnsureIndex(ctx, index.DefaultSchema("images")))

	stats, err := reopened.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), stats.DocumentCount)
}

func TestBackend_EnsureIndexInvalidSchema(t *testing.T) {
	b, err := Open("")
	require.NoError(t, err)
	assert.ErrorIs(t, b.EnsureIndex(context.Background(), nil), index.ErrSchemaRequired)
}

func TestBackend_CanceledContext(t *testing.T) {
	b, err := Open("")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = b.UploadBatch(ctx, []index.Action{action("1")})
	assert.ErrorIs(t, err, context.Canceled)
}
