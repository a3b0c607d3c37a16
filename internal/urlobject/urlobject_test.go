package urlobject

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildClassifiesHTTP(t *testing.T) {
	obj, err := Build("http://example.com/a", nil, nil, "", "", 0, 0, 1)
	require.NoError(t, err)
	require.Equal(t, StateBuilt, obj.State)
	require.Equal(t, ClassHTTP, obj.Class)
	require.Equal(t, "http://example.com/a", obj.CacheURL)
}

func TestBuildClassifiesMailto(t *testing.T) {
	obj, err := Build("mailto:a@example.com", nil, nil, "", "", 0, 0, 1)
	require.NoError(t, err)
	require.Equal(t, ClassMailto, obj.Class)
}

func TestBuildMailtoCacheURLIgnoresOrderAndDuplicates(t *testing.T) {
	a, err := Build("mailto:b@example.com,a@example.com", nil, nil, "", "", 0, 0, 1)
	require.NoError(t, err)
	b, err := Build("mailto:a@example.com,b@example.com,a@example.com", nil, nil, "", "", 0, 0, 1)
	require.NoError(t, err)

	require.Equal(t, a.CacheURL, b.CacheURL)
	require.NotEqual(t, a.Canonical, b.Canonical)
}

func TestBuildSchemelessDepthZeroIsFile(t *testing.T) {
	obj, err := Build("./readme.txt", nil, nil, "", "", 0, 0, 0)
	require.NoError(t, err)
	require.Equal(t, ClassFile, obj.Class)
}

func TestIsIgnoredScheme(t *testing.T) {
	obj, err := Build("javascript:void(0)", nil, nil, "", "", 0, 0, 1)
	require.NoError(t, err)
	require.True(t, obj.IsIgnored())
}
