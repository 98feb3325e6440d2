package main

import (
	"context"
	"testing"

	listingsservice "staybook/internal/listings/service"
	listingsvalidator "staybook/internal/listings/validator"
	"staybook/pkg/cache"
	"staybook/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildListings(t *testing.T) {
	v := listingsvalidator.NewListingValidator(logger.NewNop())

	listings, err := buildListings("64b7f0c2a1b2c3d4e5f60718", v)
	require.NoError(t, err)
	require.Len(t, listings, 5)

	for _, l := range listings {
		assert.Equal(t, "64b7f0c2a1b2c3d4e5f60718", l.HostID)
		assert.True(t, l.AvailableTo.After(l.AvailableFrom), l.Title)
	}
	assert.Equal(t, "Goa, India", listings[2].Location)
	assert.InDelta(t, 95.0, listings[2].PricePerNight, 0.001)
}

func TestBuildListings_RequiresHost(t *testing.T) {
	_, err := buildListings("", listingsvalidator.NewListingValidator(logger.NewNop()))
	assert.Error(t, err)
}

func TestInvalidateListingCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.NewRedisCache(client, cache.Namespace)
	ctx := context.Background()

	before, err := c.Version(ctx, listingsservice.CacheVersionKey)
	require.NoError(t, err)

	invalidateListingCache(ctx, c, logger.NewNop())

	after, err := c.Version(ctx, listingsservice.CacheVersionKey)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)
	assert.True(t, mr.Exists(cache.Namespace+":"+listingsservice.CacheVersionKey))
}
