package queries

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lojf/garage/internal/auth"
	"github.com/lojf/garage/internal/cache"
	"github.com/lojf/garage/internal/models"
	"github.com/lojf/garage/internal/services"
)

func locationKey(op, params string) cache.Key {
	return cache.Key{Domain: cache.Locations, Op: op, Params: params}
}

func (c *Client) Locations(ctx context.Context, f services.LocationFilter) ([]services.LocationWithUsage, error) {
	return cache.Fetch(ctx, c.cache, locationKey(opList, f.Key()), LocationsTTL,
		func(ctx context.Context) ([]services.LocationWithUsage, error) {
			return c.locations.List(ctx, f)
		})
}

func (c *Client) ActiveLocations(ctx context.Context) ([]models.Location, error) {
	return cache.Fetch(ctx, c.cache, locationKey(opActive, ""), ActiveLocationsTTL,
		c.locations.ListActive)
}

func (c *Client) Location(ctx context.Context, id string) (*models.Location, error) {
	return cache.Fetch(ctx, c.cache, locationKey(opDetail, id), LocationTTL,
		func(ctx context.Context) (*models.Location, error) {
			return c.locations.Get(ctx, id)
		})
}

func (c *Client) UsageStats(ctx context.Context, id string) (*services.UsageStats, error) {
	return cache.Fetch(ctx, c.cache, locationKey(opUsage, id), UsageTTL,
		func(ctx context.Context) (*services.UsageStats, error) {
			return c.locations.UsageStats(ctx, id)
		})
}

// Search answers short queries with nothing and without asking the store.
func (c *Client) Search(ctx context.Context, q string) ([]models.Location, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < minSearchRunes {
		return []models.Location{}, nil
	}
	return cache.Fetch(ctx, c.cache, locationKey(opSearch, strings.ToLower(q)), SearchTTL,
		func(ctx context.Context) ([]models.Location, error) {
			return c.locations.Search(ctx, q)
		})
}

func byName(a, b models.Location) int {
	return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
}

func byNameWithUsage(a, b services.LocationWithUsage) int {
	return byName(a.Location, b.Location)
}

func sameLocation(a, b models.Location) bool { return a.ID == b.ID }

func sameLocationWithUsage(a, b services.LocationWithUsage) bool { return a.ID == b.ID }

func (c *Client) CreateLocation(ctx context.Context, sess *auth.Session, in services.LocationInput) (*models.Location, error) {
	l, err := c.locations.Create(ctx, sess, in)
	if err != nil {
		c.finish("create_location", err, "", "Failed to create location")
		return nil, err
	}
	if l.IsActive {
		cache.Mutate(c.cache, cache.Locations, opActive, func(list []models.Location) []models.Location {
			return cache.InsertSorted(list, *l, byName)
		})
	}
	cache.Mutate(c.cache, cache.Locations, opList, func(list []services.LocationWithUsage) []services.LocationWithUsage {
		return cache.InsertSorted(list, services.LocationWithUsage{Location: *l}, byNameWithUsage)
	})
	c.cache.Invalidate(cache.Locations)
	c.finish("create_location", nil, fmt.Sprintf("Location \"%s\" created successfully!", l.Name), "")
	return l, nil
}

func (c *Client) UpdateLocation(ctx context.Context, id string, p services.LocationPatch) (*models.Location, error) {
	l, err := c.locations.Update(ctx, id, p)
	if err != nil {
		c.finish("update_location", err, "", "Failed to update location")
		return nil, err
	}
	cache.Mutate(c.cache, cache.Locations, opDetail, func(old *models.Location) *models.Location {
		if old != nil && old.ID == l.ID {
			return l
		}
		return old
	})
	cache.Mutate(c.cache, cache.Locations, opActive, func(list []models.Location) []models.Location {
		if !l.IsActive {
			return cache.Remove(list, func(x models.Location) bool { return x.ID == l.ID })
		}
		return cache.ReplaceSorted(list, *l, sameLocation, byName)
	})
	cache.Mutate(c.cache, cache.Locations, opList, func(list []services.LocationWithUsage) []services.LocationWithUsage {
		for _, x := range list {
			if x.ID == l.ID {
				return cache.ReplaceSorted(list, services.LocationWithUsage{
					Location: *l, UsageCount: x.UsageCount, LastUsed: x.LastUsed,
				}, sameLocationWithUsage, byNameWithUsage)
			}
		}
		return list
	})
	c.cache.Invalidate(cache.Locations)
	c.finish("update_location", nil, fmt.Sprintf("Location \"%s\" updated successfully!", l.Name), "")
	return l, nil
}

// DeleteLocation also invalidates attendance: report rows show the
// location name through the join.
func (c *Client) DeleteLocation(ctx context.Context, id string) error {
	if err := c.locations.Delete(ctx, id); err != nil {
		c.finish("delete_location", err, "", "Failed to delete location")
		return err
	}
	cache.Mutate(c.cache, cache.Locations, opActive, func(list []models.Location) []models.Location {
		return cache.Remove(list, func(x models.Location) bool { return x.ID == id })
	})
	cache.Mutate(c.cache, cache.Locations, opList, func(list []services.LocationWithUsage) []services.LocationWithUsage {
		return cache.Remove(list, func(x services.LocationWithUsage) bool { return x.ID == id })
	})
	c.cache.Invalidate(cache.Locations)
	c.cache.Invalidate(cache.Attendance)
	c.finish("delete_location", nil, "Location deleted successfully!", "")
	return nil
}
