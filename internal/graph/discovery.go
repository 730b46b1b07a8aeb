package graph

import (
	"context"

	"github.com/realgarit/intuneup/pkg/errors"
)

// Discovery feed names.
const (
	FeedFeatureUpdateVersion = "featureUpdateVersion"
	FeedQualityUpdateRelease = "qualityUpdateRelease"
	FeedOrganization         = "organization"
)

const catalogEntries = "/admin/windows/updates/catalog/entries"

type catalogEntry struct {
	DisplayName     string `json:"displayName"`
	Version         string `json:"version"`
	ReleaseDateTime string `json:"releaseDateTime"`
}

type organization struct {
	DisplayName string `json:"displayName"`
}

// LatestFeatureUpdateVersion returns the newest feature update version in
// the Windows Autopatch catalog.
func (c *Client) LatestFeatureUpdateVersion(ctx context.Context) (string, error) {
	entry, err := c.latestCatalogEntry(ctx, FeedFeatureUpdateVersion,
		"isof('microsoft.graph.windowsUpdates.featureUpdateCatalogEntry')")
	if err != nil {
		return "", err
	}
	return nonEmpty(FeedFeatureUpdateVersion, entry.Version)
}

// LatestQualityUpdateRelease returns the release timestamp of the newest
// expeditable quality update. Policies store the same timestamp in
// qualityUpdateRelease.
func (c *Client) LatestQualityUpdateRelease(ctx context.Context) (string, error) {
	entry, err := c.latestCatalogEntry(ctx, FeedQualityUpdateRelease,
		"isof('microsoft.graph.windowsUpdates.qualityUpdateCatalogEntry') and "+
			"microsoft.graph.windowsUpdates.qualityUpdateCatalogEntry/isExpeditable eq true")
	if err != nil {
		return "", err
	}
	return nonEmpty(FeedQualityUpdateRelease, entry.ReleaseDateTime)
}

// OrganizationName returns the tenant display name from Graph v1.0.
func (c *Client) OrganizationName(ctx context.Context) (string, error) {
	var resp listResponse[organization]
	if err := c.http.GetJSON(ctx, c.v1URL+"/organization", &resp); err != nil {
		return "", errors.WrapDiscovery(FeedOrganization, err)
	}
	if len(resp.Value) == 0 {
		return "", errors.WrapDiscovery(FeedOrganization, errors.NewNotFoundError("organization", "tenant"))
	}
	return nonEmpty(FeedOrganization, resp.Value[0].DisplayName)
}

func (c *Client) latestCatalogEntry(ctx context.Context, feed, filter string) (catalogEntry, error) {
	endpoint := c.baseURL + catalogEntries + encodeQuery([]queryParam{
		{"$filter", filter},
		{"$orderby", "releaseDateTime desc"},
		{"$top", "1"},
	})

	var resp listResponse[catalogEntry]
	if err := c.http.GetJSON(ctx, endpoint, &resp); err != nil {
		return catalogEntry{}, errors.WrapDiscovery(feed, err)
	}
	if len(resp.Value) == 0 {
		return catalogEntry{}, errors.WrapDiscovery(feed, errors.NewNotFoundError("catalog entry", feed))
	}
	return resp.Value[0], nil
}

func nonEmpty(feed, value string) (string, error) {
	if value == "" {
		return "", errors.WrapDiscovery(feed, errors.NewValidationError(feed, value, "empty value"))
	}
	return value, nil
}
