package report

// floatMetrics is the set of vendor metrics that carry fractional values
// (rates, durations, revenue, per-unit averages). Every other metric in the
// catalog is a count and types as INTEGER.
var floatMetrics = map[string]bool{
	"engagementRate":            true,
	"bounceRate":                true,
	"averageSessionDuration":    true,
	"totalRevenue":              true,
	"eventCountPerUser":         true,
	"eventsPerSession":          true,
	"eventValue":                true,
	"sessionsPerUser":           true,
	"screenPageViewsPerSession": true,
	"itemRevenue":               true,
	"purchaseRevenue":           true,
	"advertiserAdCost":          true,
	"advertiserAdCostPerClick":  true,
}

// MetricType returns the declared warehouse type for a vendor metric name.
func MetricType(name string) ColumnType {
	if floatMetrics[name] {
		return TypeFloat
	}
	return TypeInteger
}

// Catalog is the immutable set of report specs, keyed by short code.
// Lookup order and listing order both follow declaration order.
type Catalog struct {
	keys  []string
	specs map[string]ReportSpec
}

// NewCatalog builds a catalog from specs, preserving order. Later specs with
// a duplicate key replace earlier ones.
func NewCatalog(specs ...ReportSpec) *Catalog {
	c := &Catalog{specs: make(map[string]ReportSpec, len(specs))}
	for _, s := range specs {
		if _, ok := c.specs[s.Key]; !ok {
			c.keys = append(c.keys, s.Key)
		}
		c.specs[s.Key] = s
	}
	return c
}

// Keys returns the report keys in catalog order.
func (c *Catalog) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of specs in the catalog.
func (c *Catalog) Len() int { return len(c.keys) }

// Get resolves a report key. Unknown keys return a NotFound error listing
// every valid key.
func (c *Catalog) Get(key string) (ReportSpec, error) {
	if s, ok := c.specs[key]; ok {
		return s, nil
	}
	return ReportSpec{}, NotFoundKey(key, c.keys)
}

// Specs returns every spec in catalog order.
func (c *Catalog) Specs() []ReportSpec {
	out := make([]ReportSpec, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.specs[k])
	}
	return out
}

// DefaultCatalog returns the standard GA4 report set. Each dimension list
// starts with "date" so every row carries its own partition date.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		ReportSpec{
			Key:         "CAMPAIGN",
			Table:       "GA4_DIM_CAMPAIGN",
			Description: "Marketing campaign dimensions",
			Dimensions: []string{
				"date",
				"campaignId",
				"campaignName",
				"sessionCampaignId",
				"sessionCampaignName",
				"firstUserCampaignId",
				"firstUserCampaignName",
				"sessionManualAdContent",
				"sessionManualTerm",
				"googleAdsAdGroupId",
				"googleAdsAdGroupName",
				"googleAdsAdNetworkType",
			},
			Metrics: []string{
				"sessions",
				"totalUsers",
				"newUsers",
				"activeUsers",
				"engagedSessions",
				"engagementRate",
				"eventCount",
				"conversions",
				"totalRevenue",
			},
		},
		ReportSpec{
			Key:         "SOURCE_MEDIUM",
			Table:       "GA4_DIM_SOURCE_MEDIUM",
			Description: "Traffic source and medium dimensions",
			Dimensions: []string{
				"date",
				"sessionSource",
				"sessionMedium",
				"sessionSourceMedium",
				"sessionSourcePlatform",
				"firstUserSource",
				"firstUserMedium",
				"firstUserSourceMedium",
				"firstUserSourcePlatform",
			},
			Metrics: []string{
				"sessions",
				"totalUsers",
				"newUsers",
				"activeUsers",
				"engagedSessions",
				"engagementRate",
				"bounceRate",
				"averageSessionDuration",
				"screenPageViews",
				"conversions",
			},
		},
		ReportSpec{
			Key:         "CHANNEL",
			Table:       "GA4_DIM_CHANNEL",
			Description: "Acquisition channel dimensions",
			Dimensions: []string{
				"date",
				"sessionDefaultChannelGroup",
				"firstUserDefaultChannelGroup",
				"sessionPrimaryChannelGroup",
				"firstUserPrimaryChannelGroup",
			},
			Metrics: []string{
				"sessions",
				"totalUsers",
				"newUsers",
				"activeUsers",
				"engagedSessions",
				"engagementRate",
				"bounceRate",
				"averageSessionDuration",
				"conversions",
				"totalRevenue",
			},
		},
		ReportSpec{
			Key:         "GEOGRAPHIC",
			Table:       "GA4_DIM_GEOGRAPHIC",
			Description: "User geography dimensions",
			Dimensions: []string{
				"date",
				"country",
				"countryId",
				"region",
				"city",
				"cityId",
				"continent",
				"continentId",
				"subContinent",
			},
			Metrics: []string{
				"sessions",
				"totalUsers",
				"newUsers",
				"activeUsers",
				"engagedSessions",
				"engagementRate",
				"screenPageViews",
			},
		},
		ReportSpec{
			Key:         "DEVICE",
			Table:       "GA4_DIM_DEVICE",
			Description: "Device and technology dimensions",
			Dimensions: []string{
				"date",
				"deviceCategory",
				"deviceModel",
				"mobileDeviceBranding",
				"mobileDeviceModel",
				"mobileDeviceMarketingName",
				"operatingSystem",
				"operatingSystemVersion",
				"operatingSystemWithVersion",
				"browser",
				"browserVersion",
				"platform",
				"platformDeviceCategory",
				"screenResolution",
			},
			Metrics: []string{
				"sessions",
				"totalUsers",
				"newUsers",
				"activeUsers",
				"engagedSessions",
				"engagementRate",
				"screenPageViews",
			},
		},
		ReportSpec{
			Key:         "PAGE",
			Table:       "GA4_DIM_PAGE",
			Description: "Page and content dimensions",
			Dimensions: []string{
				"date",
				"pagePath",
				"pagePathPlusQueryString",
				"pageTitle",
				"landingPage",
				"landingPagePlusQueryString",
				"exitPage",
				"hostname",
				"pageReferrer",
				"contentGroup",
				"contentId",
				"contentType",
			},
			Metrics: []string{
				"screenPageViews",
				"activeUsers",
				"sessions",
				"engagedSessions",
				"averageSessionDuration",
				"bounceRate",
				"entrances",
				"exits",
			},
		},
		ReportSpec{
			Key:         "EVENT",
			Table:       "GA4_DIM_EVENT",
			Description: "Event and conversion dimensions",
			Dimensions: []string{
				"date",
				"eventName",
				"isConversionEvent",
			},
			Metrics: []string{
				"eventCount",
				"eventCountPerUser",
				"eventsPerSession",
				"activeUsers",
				"totalUsers",
				"conversions",
				"eventValue",
				"totalRevenue",
			},
		},
		ReportSpec{
			Key:         "USER",
			Table:       "GA4_DIM_USER",
			Description: "User and demographic dimensions",
			Dimensions: []string{
				"date",
				"newVsReturning",
				"userAgeBracket",
				"userGender",
				"signedInWithUserId",
				"firstSessionDate",
				"firstUserCampaignId",
				"firstUserCampaignName",
				"firstUserGoogleAdsAccountName",
				"firstUserGoogleAdsAdGroupId",
				"firstUserGoogleAdsAdGroupName",
			},
			Metrics: []string{
				"activeUsers",
				"newUsers",
				"totalUsers",
				"sessions",
				"sessionsPerUser",
				"engagedSessions",
				"engagementRate",
				"averageSessionDuration",
				"screenPageViewsPerSession",
			},
		},
		ReportSpec{
			Key:         "ECOMMERCE",
			Table:       "GA4_DIM_ECOMMERCE",
			Description: "Ecommerce and transaction dimensions",
			Dimensions: []string{
				"date",
				"transactionId",
				"itemId",
				"itemName",
				"itemBrand",
				"itemCategory",
				"itemCategory2",
				"itemCategory3",
				"itemCategory4",
				"itemCategory5",
				"itemListId",
				"itemListName",
				"itemListPosition",
				"itemPromotionCreativeName",
				"itemPromotionId",
				"itemPromotionName",
				"orderCoupon",
				"shippingTier",
			},
			Metrics: []string{
				"ecommercePurchases",
				"itemsAddedToCart",
				"itemsCheckedOut",
				"itemsClickedInList",
				"itemsClickedInPromotion",
				"itemsPurchased",
				"itemsViewed",
				"itemsViewedInList",
				"itemsViewedInPromotion",
				"itemRevenue",
				"purchaseRevenue",
				"totalRevenue",
				"transactions",
			},
		},
		ReportSpec{
			Key:         "SESSION",
			Table:       "GA4_DIM_SESSION",
			Description: "Session dimensions and metrics",
			Dimensions: []string{
				"date",
				"sessionDefaultChannelGroup",
				"sessionSource",
				"sessionMedium",
				"sessionCampaignName",
				"landingPage",
				"deviceCategory",
				"country",
			},
			Metrics: []string{
				"sessions",
				"engagedSessions",
				"averageSessionDuration",
				"bounceRate",
				"engagementRate",
				"sessionsPerUser",
				"screenPageViews",
				"screenPageViewsPerSession",
				"activeUsers",
				"newUsers",
				"totalUsers",
			},
		},
		ReportSpec{
			Key:         "GOOGLE_ADS",
			Table:       "GA4_DIM_GOOGLE_ADS",
			Description: "Google Ads campaign dimensions",
			Dimensions: []string{
				"date",
				"sessionGoogleAdsAccountName",
				"sessionGoogleAdsAdGroupId",
				"sessionGoogleAdsAdGroupName",
				"sessionGoogleAdsAdNetworkType",
				"sessionGoogleAdsCampaignId",
				"sessionGoogleAdsCampaignName",
				"sessionGoogleAdsCampaignType",
				"sessionGoogleAdsCreativeId",
				"sessionGoogleAdsKeyword",
				"sessionGoogleAdsQuery",
				"googleAdsAccountName",
				"googleAdsAdGroupId",
				"googleAdsAdGroupName",
				"googleAdsCampaignId",
				"googleAdsCampaignName",
			},
			Metrics: []string{
				"sessions",
				"totalUsers",
				"newUsers",
				"activeUsers",
				"engagedSessions",
				"engagementRate",
				"conversions",
				"totalRevenue",
				"advertiserAdClicks",
				"advertiserAdCost",
				"advertiserAdCostPerClick",
				"advertiserAdImpressions",
			},
		},
	)
}
