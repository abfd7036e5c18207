package models

import "strings"

// Kind names a directory content type as it appears in API paths.
type Kind string

const (
	KindHub         Kind = "hubs"
	KindCommunity   Kind = "communities"
	KindStartup     Kind = "startups"
	KindJob         Kind = "jobs"
	KindGig         Kind = "gigs"
	KindEvent       Kind = "events"
	KindOpportunity Kind = "opportunities"
	KindResource    Kind = "resources"
)

// KindInfo describes how a content type is stored, filtered and named.
type KindInfo struct {
	Kind     Kind
	Table    string
	Singular string
	// TitleColumn is searched by free-text filters.
	TitleColumn   string
	DefaultStatus Status
	// FilterKeys are the query parameters accepted by list, mapped to columns.
	FilterKeys map[string]string
	// BoolFilters are filter keys parsed as booleans.
	BoolFilters map[string]bool
	// UpcomingColumn is compared against now when a list asks for upcoming entries.
	UpcomingColumn string
	// ReadSecondary lets getBySlug consult the secondary store.
	ReadSecondary bool
	// MockOnFailure answers a create that failed on every store with an
	// unpersisted record flagged as a degraded write.
	MockOnFailure bool
}

var kindRegistry = map[Kind]KindInfo{
	KindHub: {
		Kind: KindHub, Table: "hubs", Singular: "hub", TitleColumn: "name",
		DefaultStatus: StatusApproved,
		FilterKeys:    map[string]string{"district": "district", "location": "location"},
		ReadSecondary: true,
	},
	KindCommunity: {
		Kind: KindCommunity, Table: "communities", Singular: "community", TitleColumn: "name",
		DefaultStatus: StatusApproved,
		FilterKeys:    map[string]string{"category": "focus_area", "location": "location"},
		ReadSecondary: true,
	},
	KindStartup: {
		Kind: KindStartup, Table: "startups", Singular: "startup", TitleColumn: "name",
		DefaultStatus: StatusApproved,
		FilterKeys:    map[string]string{"industry": "industry", "stage": "stage", "location": "location"},
	},
	KindJob: {
		Kind: KindJob, Table: "jobs", Singular: "job", TitleColumn: "title",
		DefaultStatus: StatusApproved,
		FilterKeys:    map[string]string{"type": "type", "level": "level", "location": "location", "remote": "remote"},
		BoolFilters:   map[string]bool{"remote": true},
		MockOnFailure: true,
	},
	KindGig: {
		Kind: KindGig, Table: "gigs", Singular: "gig", TitleColumn: "title",
		DefaultStatus: StatusPending,
		FilterKeys:    map[string]string{"category": "category", "remote": "remote"},
		BoolFilters:   map[string]bool{"remote": true},
		MockOnFailure: true,
	},
	KindEvent: {
		Kind: KindEvent, Table: "events", Singular: "event", TitleColumn: "title",
		DefaultStatus:  StatusApproved,
		FilterKeys:     map[string]string{"category": "category", "location": "location", "online": "is_online"},
		BoolFilters:    map[string]bool{"online": true},
		UpcomingColumn: "start_date",
	},
	KindOpportunity: {
		Kind: KindOpportunity, Table: "opportunities", Singular: "opportunity", TitleColumn: "title",
		DefaultStatus: StatusApproved,
		FilterKeys:    map[string]string{"type": "type", "organization": "organization"},
		MockOnFailure: true,
	},
	KindResource: {
		Kind: KindResource, Table: "learning_resources", Singular: "resource", TitleColumn: "title",
		DefaultStatus: StatusApproved,
		FilterKeys:    map[string]string{"type": "type", "level": "level", "category": "category", "free": "is_free"},
		BoolFilters:   map[string]bool{"free": true},
		MockOnFailure: true,
	},
}

var kindOrder = []Kind{
	KindHub, KindCommunity, KindStartup, KindJob, KindGig, KindEvent, KindOpportunity, KindResource,
}

// LookupKind resolves a path segment or singular name to its KindInfo.
func LookupKind(raw string) (KindInfo, bool) {
	key := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if info, ok := kindRegistry[key]; ok {
		return info, true
	}
	for _, info := range kindRegistry {
		if string(key) == info.Singular {
			return info, true
		}
	}
	return KindInfo{}, false
}

// MustKind returns the KindInfo for a registered kind and panics otherwise.
func MustKind(k Kind) KindInfo {
	info, ok := kindRegistry[k]
	if !ok {
		panic("models: unknown kind " + string(k))
	}
	return info
}

// AllKinds returns every content kind in display order.
func AllKinds() []KindInfo {
	out := make([]KindInfo, 0, len(kindOrder))
	for _, k := range kindOrder {
		out = append(out, kindRegistry[k])
	}
	return out
}
