package cache

import "time"

// Category groups cache entries that share a staleness budget and are
// invalidated together.
type Category string

const (
	CategoryAccessRole             Category = "access-role"
	CategoryAlleyLayout            Category = "alley-layout"
	CategoryGraveByID              Category = "grave-by-id"
	CategoryGravePages             Category = "paginated-grave-pages"
	CategoryGraveSearch            Category = "grave-search"
	CategoryStatistics             Category = "statistics"
	CategoryManagerList            Category = "manager-list"
	CategorySiteContent            Category = "site-content"
	CategoryPublicSiteContent      Category = "public-site-content"
	CategoryPublicTileProjection   Category = "public-tile-projection"
	CategoryPublicSearchProjection Category = "public-search-projection"
	CategoryHealth                 Category = "health"
	CategoryUserProfile            Category = "user-profile"
)

// DefaultTTLs is the staleness budget per category.
var DefaultTTLs = map[Category]time.Duration{
	CategoryAccessRole:             5 * time.Minute,
	CategoryAlleyLayout:            2 * time.Minute,
	CategoryGraveByID:              1 * time.Minute,
	CategoryGravePages:             1 * time.Minute,
	CategoryGraveSearch:            1 * time.Minute,
	CategoryStatistics:             2 * time.Minute,
	CategoryManagerList:            2 * time.Minute,
	CategorySiteContent:            5 * time.Minute,
	CategoryPublicSiteContent:      1 * time.Minute,
	CategoryPublicTileProjection:   1 * time.Minute,
	CategoryPublicSearchProjection: 1 * time.Minute,
	CategoryHealth:                 30 * time.Second,
	CategoryUserProfile:            5 * time.Minute,
}

// fallbackTTL applies to categories missing from the TTL table.
const fallbackTTL = time.Minute

// Mutation names a write whose success invalidates cache categories.
type Mutation string

const (
	MutationAddAlley          Mutation = "add-alley"
	MutationRemoveAlley       Mutation = "remove-alley"
	MutationAddGrave          Mutation = "add-grave"
	MutationRemoveGrave       Mutation = "remove-grave"
	MutationUpdateGrave       Mutation = "update-grave"
	MutationUpdateSiteContent Mutation = "update-site-content"
	MutationUpdateLogo        Mutation = "update-logo"
	MutationAddManager        Mutation = "add-manager"
	MutationRemoveManager     Mutation = "remove-manager"
	MutationAssignOwner       Mutation = "assign-owner"
	MutationSaveCallerProfile Mutation = "save-caller-profile"
)

var graveReadCategories = []Category{
	CategoryGraveByID,
	CategoryGravePages,
	CategoryGraveSearch,
	CategoryPublicTileProjection,
	CategoryPublicSearchProjection,
	CategoryStatistics,
}

// Invalidations maps each mutation to every category it can affect.
// Adding or removing a grave also changes the alley's grave-id list.
var Invalidations = map[Mutation][]Category{
	MutationAddAlley:          {CategoryAlleyLayout},
	MutationRemoveAlley:       {CategoryAlleyLayout},
	MutationAddGrave:          append([]Category{CategoryAlleyLayout}, graveReadCategories...),
	MutationRemoveGrave:       append([]Category{CategoryAlleyLayout}, graveReadCategories...),
	MutationUpdateGrave:       graveReadCategories,
	MutationUpdateSiteContent: {CategorySiteContent, CategoryPublicSiteContent},
	MutationUpdateLogo:        {CategorySiteContent, CategoryPublicSiteContent},
	MutationAddManager:        {CategoryManagerList},
	MutationRemoveManager:     {CategoryManagerList},
	MutationAssignOwner:       {CategoryManagerList, CategoryAccessRole},
	MutationSaveCallerProfile: {CategoryUserProfile},
}
