package entity

// HistoryCollection stores per-user search history rows.
const HistoryCollection = "search_history"

const cursorField = "createdAt"

var universities = Descriptor{
	Type:       Universities,
	Collection: string(Universities),
	TextFields: []WeightedField{
		{Field: "name", Weight: 10},
		{Field: "shortName", Weight: 8},
		{Field: "city", Weight: 3},
		{Field: "state", Weight: 2},
		{Field: "description", Weight: 1},
	},
	DisplayField: "name",
	Summary: []string{
		"name", "shortName", "city", "state", "country", "website", "emailDomains",
		"logoUrl", "averageRating", "reviewCount", "createdAt",
	},
	TagFields:     []string{"country", "state"},
	NumericFields: []string{"averageRating", "reviewCount"},
	Filters: []FilterSpec{
		{Param: ParamCountry, Field: "country", Kind: FilterTag},
		{Param: ParamState, Field: "state", Kind: FilterTag},
		{Param: ParamMinRating, Field: "averageRating", Kind: FilterMinimum},
	},
	AuxIndexes: [][]string{
		{"country", "state"},
		{"averageRating", "reviewCount"},
	},
	Managed: ManagedIndexes{
		Search:       "universities_search",
		Autocomplete: "universities_autocomplete",
	},
	CursorField: cursorField,
}

var users = Descriptor{
	Type:       Users,
	Collection: string(Users),
	TextFields: []WeightedField{
		{Field: "username", Weight: 10},
		{Field: "displayName", Weight: 8},
		{Field: "bio", Weight: 2},
	},
	DisplayField:  "username",
	Summary:       []string{"username", "displayName", "avatarUrl", "universityId", "createdAt"},
	TagFields:     []string{"universityId", "status"},
	NumericFields: []string{"createdAt"},
	Filters: []FilterSpec{
		{Param: ParamUniversityID, Field: "universityId", Kind: FilterTag},
	},
	Always: []AlwaysFilter{
		{Field: "status", Exclude: []string{"deleted", "deactivated"}},
	},
	AuxIndexes: [][]string{
		{"universityId", "createdAt"},
		{"status"},
	},
	Managed:     ManagedIndexes{Search: "users_search"},
	CursorField: cursorField,
}

var posts = Descriptor{
	Type:       Posts,
	Collection: string(Posts),
	TextFields: []WeightedField{
		{Field: "title", Weight: 10},
		{Field: "body", Weight: 3},
		{Field: "tags", Weight: 5},
	},
	DisplayField: "title",
	Summary: []string{
		"title", "category", "tags", "universityId", "authorId",
		"answerCount", "likeCount", "viewCount", "createdAt",
	},
	TagFields:     []string{"category", "universityId", "tags"},
	NumericFields: []string{"answerCount", "viewCount", "likeCount", "trendingScore"},
	Filters: []FilterSpec{
		{Param: ParamCategory, Field: "category", Kind: FilterTag},
		{Param: ParamUniversityID, Field: "universityId", Kind: FilterTag},
		{Param: ParamUnansweredOnly, Field: "category", Kind: FilterUnanswered},
		{Param: ParamTags, Field: "tags", Kind: FilterTagList},
	},
	AuxIndexes: [][]string{
		{"universityId", "createdAt"},
		{"category", "answerCount", "createdAt"},
		{"tags", "createdAt"},
		{"likeCount", "viewCount", "trendingScore", "createdAt"},
	},
	Managed:     ManagedIndexes{Search: "posts_search"},
	CursorField: cursorField,
}

var notes = Descriptor{
	Type:       Notes,
	Collection: string(Notes),
	TextFields: []WeightedField{
		{Field: "title", Weight: 10},
		{Field: "subject", Weight: 6},
		{Field: "course", Weight: 5},
		{Field: "description", Weight: 2},
	},
	DisplayField: "title",
	Summary: []string{
		"title", "subject", "course", "noteType", "universityId",
		"downloadCount", "averageRating", "createdAt",
	},
	TagFields:     []string{"subject", "course", "noteType", "universityId"},
	NumericFields: []string{"downloadCount", "averageRating"},
	Filters: []FilterSpec{
		{Param: ParamSubject, Field: "subject", Kind: FilterTag},
		{Param: ParamCourse, Field: "course", Kind: FilterTag},
		{Param: ParamNoteType, Field: "noteType", Kind: FilterTag},
		{Param: ParamUniversityID, Field: "universityId", Kind: FilterTag},
		{Param: ParamMinRating, Field: "averageRating", Kind: FilterMinimum},
	},
	AuxIndexes: [][]string{
		{"universityId", "createdAt"},
		{"subject", "course"},
		{"downloadCount"},
	},
	Managed:     ManagedIndexes{Search: "notes_search"},
	CursorField: cursorField,
}

var reviews = Descriptor{
	Type:       Reviews,
	Collection: string(Reviews),
	TextFields: []WeightedField{
		{Field: "title", Weight: 8},
		{Field: "body", Weight: 4},
	},
	DisplayField:  "title",
	Summary:       []string{"title", "rating", "universityId", "helpfulCount", "createdAt"},
	TagFields:     []string{"universityId"},
	NumericFields: []string{"rating", "helpfulCount"},
	Filters: []FilterSpec{
		{Param: ParamUniversityID, Field: "universityId", Kind: FilterTag},
		{Param: ParamMinRating, Field: "rating", Kind: FilterMinimum},
	},
	AuxIndexes: [][]string{
		{"universityId", "createdAt"},
		{"rating", "helpfulCount"},
	},
	Managed:     ManagedIndexes{Search: "reviews_search"},
	CursorField: cursorField,
}

var history = Descriptor{
	Collection:    HistoryCollection,
	TagFields:     []string{"userId", "query"},
	ExactTags:     []string{"userId"},
	NumericFields: []string{"lastUsed", "count"},
	AuxIndexes: [][]string{
		{"userId", "lastUsed"},
		{"query", "count"},
	},
}

var registry = map[Type]*Descriptor{
	Universities: &universities,
	Users:        &users,
	Posts:        &posts,
	Notes:        &notes,
	Reviews:      &reviews,
}

// Lookup returns the descriptor of a searchable entity type.
// Descriptors are shared and must not be modified.
func Lookup(t Type) (*Descriptor, bool) {
	d, ok := registry[t]
	return d, ok
}

// Searchable returns the entity descriptors in priority order.
func Searchable() []*Descriptor {
	out := make([]*Descriptor, 0, len(registry))
	for _, t := range Ordered() {
		out = append(out, registry[t])
	}
	return out
}

// History returns the search history collection descriptor.
func History() *Descriptor {
	return &history
}

// All returns every provisionable descriptor: the entities in priority order,
// then search history.
func All() []*Descriptor {
	return append(Searchable(), History())
}
