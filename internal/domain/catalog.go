package domain

// CatalogEntry is a playable item known to the server. UpstreamRef addresses
// the third-party host and must never be serialized to clients.
type CatalogEntry struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Thumbnail   string `yaml:"thumbnail" json:"thumbnail"`
	Duration    string `yaml:"duration" json:"duration"`
	Year        string `yaml:"year" json:"year"`
	UpstreamRef string `yaml:"upstream_ref" json:"-"`
}

// PublicEntry is the client-facing view of a CatalogEntry.
type PublicEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
	Duration    string `json:"duration"`
	Year        string `json:"year"`
}

// Public strips the upstream reference.
func (e CatalogEntry) Public() PublicEntry {
	return PublicEntry{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Thumbnail:   e.Thumbnail,
		Duration:    e.Duration,
		Year:        e.Year,
	}
}
