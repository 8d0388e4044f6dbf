package domain

// FieldMappings locates logical fields inside a provider item via dotted
// paths. Only ID is required; the rest degrade gracefully when absent.
type FieldMappings struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
	Text  string `json:"text" yaml:"text"`
	By    string `json:"by" yaml:"by"`
	Time  string `json:"time" yaml:"time"`
}

// SourceConfig describes one paginated JSON API. Name is the identity
// within the source registry and the prefix of every composite item id.
type SourceConfig struct {
	Name                  string        `json:"name" yaml:"name"`
	APIURL                string        `json:"apiUrl" yaml:"apiUrl"`
	DataRoot              string        `json:"dataRoot" yaml:"dataRoot"`
	FieldMappings         FieldMappings `json:"fieldMappings" yaml:"fieldMappings"`
	FieldsToCheck         []string      `json:"fieldsToCheck" yaml:"fieldsToCheck"`
	PaginationZeroIndexed bool          `json:"paginationZeroIndexed" yaml:"paginationZeroIndexed"`
}

// PatternConfig is one raw match rule before compilation.
type PatternConfig struct {
	Label   string `json:"label" yaml:"label"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

// SourceTemplate is a parameterized SourceConfig served to clients so they
// can instantiate common sources by filling placeholder variables.
type SourceTemplate struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Variables   []TemplateVariable `json:"variables"`
	Config      SourceConfig       `json:"config"`
}

// TemplateVariable names a single placeholder inside a template.
type TemplateVariable struct {
	Name        string `json:"name"`
	Key         string `json:"key"`
	Placeholder string `json:"placeholder"`
}
