package server

import "FeedWatcher/internal/domain"

// sourceTemplates returns the built-in parameterized sources. Clients
// substitute the {VAR} placeholders and POST the result to /api-sources.
func sourceTemplates() []domain.SourceTemplate {
	return []domain.SourceTemplate{
		{
			ID:          "github-issues",
			Name:        "GitHub Issues",
			Description: "Open issues of a repository, newest first.",
			Variables: []domain.TemplateVariable{
				{Name: "Repository", Key: "{REPO}", Placeholder: "owner/repo"},
			},
			Config: domain.SourceConfig{
				Name:     "GitHub Issues ({REPO})",
				APIURL:   "https://api.github.com/repos/{REPO}/issues?state=open&sort=created&direction=desc&per_page=30&page={PAGE}",
				DataRoot: "",
				FieldMappings: domain.FieldMappings{
					ID:    "id",
					Title: "title",
					URL:   "html_url",
					Text:  "body",
					By:    "user.login",
					Time:  "created_at",
				},
				FieldsToCheck: []string{"title", "body"},
			},
		},
		{
			ID:          "hn-stories",
			Name:        "Hacker News Stories",
			Description: "Newest stories from the Algolia HN search API.",
			Config: domain.SourceConfig{
				Name:     "Hacker News Stories",
				APIURL:   "https://hn.algolia.com/api/v1/search_by_date?tags=story&hitsPerPage=50&page={PAGE}",
				DataRoot: "hits",
				FieldMappings: domain.FieldMappings{
					ID:    "objectID",
					Title: "title",
					URL:   "url",
					Text:  "story_text",
					By:    "author",
					Time:  "created_at_i",
				},
				FieldsToCheck:         []string{"title", "story_text"},
				PaginationZeroIndexed: true,
			},
		},
		{
			ID:          "hn-comments",
			Name:        "Hacker News Comments",
			Description: "Newest comments from the Algolia HN search API.",
			Config: domain.SourceConfig{
				Name:     "Hacker News Comments",
				APIURL:   "https://hn.algolia.com/api/v1/search_by_date?tags=comment&hitsPerPage=50&page={PAGE}",
				DataRoot: "hits",
				FieldMappings: domain.FieldMappings{
					ID:    "objectID",
					Title: "story_title",
					URL:   "story_url",
					Text:  "comment_text",
					By:    "author",
					Time:  "created_at_i",
				},
				FieldsToCheck:         []string{"comment_text"},
				PaginationZeroIndexed: true,
			},
		},
	}
}
