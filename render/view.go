package render

import (
	"repocard/fetcher"
	"repocard/models"
)

// View is the JSON form of a card
type View struct {
	State string          `json:"state"`
	URL   string          `json:"url,omitempty"`
	Repo  *RepositoryView `json:"repo,omitempty"`
	Error string          `json:"error,omitempty"`
}

// RepositoryView is the success payload of a View
type RepositoryView struct {
	Owner       string  `json:"owner"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Stars       int     `json:"stars"`
	Forks       int     `json:"forks"`
	Language    *string `json:"language,omitempty"`
}

// NewView converts s for JSON output. Absent descriptions carry the placeholder.
func NewView(s fetcher.State) View {
	v := View{State: s.Phase.String(), URL: s.Reference.Raw}
	switch s.Phase {
	case fetcher.Failure:
		v.Error = ErrorMessage(s.Err)
	case fetcher.Success:
		v.Repo = repositoryView(s.Reference, s.Payload)
	}
	return v
}

func repositoryView(ref models.Reference, p *models.Payload) *RepositoryView {
	if p == nil {
		return nil
	}
	desc := DescriptionPlaceholder
	if p.Description != nil {
		desc = *p.Description
	}
	return &RepositoryView{
		Owner:       ref.Owner,
		Name:        p.Name,
		Description: desc,
		Stars:       p.Stars,
		Forks:       p.Forks,
		Language:    p.Language,
	}
}
