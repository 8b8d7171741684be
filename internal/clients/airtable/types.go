package airtable

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Attachment is an Airtable attachment cell entry
type Attachment struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Type     string `json:"type"`
}

// Fields are the columns the content table is expected to carry
type Fields struct {
	Name             string       `json:"Name"`
	SKU              string       `json:"SKU"`
	Description      string       `json:"Description"`
	ShortDescription string       `json:"Short Description"`
	ImageURL         string       `json:"Image URL"`
	Images           []Attachment `json:"Images"`
}

type Record struct {
	ID          string `json:"id"`
	CreatedTime string `json:"createdTime"`
	Fields      Fields `json:"fields"`
}

// Validate requires an id and at least a name or SKU to match on
func (r Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("record has no id")
	}
	if strings.TrimSpace(r.Fields.Name) == "" && strings.TrimSpace(r.Fields.SKU) == "" {
		return fmt.Errorf("record %s has neither Name nor SKU", r.ID)
	}
	if r.Fields.ImageURL != "" && !isHTTPURL(r.Fields.ImageURL) {
		return fmt.Errorf("record %s has invalid Image URL %q", r.ID, r.Fields.ImageURL)
	}
	return nil
}

// ImageURLs lists attachment URLs first, then the plain Image URL column, skipping invalid entries
func (r Record) ImageURLs() []string {
	var urls []string
	seen := make(map[string]bool)
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] || !isHTTPURL(u) {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	}
	for _, a := range r.Fields.Images {
		add(a.URL)
	}
	add(r.Fields.ImageURL)
	return urls
}

func (r Record) PrimaryImage() string {
	if urls := r.ImageURLs(); len(urls) > 0 {
		return urls[0]
	}
	return ""
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
